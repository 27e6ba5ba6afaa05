package bus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

// RedisStreamClient is the minimal client surface used by the bus.
type RedisStreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
}

// Options tunes the bus. Zero values fall back to workable defaults.
type Options struct {
	Group        string
	Consumer     string
	Block        time.Duration
	ClaimMinIdle time.Duration
	BatchSize    int64
	MaxLen       int64
	Logf         func(format string, args ...any)
}

// Bus publishes and consumes step messages. Each logical channel is one
// Redis stream named <topic>.<channel>; each channel has its own
// consumer group, so the two saga channels deliver independently with no
// ordering between them.
type Bus struct {
	client       RedisStreamClient
	topic        string
	group        string
	consumer     string
	block        time.Duration
	claimMinIdle time.Duration
	batchSize    int64
	maxLen       int64
	logf         func(format string, args ...any)
}

// New constructs a Bus on the given topic.
func New(client RedisStreamClient, topic string, opts Options) *Bus {
	group := opts.Group
	if group == "" {
		group = "saga-workers"
	}
	consumer := opts.Consumer
	if consumer == "" {
		consumer = "consumer-" + uuid.NewString()
	}
	block := opts.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	claimMinIdle := opts.ClaimMinIdle
	if claimMinIdle <= 0 {
		claimMinIdle = time.Minute
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Bus{
		client:       client,
		topic:        topic,
		group:        group,
		consumer:     consumer,
		block:        block,
		claimMinIdle: claimMinIdle,
		batchSize:    batchSize,
		maxLen:       opts.MaxLen,
		logf:         logf,
	}
}

// Stream returns the stream name backing a channel.
func (b *Bus) Stream(channel string) string {
	return b.topic + "." + channel
}

// Publish appends a step message to a channel's stream. The record body
// travels verbatim in the body field; the message id and channel name
// ride alongside as metadata.
func (b *Bus) Publish(ctx context.Context, channel string, body []byte) error {
	msg := saga.NewStepMessage(channel, body)
	args := &redis.XAddArgs{
		Stream: b.Stream(channel),
		Values: map[string]any{
			"message_id": msg.MessageID,
			"channel":    msg.Channel,
			"body":       string(msg.Body),
		},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}
	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", b.Stream(channel), err)
	}
	return nil
}

// Run consumes every registered channel until the context ends. Each
// channel gets its own consumer loop. A message is acknowledged only
// after its handler returns success or rejects the payload as invalid;
// on a transient handler error the entry stays pending and is reclaimed
// after ClaimMinIdle, so delivery is at-least-once and a crash between
// store write and ack replays the message.
func (b *Bus) Run(ctx context.Context, registry *Registry) error {
	channels := registry.Channels()
	if len(channels) == 0 {
		return errors.New("no channels registered")
	}

	for _, channel := range channels {
		if err := b.ensureGroup(ctx, channel); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	for _, channel := range channels {
		handler, _ := registry.Handler(channel)
		wg.Add(1)
		go func(channel string, handler HandlerFunc) {
			defer wg.Done()
			b.consume(ctx, channel, handler)
		}(channel, handler)
	}
	wg.Wait()
	return ctx.Err()
}

func (b *Bus) ensureGroup(ctx context.Context, channel string) error {
	err := b.client.XGroupCreateMkStream(ctx, b.Stream(channel), b.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group on %s: %w", b.Stream(channel), err)
	}
	return nil
}

func (b *Bus) consume(ctx context.Context, channel string, handler HandlerFunc) {
	stream := b.Stream(channel)
	for {
		if ctx.Err() != nil {
			return
		}

		b.reclaim(ctx, stream, channel, handler)

		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{stream, ">"},
			Count:    b.batchSize,
			Block:    b.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			b.logf("bus: read %s: %v", stream, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, str := range res {
			for _, msg := range str.Messages {
				b.dispatch(ctx, stream, channel, handler, msg)
			}
		}
	}
}

// reclaim picks up entries another consumer read but never acknowledged.
func (b *Bus) reclaim(ctx context.Context, stream, channel string, handler HandlerFunc) {
	claimed, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    b.group,
		Consumer: b.consumer,
		MinIdle:  b.claimMinIdle,
		Start:    "0-0",
		Count:    b.batchSize,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			b.logf("bus: autoclaim %s: %v", stream, err)
		}
		return
	}
	for _, msg := range claimed {
		b.dispatch(ctx, stream, channel, handler, msg)
	}
}

func (b *Bus) dispatch(ctx context.Context, stream, channel string, handler HandlerFunc, msg redis.XMessage) {
	body, _ := msg.Values["body"].(string)

	err := handler(ctx, []byte(body))
	switch {
	case err == nil:
	case saga.IsValidationError(err):
		// Poison payload: redelivery cannot fix it, so ack and drop.
		b.logf("bus: discarding %s message %s: %v", channel, msg.ID, err)
	default:
		// Leave pending; the reclaim loop redelivers after MinIdle.
		b.logf("bus: handler failed on %s message %s: %v", channel, msg.ID, err)
		return
	}

	if err := b.client.XAck(ctx, stream, b.group, msg.ID).Err(); err != nil && ctx.Err() == nil {
		b.logf("bus: ack %s message %s: %v", stream, msg.ID, err)
	}
}

// CompensationPublisher binds the bus to the compensation channel for
// the orchestrator.
type CompensationPublisher struct {
	bus     *Bus
	channel string
}

// NewCompensationPublisher constructs the orchestrator-facing publisher.
func NewCompensationPublisher(bus *Bus, channel string) *CompensationPublisher {
	return &CompensationPublisher{bus: bus, channel: channel}
}

// PublishCompensation serializes the record and publishes it on the
// compensation channel.
func (p *CompensationPublisher) PublishCompensation(ctx context.Context, record saga.TransactionRecord) error {
	body, err := record.Marshal()
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return p.bus.Publish(ctx, p.channel, body)
}
