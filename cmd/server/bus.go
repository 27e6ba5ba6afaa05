package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/cmd/server/config"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/bus"
)

// buildSagaBus connects to Redis from env config and wires the stream
// bus on the saga topic. The returned cleanup closes the client.
func buildSagaBus(ctx context.Context, sagaCfg config.SagaConfig) (*bus.Bus, func(), error) {
	cfg, err := config.LoadRedis()
	if err != nil {
		return nil, nil, err
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DialTimeout != nil {
		opts.DialTimeout = *cfg.DialTimeout
	}
	if cfg.ReadTimeout != nil {
		opts.ReadTimeout = *cfg.ReadTimeout
	}
	if cfg.WriteTimeout != nil {
		opts.WriteTimeout = *cfg.WriteTimeout
	}
	if cfg.PoolSize != nil {
		opts.PoolSize = *cfg.PoolSize
	}
	if cfg.MinIdleConns != nil {
		opts.MinIdleConns = *cfg.MinIdleConns
	}
	if cfg.MaxRetries != nil {
		opts.MaxRetries = *cfg.MaxRetries
	}
	if cfg.TLSConfig != nil {
		opts.TLSConfig = cfg.TLSConfig
	}

	client := redis.NewClient(opts)
	if cfg.EnableOTel {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
	}

	pingCtx := ctx
	if pingCtx == nil {
		pingCtx = context.Background()
	}
	if cfg.HealthcheckTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(pingCtx, cfg.HealthcheckTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	busOpts := bus.Options{
		Group:  sagaCfg.ConsumerGroup,
		MaxLen: sagaCfg.StreamMaxLen,
	}
	if sagaCfg.ConsumerBlock != nil {
		busOpts.Block = *sagaCfg.ConsumerBlock
	}
	if sagaCfg.ClaimMinIdle != nil {
		busOpts.ClaimMinIdle = *sagaCfg.ClaimMinIdle
	}

	sagaBus := bus.New(client, sagaCfg.Topic, busOpts)
	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Printf("close redis: %v", err)
		}
	}
	return sagaBus, cleanup, nil
}
