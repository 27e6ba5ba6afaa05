package saga

import "github.com/google/uuid"

// StepMessage is the envelope carried across the bus. The record body is
// published verbatim; MessageID and Channel ride alongside it as message
// metadata. There is no sequence number: delivery is at-least-once and
// messages for the same orderId carry no ordering across channels.
type StepMessage struct {
	MessageID string
	Channel   string
	Body      []byte
}

// NewStepMessage wraps a serialized record for publication on a channel.
func NewStepMessage(channel string, body []byte) StepMessage {
	return StepMessage{
		MessageID: uuid.NewString(),
		Channel:   channel,
		Body:      body,
	}
}
