package realtime

import (
	"encoding/json"
	"time"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

// Broadcaster pushes serialized events to connected clients.
type Broadcaster interface {
	Publish(msg []byte)
}

// SagaNotifier turns saga outcomes into JSON events on a broadcaster.
type SagaNotifier struct {
	broadcaster Broadcaster
	now         func() time.Time
}

// NewSagaNotifier constructs a notifier over the given broadcaster.
func NewSagaNotifier(broadcaster Broadcaster) *SagaNotifier {
	return &SagaNotifier{broadcaster: broadcaster, now: time.Now}
}

// SagaFinished broadcasts the terminal state of one saga request.
func (n *SagaNotifier) SagaFinished(orderID string, outcome saga.SagaOutcome, message string) {
	if n == nil || n.broadcaster == nil {
		return
	}

	payload := struct {
		Type      string    `json:"type"`
		OrderID   string    `json:"orderId"`
		Outcome   string    `json:"outcome"`
		Message   string    `json:"message,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Type:      "saga",
		OrderID:   orderID,
		Outcome:   string(outcome),
		Message:   message,
		Timestamp: n.now().UTC(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	n.broadcaster.Publish(data)
}
