package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

type captureBroadcaster struct {
	messages [][]byte
}

func (b *captureBroadcaster) Publish(msg []byte) {
	b.messages = append(b.messages, msg)
}

func TestSagaNotifier_BroadcastsEvent(t *testing.T) {
	t.Parallel()

	broadcaster := &captureBroadcaster{}
	notifier := NewSagaNotifier(broadcaster)
	notifier.now = func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}

	notifier.SagaFinished("1002", saga.OutcomeCompensationPublished, "activity step failed")

	if len(broadcaster.messages) != 1 {
		t.Fatalf("expected 1 event, got %d", len(broadcaster.messages))
	}

	var event struct {
		Type      string    `json:"type"`
		OrderID   string    `json:"orderId"`
		Outcome   string    `json:"outcome"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(broadcaster.messages[0], &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.Type != "saga" || event.OrderID != "1002" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Outcome != string(saga.OutcomeCompensationPublished) {
		t.Fatalf("unexpected outcome %q", event.Outcome)
	}
	if event.Timestamp.IsZero() {
		t.Fatalf("expected timestamp")
	}
}

func TestSagaNotifier_NilSafe(t *testing.T) {
	t.Parallel()

	var n *SagaNotifier
	n.SagaFinished("1", saga.OutcomeSuccess, "")

	NewSagaNotifier(nil).SagaFinished("1", saga.OutcomeSuccess, "")
}
