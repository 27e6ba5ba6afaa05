package compensator

import (
	"context"
	"log"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

// Handler consumes compensation-channel messages and applies the step.
// Delivery is at-least-once; the step is idempotent so duplicates are
// safe.
type Handler struct {
	step *Step
	logf func(format string, args ...any)
}

// NewHandler constructs a Handler around the compensation step.
func NewHandler(step *Step, logf func(format string, args ...any)) *Handler {
	if logf == nil {
		logf = log.Printf
	}
	return &Handler{step: step, logf: logf}
}

// Handle processes one delivered message with the same contract as the
// activity handler: validation failures are discarded, store failures
// are left to the bus to redeliver.
func (h *Handler) Handle(ctx context.Context, raw []byte) error {
	record, err := saga.ParseRecord(raw)
	if err != nil {
		h.logf("compensator: dropping message: %v", err)
		return err
	}

	if err := h.step.Apply(ctx, record); err != nil {
		h.logf("compensator: delete failed for order %s: %v", record.OrderID, err)
		return err
	}

	h.logf("compensator: compensated order %s", record.OrderID)
	return nil
}
