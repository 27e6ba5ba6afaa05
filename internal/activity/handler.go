package activity

import (
	"context"
	"log"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

// Handler consumes activity-channel messages and applies the step. It is
// safe to run concurrently and to receive the same logical message more
// than once.
type Handler struct {
	step *Step
	logf func(format string, args ...any)
}

// NewHandler constructs a Handler around the activity step.
func NewHandler(step *Step, logf func(format string, args ...any)) *Handler {
	if logf == nil {
		logf = log.Printf
	}
	return &Handler{step: step, logf: logf}
}

// Handle processes one delivered message. A payload that fails
// validation is reported so the subscriber discards it; a store failure
// is returned as-is and left to the bus's redelivery policy.
func (h *Handler) Handle(ctx context.Context, raw []byte) error {
	record, err := saga.ParseRecord(raw)
	if err != nil {
		h.logf("activity: dropping message: %v", err)
		return err
	}

	if err := h.step.Apply(ctx, record); err != nil {
		h.logf("activity: store write failed for order %s: %v", record.OrderID, err)
		return err
	}

	h.logf("activity: stored order %s", record.OrderID)
	return nil
}
