// Package compensator implements the compensating step of the saga:
// removing the record the activity step stored.
package compensator

import (
	"context"
	"fmt"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

// Step deletes transaction records from the record store.
type Step struct {
	store saga.RecordStore
}

// NewStep constructs the compensation step against the given store.
func NewStep(store saga.RecordStore) *Step {
	return &Step{store: store}
}

// Apply removes the record keyed by orderId. Deleting an absent key is a
// no-op success: compensation may arrive before, after, or without the
// matching activity write, and redelivery must stay harmless.
func (s *Step) Apply(ctx context.Context, record saga.TransactionRecord) error {
	if record.OrderID == "" {
		return saga.ErrMissingOrderID
	}
	if err := s.store.Delete(ctx, record.OrderID); err != nil {
		return fmt.Errorf("delete order %s: %w", record.OrderID, err)
	}
	return nil
}
