// Package activity implements the forward step of the saga: storing the
// transaction record in the document store.
package activity

import (
	"context"
	"fmt"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

// Step upserts transaction records into the record store.
type Step struct {
	store saga.RecordStore
}

// NewStep constructs the activity step against the given store.
func NewStep(store saga.RecordStore) *Step {
	return &Step{store: store}
}

// Apply writes the record keyed by its orderId. Upsert is a full
// replace-or-create, so applying the same record twice leaves the store
// unchanged after the first write.
func (s *Step) Apply(ctx context.Context, record saga.TransactionRecord) error {
	if record.OrderID == "" {
		return saga.ErrMissingOrderID
	}
	if err := s.store.Upsert(ctx, record); err != nil {
		return fmt.Errorf("upsert order %s: %w", record.OrderID, err)
	}
	return nil
}
