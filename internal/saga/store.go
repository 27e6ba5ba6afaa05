package saga

import "context"

// RecordStore abstracts the document store the step handlers mutate.
// Upsert is a full replace-or-create keyed by orderId; Delete of an
// absent key is a no-op success. Both must be idempotent so redelivered
// step messages are harmless.
type RecordStore interface {
	Upsert(ctx context.Context, record TransactionRecord) error
	Delete(ctx context.Context, orderID string) error
}
