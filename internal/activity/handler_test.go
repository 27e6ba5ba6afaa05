package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

type failingStore struct {
	err error
}

func (s *failingStore) Upsert(ctx context.Context, record saga.TransactionRecord) error {
	return s.err
}

func (s *failingStore) Delete(ctx context.Context, orderID string) error {
	return s.err
}

func TestHandler_StoresRecord(t *testing.T) {
	t.Parallel()

	store := saga.NewInMemoryRecordStore()
	handler := NewHandler(NewStep(store), discardLogf)

	if err := handler.Handle(context.Background(), []byte(`{"orderId":"1001","amount":50}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok := store.Get("1001"); !ok {
		t.Fatalf("expected record 1001 in store")
	}
}

func TestHandler_DuplicateDeliveryIsIdempotent(t *testing.T) {
	t.Parallel()

	store := saga.NewInMemoryRecordStore()
	handler := NewHandler(NewStep(store), discardLogf)
	msg := []byte(`{"orderId":"1003","amount":10}`)

	if err := handler.Handle(context.Background(), msg); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := handler.Handle(context.Background(), msg); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly 1 record after duplicate delivery, got %d", store.Len())
	}
}

func TestHandler_MalformedPayloadIsValidationError(t *testing.T) {
	t.Parallel()

	store := saga.NewInMemoryRecordStore()
	handler := NewHandler(NewStep(store), discardLogf)

	err := handler.Handle(context.Background(), []byte(`not json`))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !saga.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected no store writes")
	}
}

func TestHandler_StoreFailurePropagates(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("store unavailable")
	handler := NewHandler(NewStep(&failingStore{err: storeErr}), discardLogf)

	err := handler.Handle(context.Background(), []byte(`{"orderId":"1001"}`))
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if saga.IsValidationError(err) {
		t.Fatalf("store failure must not classify as validation")
	}
}

func discardLogf(format string, args ...any) {}
