package saga

import (
	"context"
	"sync"
)

// NewInMemoryRecordStore constructs an in-memory record store.
func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		records: make(map[string][]byte),
	}
}

// InMemoryRecordStore keeps records in a map. It backs local development
// when no database is configured and doubles as a test fixture.
type InMemoryRecordStore struct {
	mu      sync.Mutex
	records map[string][]byte
	deletes map[string]int
}

func (s *InMemoryRecordStore) Upsert(ctx context.Context, record TransactionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := record.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.OrderID] = body
	return nil
}

func (s *InMemoryRecordStore) Delete(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, orderID)
	if s.deletes == nil {
		s.deletes = make(map[string]int)
	}
	s.deletes[orderID]++
	return nil
}

// Get returns the stored payload for an order, if any (for testing/inspection).
func (s *InMemoryRecordStore) Get(orderID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.records[orderID]
	return body, ok
}

// Len reports how many records are stored (for testing/inspection).
func (s *InMemoryRecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Deletes reports how many deletes were issued for an order, no-ops
// included (for testing/inspection).
func (s *InMemoryRecordStore) Deletes(orderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes[orderID]
}
