// Package recordsdb persists transaction records in Postgres.
package recordsdb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresRecordStore is a RecordStore backed by a Postgres table. The
// table plays the role of the document collection: one row per orderId
// with the full payload as JSONB.
type PostgresRecordStore struct {
	db    *sql.DB
	table string
}

// NewPostgresRecordStore constructs a store writing to the given table.
// An empty table name defaults to saga_records.
func NewPostgresRecordStore(db *sql.DB, table string) (*PostgresRecordStore, error) {
	if table == "" {
		table = "saga_records"
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresRecordStore{db: db, table: table}, nil
}

// NewPostgresRecordStoreWithSchema initializes the schema then returns
// the store.
func NewPostgresRecordStoreWithSchema(ctx context.Context, db *sql.DB, table string) (*PostgresRecordStore, error) {
	store, err := NewPostgresRecordStore(db, table)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// InitSchema creates the records table if it does not exist.
func (s *PostgresRecordStore) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			order_id TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table))
	return err
}

// Upsert creates or fully replaces the row for the record's orderId.
// Writing the same payload twice leaves the row identical.
func (s *PostgresRecordStore) Upsert(ctx context.Context, record saga.TransactionRecord) error {
	payload, err := record.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (order_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (order_id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = NOW()`, s.table),
		record.OrderID, payload,
	)
	return err
}

// Delete removes the row for orderId. Zero rows affected is success: an
// absent key means there is nothing to compensate.
func (s *PostgresRecordStore) Delete(ctx context.Context, orderID string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE order_id = $1`, s.table),
		orderID,
	)
	return err
}
