package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/cmd/server/config"
	recordsdb "github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/db/records"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"
)

var openRecordDB = func(driver, dsn string) (*sql.DB, error) {
	return sql.Open(driver, dsn)
}

// buildRecordStore constructs the document store from env config:
// Postgres by default, the in-memory store when STORE_DRIVER=memory.
// The returned cleanup closes any database connection.
func buildRecordStore(ctx context.Context, logf func(format string, args ...any)) (saga.RecordStore, func(), error) {
	if logf == nil {
		logf = log.Printf
	}

	cfg, err := config.LoadStore()
	if err != nil {
		return nil, nil, err
	}

	if cfg.Driver == "memory" {
		logf("record store: using in-memory driver")
		return saga.NewInMemoryRecordStore(), func() {}, nil
	}

	db, err := openRecordDB("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	store, err := recordsdb.NewPostgresRecordStoreWithSchema(ctx, db, cfg.Table)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	logf("record store: postgres table %s", cfg.Table)
	cleanup := func() {
		if err := db.Close(); err != nil {
			logf("close records db: %v", err)
		}
	}
	return store, cleanup, nil
}
