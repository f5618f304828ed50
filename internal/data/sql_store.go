package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"link-runtime/internal/conf"
	"link-runtime/internal/domain"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// The SQL store mirrors the DynamoDB item layout: one JSON document per key.
const (
	sqlSchema = `CREATE TABLE IF NOT EXISTS runtime_records (
	pk   TEXT NOT NULL,
	sk   TEXT NOT NULL,
	item TEXT NOT NULL,
	PRIMARY KEY (pk, sk)
)`
	sqlGetRecord = `SELECT item FROM runtime_records WHERE pk = $1 AND sk = $2`
)

// sqlStore reads runtime records from a relational table.
type sqlStore struct {
	db *sql.DB
}

// OpenSQL opens the configured database and makes sure the records table exists.
func OpenSQL(ctx context.Context, c *conf.SQL) (*sql.DB, error) {
	db, err := sql.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if c.Driver == "sqlite3" {
		// Keep in-memory databases alive across pooled connections.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

// NewSQLStore creates a RecordStore backed by database/sql.
func NewSQLStore(db *sql.DB) RecordStore {
	return &sqlStore{db: db}
}

func (s *sqlStore) GetRecord(ctx context.Context, domainName, slug string) (*domain.RuntimeRecord, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, sqlGetRecord, domain.PartitionKey(domainName), domain.SortKey(slug)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sql get record: %w", err)
	}

	var item map[string]any
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, fmt.Errorf("sql decode record: %w", err)
	}
	return decodeRecord(domainName, slug, item), nil
}
