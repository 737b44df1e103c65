package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore is the sqlx-backed Store. Values live in the kv_entries table
// created by the goose migrations in internal/db.
type SQLStore struct {
	db     *sqlx.DB
	upsert string
}

// NewSQLStore creates a SQLStore. driver selects the upsert dialect:
// "sqlite3", "postgres" or "mysql".
func NewSQLStore(db *sqlx.DB, driver string) (*SQLStore, error) {
	var upsert string
	switch driver {
	case "sqlite3", "postgres":
		upsert = `INSERT INTO kv_entries (name, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	case "mysql":
		upsert = `INSERT INTO kv_entries (name, value, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`
	default:
		return nil, fmt.Errorf("unsupported DB driver %q for kv store", driver)
	}
	return &SQLStore{db: db, upsert: db.Rebind(upsert)}, nil
}

// q rebinds ? placeholders to the driver's native format ($1,$2,... for PostgreSQL).
func (s *SQLStore) q(query string) string { return s.db.Rebind(query) }

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, s.q(`SELECT value FROM kv_entries WHERE name = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.upsert, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM kv_entries WHERE name = ?`), key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}
