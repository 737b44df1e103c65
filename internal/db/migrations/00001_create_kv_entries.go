package migrations

// kv_entries backs kv.SQLStore. The value column type differs per driver
// (BLOB for SQLite and MySQL, BYTEA for PostgreSQL), so this is a Go migration.

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateKVEntries, downCreateKVEntries)
}

func upCreateKVEntries(ctx context.Context, tx *sql.Tx) error {
	var ddl string
	switch dialect {
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS kv_entries (
    name       TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS kv_entries (
    name       VARCHAR(191) PRIMARY KEY,
    value      LONGBLOB NOT NULL,
    updated_at TIMESTAMP(6) NOT NULL
)`
	default: // sqlite3
		ddl = `CREATE TABLE IF NOT EXISTS kv_entries (
    name       TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create kv_entries table: %w", err)
	}
	return nil
}

func downCreateKVEntries(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS kv_entries`)
	return err
}
