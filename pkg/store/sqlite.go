// Package store persists local UI state in SQLite: the last environment
// list fetched from the gateway and simple preferences such as the last
// selected environment pair.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// schemaV1 defines the initial database schema.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS environments (
	alias        TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	org_id       TEXT NOT NULL DEFAULT '',
	username     TEXT NOT NULL DEFAULT '',
	is_default   INTEGER NOT NULL DEFAULT 0,
	position     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS fetches (
	name            TEXT PRIMARY KEY,
	fetched_at_unix INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS preferences (
	name            TEXT PRIMARY KEY,
	value           TEXT NOT NULL,
	updated_at_unix INTEGER NOT NULL
);
`

// DB is the local state database
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path with recommended
// pragmas and runs the schema migration
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Limit connections to 1 for SQLite (WAL allows concurrent reads but single writer).
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &DB{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), schemaV1)
	return err
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}
