// Package sqlite implements repository.Persister on an embedded SQLite file.
//
// It is the alternative to the jsonfile backend (STORAGE_DRIVER=sqlite). The
// contract is the same: every Save replaces one whole collection. Here that
// means DELETE + INSERT of every row inside a single transaction, so readers
// of the file only ever see a complete collection.
//
// modernc.org/sqlite is a pure Go translation of SQLite: no CGo, no C
// compiler needed for builds or cross-compilation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/notekeeper/internal/repository"
)

var _ repository.Persister = (*DB)(nil)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/notekeeper.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database lives inside one connection. Limiting the pool
	// to one connection also serializes writers, which SQLite needs anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a snapshot rewrite is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the collection tables.
//
// Rows are read back ORDER BY rowid. A save deletes and re-inserts the whole
// collection in slice order, so rowid order is the collection order.
//
// Timestamps are stored as RFC 3339 text with nanoseconds so they round-trip
// exactly; the JSON backend stores the same representation.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// user_id may be empty for records written before ownership existed;
	// repository.MigrateOwnership fixes those at startup.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL DEFAULT '',
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			tags       TEXT NOT NULL DEFAULT '[]',
			reminder   TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating notes table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tags (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL DEFAULT '',
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating tags table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS revoked_tokens (
			token      TEXT PRIMARY KEY,
			exp        INTEGER NOT NULL,
			revoked_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_revoked_tokens_exp ON revoked_tokens(exp);
	`)
	if err != nil {
		return fmt.Errorf("creating revoked_tokens table: %w", err)
	}

	return nil
}

// replaceAll runs DELETE FROM table followed by insert(tx) in one transaction.
func (db *DB) replaceAll(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning %s rewrite: %w", table, err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("sqlite: clearing %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing %s rewrite: %w", table, err)
	}
	return nil
}
