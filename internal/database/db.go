// Package database owns the SQLite store: opening it with the right pragmas,
// the process-scoped shared handle, the transaction wrapper and the schema
// applier. All other packages go through *sql.DB handles produced here.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// pragmas are applied to every database we open. WAL keeps readers from
// blocking the sync writer, NORMAL synchronous is the usual WAL pairing,
// and the busy timeout covers the brief write lock held during a sync.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA cache_size = -32000",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA busy_timeout = 5000",
}

var (
	mu     sync.Mutex
	shared *sql.DB
)

// Open opens (creating if needed) the SQLite database file at path and
// applies the pragmas above. The parent directory is created when missing.
// Tests use Open directly to get isolated databases; the server uses
// Acquire for the shared process-scoped handle.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	// SQLite allows a single writer; a small pool is plenty and keeps
	// lock contention between the sync writer and readers low.
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Acquire returns the process-scoped database handle, opening it lazily on
// first use. Subsequent calls return the same handle regardless of path.
func Acquire(path string) (*sql.DB, error) {
	mu.Lock()
	defer mu.Unlock()
	if shared != nil {
		return shared, nil
	}
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	shared = db
	return shared, nil
}

// Close closes the shared handle if it was opened. A later Acquire will
// reopen it.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if shared == nil {
		return nil
	}
	err := shared.Close()
	shared = nil
	return err
}

// RunInTransaction executes fn inside a transaction. Any error returned by
// fn rolls back every write made within it; otherwise the transaction is
// committed. This is the only mutual-exclusion primitive the sync needs.
func RunInTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// TableExists reports whether a table with the given name exists. Used by
// auxiliary tooling only; the schema applier does not rely on it.
func TableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	const q = `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`
	var found string
	if err := db.QueryRowContext(ctx, q, name).Scan(&found); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
