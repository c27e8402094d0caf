package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schema string

// Migrate applies the embedded schema inside one transaction. Every
// statement uses IF NOT EXISTS / INSERT OR IGNORE, so running it against an
// already-migrated database is a no-op. The server must not serve traffic
// if this fails.
func Migrate(ctx context.Context, db *sql.DB) error {
	err := RunInTransaction(ctx, db, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, schema)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
