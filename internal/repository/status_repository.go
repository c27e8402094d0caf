package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/country-cache/internal/model"
)

// StatusRepo reads the singleton refresh_status row. The row is seeded by
// the schema applier and only ever written by the sync transaction, so this
// repository is read-only.
type StatusRepo struct {
	db *sql.DB
}

// NewStatusRepo constructs a StatusRepo with the provided DB handle.
func NewStatusRepo(db *sql.DB) *StatusRepo {
	return &StatusRepo{db: db}
}

// Get returns the refresh status. LastRefreshedAt is nil until the first
// successful sync has committed.
func (r *StatusRepo) Get(ctx context.Context) (*model.RefreshStatus, error) {
	const q = "SELECT last_refreshed_at FROM refresh_status WHERE id = 1"
	var s model.RefreshStatus
	if err := r.db.QueryRowContext(ctx, q).Scan(&s.LastRefreshedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
