// This file defines the repository for country rows: filtered listing,
// case-insensitive lookup and deletion by name, counting, and the atomic
// batch upsert performed by a sync run.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/country-cache/internal/database"
	"github.com/iliyamo/country-cache/internal/model"
)

// countryColumns is the projection shared by every read query.
const countryColumns = `id, name, capital, region, population, currency_code,
       exchange_rate, estimated_gdp, flag_url, last_refreshed_at`

// ListFilter carries validated query parameters into List. Zero values mean
// "no filter"; Sort is either SortGDPDesc, SortGDPAsc or empty.
type ListFilter struct {
	Region   string
	Currency string
	Sort     string
	Limit    int
	Offset   int
}

// Sort values accepted by ListFilter. Anything else leaves the result
// unordered.
const (
	SortGDPDesc = "gdp_desc"
	SortGDPAsc  = "gdp_asc"
)

// CountryRepo encapsulates all database queries related to countries. It
// depends on a sql.DB handle which is injected at startup and in tests.
type CountryRepo struct {
	db *sql.DB
}

// NewCountryRepo constructs a CountryRepo with the provided DB handle.
func NewCountryRepo(db *sql.DB) *CountryRepo {
	return &CountryRepo{db: db}
}

// nameKey normalizes a country name for the unique name_key column. The
// same normalization is used on write and on lookup, so matching never
// depends on the storage engine's collation.
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// List returns countries matching the filter. Region and currency are
// case-insensitive equality filters; GDP ordering puts NULL values last in
// both directions.
func (r *CountryRepo) List(ctx context.Context, f ListFilter) ([]*model.Country, error) {
	sb := strings.Builder{}
	sb.WriteString("SELECT " + countryColumns + " FROM countries")

	var where []string
	var args []any
	if f.Region != "" {
		where = append(where, "LOWER(region) = LOWER(?)")
		args = append(args, f.Region)
	}
	if f.Currency != "" {
		where = append(where, "LOWER(currency_code) = LOWER(?)")
		args = append(args, f.Currency)
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	switch f.Sort {
	case SortGDPDesc:
		sb.WriteString(" ORDER BY estimated_gdp DESC NULLS LAST")
	case SortGDPAsc:
		sb.WriteString(" ORDER BY estimated_gdp ASC NULLS LAST")
	}

	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Country, 0)
	for rows.Next() {
		c := new(model.Country)
		if err := scanCountry(rows, c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByName fetches a single country by name, matching case-insensitively.
// It returns ErrCountryNotFound when no row matches.
func (r *CountryRepo) GetByName(ctx context.Context, name string) (*model.Country, error) {
	const q = "SELECT " + countryColumns + " FROM countries WHERE name_key = ? LIMIT 1"
	c := new(model.Country)
	if err := scanCountry(r.db.QueryRowContext(ctx, q, nameKey(name)), c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCountryNotFound
		}
		return nil, err
	}
	return c, nil
}

// DeleteByName removes a country by name, matching case-insensitively. It
// returns ErrCountryNotFound when no row was deleted.
func (r *CountryRepo) DeleteByName(ctx context.Context, name string) error {
	const q = "DELETE FROM countries WHERE name_key = ?"
	res, err := r.db.ExecContext(ctx, q, nameKey(name))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCountryNotFound
	}
	return nil
}

// Count returns the total number of country rows.
func (r *CountryRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM countries").Scan(&total)
	return total, err
}

const upsertCountrySQL = `
INSERT INTO countries
    (name, name_key, capital, region, population, currency_code,
     exchange_rate, estimated_gdp, flag_url, last_refreshed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name_key) DO UPDATE SET
    name              = excluded.name,
    capital           = excluded.capital,
    region            = excluded.region,
    population        = excluded.population,
    currency_code     = excluded.currency_code,
    exchange_rate     = excluded.exchange_rate,
    estimated_gdp     = excluded.estimated_gdp,
    flag_url          = excluded.flag_url,
    last_refreshed_at = excluded.last_refreshed_at`

// UpsertAll writes every country and the refresh_status timestamp in a
// single transaction: either all rows and the status marker commit
// together, or nothing is written. A row whose name_key already exists is
// fully overwritten, so no stale field survives a sync.
func (r *CountryRepo) UpsertAll(ctx context.Context, countries []*model.Country, refreshedAt string) error {
	return database.RunInTransaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertCountrySQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range countries {
			if _, err := stmt.ExecContext(ctx,
				c.Name, nameKey(c.Name), c.Capital, c.Region, c.Population,
				c.CurrencyCode, c.ExchangeRate, c.EstimatedGDP, c.FlagURL,
				c.LastRefreshedAt,
			); err != nil {
				return fmt.Errorf("upsert country %q: %w", c.Name, err)
			}
		}

		const qStatus = "UPDATE refresh_status SET last_refreshed_at = ? WHERE id = 1"
		if _, err := tx.ExecContext(ctx, qStatus, refreshedAt); err != nil {
			return fmt.Errorf("update refresh status: %w", err)
		}
		return nil
	})
}

// scanCountry reads one countries row into c from either a *sql.Row or
// *sql.Rows.
func scanCountry(row interface{ Scan(...any) error }, c *model.Country) error {
	return row.Scan(&c.ID, &c.Name, &c.Capital, &c.Region, &c.Population,
		&c.CurrencyCode, &c.ExchangeRate, &c.EstimatedGDP, &c.FlagURL,
		&c.LastRefreshedAt)
}
