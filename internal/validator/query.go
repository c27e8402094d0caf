// Package validator parses and bounds-checks request parameters before they
// reach SQL. Validation failures are reported as a per-field details map so
// handlers can return them verbatim in the error envelope.
package validator

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/iliyamo/country-cache/internal/repository"
)

// Pagination bounds. Limit defaults to DefaultLimit when omitted.
const (
	DefaultLimit = 250
	MaxLimit     = 500
	MaxOffset    = 1_000_000_000
)

// CountriesQuery is the normalized form of the list endpoint's query
// parameters. Sort is one of repository.SortGDPDesc / SortGDPAsc or empty.
type CountriesQuery struct {
	Region   string
	Currency string
	Sort     string
	Limit    int
	Offset   int
}

// ValidateCountriesQuery validates the raw query values of GET /countries.
// On success the details map is nil. Unknown sort values are ignored rather
// than rejected; everything else out of range produces a field error.
func ValidateCountriesQuery(values url.Values) (CountriesQuery, map[string]string) {
	details := map[string]string{}
	q := CountriesQuery{Limit: DefaultLimit, Offset: 0}

	if values.Has("region") {
		v := strings.TrimSpace(values.Get("region"))
		if v == "" {
			details["region"] = "must be a non-empty string"
		}
		q.Region = v
	}
	if values.Has("currency") {
		v := strings.TrimSpace(values.Get("currency"))
		if v == "" {
			details["currency"] = "must be a non-empty string"
		}
		q.Currency = v
	}

	switch sort := values.Get("sort"); sort {
	case repository.SortGDPDesc, repository.SortGDPAsc:
		q.Sort = sort
	}

	if values.Has("limit") {
		n, err := strconv.Atoi(values.Get("limit"))
		switch {
		case err != nil:
			details["limit"] = "must be an integer"
		case n < 1 || n > MaxLimit:
			details["limit"] = "must be between 1 and 500"
		default:
			q.Limit = n
		}
	}
	if values.Has("offset") {
		n, err := strconv.Atoi(values.Get("offset"))
		switch {
		case err != nil:
			details["offset"] = "must be an integer"
		case n < 0 || n > MaxOffset:
			details["offset"] = "must be between 0 and 1000000000"
		default:
			q.Offset = n
		}
	}

	if len(details) > 0 {
		return CountriesQuery{}, details
	}
	return q, nil
}

// ValidateNameParam trims and checks the :name path parameter. It returns
// the trimmed name, or a details map when the name is empty.
func ValidateNameParam(raw string) (string, map[string]string) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", map[string]string{"name": "is required"}
	}
	return name, nil
}
