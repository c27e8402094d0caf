// Package model defines the persisted entities of the service. Fields that
// map to nullable columns use pointer types so JSON responses render null
// instead of zero values.
package model

// Country is one row of the countries table. Name is the natural key and is
// unique case-insensitively; population is always present, everything else
// depends on what the external sources returned during the last sync.
type Country struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Capital         *string  `json:"capital"`
	Region          *string  `json:"region"`
	Population      int64    `json:"population"`
	CurrencyCode    *string  `json:"currency_code"`
	ExchangeRate    *float64 `json:"exchange_rate"`
	EstimatedGDP    *float64 `json:"estimated_gdp"`
	FlagURL         *string  `json:"flag_url"`
	LastRefreshedAt string   `json:"last_refreshed_at"`
}
