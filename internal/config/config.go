// Package config loads application configuration from environment
// variables. Every value has a development-friendly default so the service
// starts with an empty environment; production deployments override via
// env or a .env file loaded in main.
package config

import (
	"os"
	"strconv"
	"time"
)

// Default external sources. Both are overridable, which is also how tests
// point the sync at local fake servers.
const (
	defaultCountriesAPI = "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies"
	defaultRatesAPI     = "https://open.er-api.com/v6/latest/USD"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env             string        // application environment (development/production)
	Port            string        // HTTP port to listen on
	DBPath          string        // SQLite database file path
	ExternalTimeout time.Duration // per-request timeout for the two external fetches
	CountriesAPIURL string        // country list source
	RatesAPIURL     string        // exchange rate source
	ImagePath       string        // where the summary PNG is written and served from
}

// Load reads configuration from the environment, falling back to defaults.
func Load() Config {
	timeoutMS := atoi(getenv("EXTERNAL_TIMEOUT_MS", "15000"))
	if timeoutMS <= 0 {
		timeoutMS = 15000
	}
	return Config{
		Env:             getenv("APP_ENV", "development"),
		Port:            getenv("APP_PORT", "5000"),
		DBPath:          getenv("SQLITE_DB_PATH", "./data/app.db"),
		ExternalTimeout: time.Duration(timeoutMS) * time.Millisecond,
		CountriesAPIURL: getenv("COUNTRIES_API_URL", defaultCountriesAPI),
		RatesAPIURL:     getenv("RATES_API_URL", defaultRatesAPI),
		ImagePath:       getenv("SUMMARY_IMAGE_PATH", "./data/summary.png"),
	}
}

// Shared env helpers used across the config files in this package.

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseDur(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
