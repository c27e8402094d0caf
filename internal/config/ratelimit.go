package config

import "time"

// RateLimitConfig defines the fixed-window limiter applied to the refresh
// endpoint. A sync hits two external APIs and rewrites the whole table, so
// the default budget is deliberately small.
type RateLimitConfig struct {
	Enabled bool
	Max     int           // requests allowed per window
	Window  time.Duration // window length
	Prefix  string        // Redis key prefix
}

// LoadRateLimitConfig reads RATE_LIMIT_* environment variables. Defaults:
// 10 requests per minute.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: getenv("RATE_LIMIT_ENABLED", "true") == "true",
		Max:     atoi(getenv("RATE_LIMIT_MAX", "10")),
		Window:  parseDur(getenv("RATE_LIMIT_WINDOW", "1m"), time.Minute),
		Prefix:  getenv("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Max < 1 {
		cfg.Max = 1
	}
	return cfg
}
