package config

import "time"

// CacheConfig defines settings for the GET response cache middleware. The
// cache is disabled when Enabled is false or no Redis client is available.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

const defaultCacheTTL = 30 * time.Second

// LoadCacheConfig reads CACHE_* environment variables, with defaults of a
// 30 second TTL and a 1 MiB body cap.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      getenv("CACHE_ENABLED", "true") == "true",
		TTL:          parseDur(getenv("CACHE_TTL", "30s"), defaultCacheTTL),
		Prefix:       getenv("CACHE_PREFIX", "cache"),
		MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
	}
}
