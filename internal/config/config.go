// Package config defines service configuration and its layered loading.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CatalogBaseURL is the root of the remote product catalog.
	CatalogBaseURL string `koanf:"catalog_base_url"`
	// CatalogTimeoutMS bounds each upstream HTTP attempt.
	CatalogTimeoutMS int `koanf:"catalog_timeout_ms"`
	// CatalogRetryAttempts is the total number of tries per upstream call.
	CatalogRetryAttempts int `koanf:"catalog_retry_attempts"`
	// RefreshIntervalMS sets how often the local catalog is reloaded.
	RefreshIntervalMS int `koanf:"refresh_interval_ms"`
	// SnapshotIntervalMS sets how often products added between reloads
	// reach the category and price indexes.
	SnapshotIntervalMS int `koanf:"snapshot_interval_ms"`

	// RedisAddr enables the response cache when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	// CacheTTLSeconds is how long cached catalog responses live.
	CacheTTLSeconds int `koanf:"cache_ttl_s"`

	// Ranking defaults applied when a request omits a parameter.
	RatingWeight      float64 `koanf:"rating_weight"`
	PriceWeight       float64 `koanf:"price_weight"`
	PreferHigherPrice bool    `koanf:"prefer_higher_price"`
	DefaultLimit      int     `koanf:"default_limit"`
	// MaxTopLimit caps GET /products/top?limit.
	MaxTopLimit int `koanf:"max_top_limit"`
	// LargeDatasetThreshold is the catalog size above which bounded top-K is used.
	LargeDatasetThreshold int `koanf:"large_dataset_threshold"`

	// IdempotencySize bounds the remembered Idempotency-Key values.
	IdempotencySize int `koanf:"idempotency_size"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		CatalogBaseURL:        "https://fakestoreapi.com",
		CatalogTimeoutMS:      10_000,
		CatalogRetryAttempts:  3,
		RefreshIntervalMS:     300_000,
		SnapshotIntervalMS:    1_000,
		CacheTTLSeconds:       300,
		RatingWeight:          0.7,
		PriceWeight:           0.3,
		PreferHigherPrice:     false,
		DefaultLimit:          10,
		MaxTopLimit:           100,
		LargeDatasetThreshold: 10_000,
		IdempotencySize:       50_000,
	}
}

// CatalogTimeout returns CatalogTimeoutMS as a duration.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.CatalogTimeoutMS) * time.Millisecond
}

// RefreshInterval returns RefreshIntervalMS as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

// SnapshotInterval returns SnapshotIntervalMS as a duration.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMS) * time.Millisecond
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
