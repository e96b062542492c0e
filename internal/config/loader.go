package config

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "STOREFRONT_"
	envFileVar = envPrefix + "CONFIG"
)

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (New)
//  2. a YAML file when STOREFRONT_CONFIG is set
//  3. env vars with the STOREFRONT_ prefix, e.g. STOREFRONT_MAX_TOP_LIMIT
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Flat keys: STOREFRONT_CACHE_TTL_S -> cache_ttl_s.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	case c.CatalogTimeoutMS <= 0:
		return invalid("catalog_timeout_ms must be positive")
	case c.CatalogRetryAttempts <= 0:
		return invalid("catalog_retry_attempts must be positive")
	case c.RefreshIntervalMS <= 0:
		return invalid("refresh_interval_ms must be positive")
	case c.SnapshotIntervalMS <= 0:
		return invalid("snapshot_interval_ms must be positive")
	case c.CacheTTLSeconds <= 0:
		return invalid("cache_ttl_s must be positive")
	case c.RedisDB < 0:
		return invalid("redis_db must not be negative")
	case badWeight(c.RatingWeight) || badWeight(c.PriceWeight):
		return invalid("weights must be finite and non-negative")
	case c.RatingWeight+c.PriceWeight == 0:
		return invalid("rating_weight and price_weight must not both be zero")
	case c.MaxTopLimit <= 0:
		return invalid("max_top_limit must be positive")
	case c.DefaultLimit < 0 || c.DefaultLimit > c.MaxTopLimit:
		return invalid("default_limit must be within [0, max_top_limit]")
	case c.LargeDatasetThreshold <= 0:
		return invalid("large_dataset_threshold must be positive")
	case c.IdempotencySize <= 0:
		return invalid("idempotency_size must be positive")
	}

	u, err := url.Parse(c.CatalogBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("catalog_base_url must be an absolute http(s) URL, got %q", c.CatalogBaseURL)
	}
	return nil
}

func badWeight(w float64) bool {
	return w < 0 || math.IsNaN(w) || math.IsInf(w, 0)
}
