package probe

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/storefront/pkg/logger"
)

// ErrChecksFailed is returned when any comparison or round trip failed.
var ErrChecksFailed = errors.New("probe checks failed")

// Run executes the configured checks and logs a summary.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(stats.StartTime.UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	logger.Get().Info(ctx, "starting storefront probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("carts", cfg.Carts),
		logger.Int("workers", cfg.Workers),
		logger.Int("synthetic", cfg.Synthetic),
		logger.Any("seed", seed))

	// Step 1: Local strategy comparison
	if cfg.Synthetic > 0 {
		if err := runSynthetic(ctx, cfg, rng, stats); err != nil {
			return stats, fmt.Errorf("synthetic check failed: %w", err)
		}
	}

	if cfg.BaseURL != "" {
		client := newHTTPClient(cfg.BaseURL, cfg.Timeout, cfg.Verbose)

		// Step 2: Check service health
		if err := checkServiceHealth(ctx, client); err != nil {
			return stats, fmt.Errorf("service health check failed: %w", err)
		}

		// Step 3: Load the catalog the server ranks
		items, err := fetchCatalog(ctx, client)
		if err != nil {
			return stats, fmt.Errorf("catalog retrieval failed: %w", err)
		}

		// Step 4: Compare rankings
		if err := checkTop(ctx, cfg, client, rng, items, stats); err != nil {
			return stats, fmt.Errorf("top products check failed: %w", err)
		}

		// Step 5: Cart round trips
		if err := checkCarts(ctx, cfg, client, rng, items, stats); err != nil {
			return stats, fmt.Errorf("cart check failed: %w", err)
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Failed() {
		return stats, ErrChecksFailed
	}
	logger.Get().Info(ctx, "probe completed successfully")
	return stats, nil
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var requestsPerSecond float64
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.TopRequests+stats.CartRoundTrips) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("syntheticChecks", stats.SyntheticChecks),
		logger.Int("syntheticMismatches", stats.SyntheticMismatches),
		logger.Int("topRequests", stats.TopRequests),
		logger.Int("topMismatches", stats.TopMismatches),
		logger.Int("topFailures", stats.TopFailures),
		logger.Int("cartRoundTrips", stats.CartRoundTrips),
		logger.Int("cartFailures", stats.CartFailures),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
