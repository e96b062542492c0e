package probe

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/internal/domain/ranking"
	"github.com/okian/storefront/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// syntheticCategories are assigned round-robin to generated products.
var syntheticCategories = []string{"electronics", "jewelery", "men's clothing", "women's clothing"} //nolint:gochecknoglobals // fixed fixture data

// generateCatalog builds n products with coarse prices and ratings so that
// score ties are common.
func generateCatalog(rng *rand.Rand, n int) []product.Product {
	items := make([]product.Product, n)
	for i := range items {
		items[i] = product.Product{
			ID:       i + 1,
			Title:    "product " + strconv.Itoa(i+1),
			Price:    float64(1+rng.IntN(200)) / 2,
			Category: syntheticCategories[i%len(syntheticCategories)],
			Rating: product.Rating{
				Rate:  float64(rng.IntN(11)) / 2,
				Count: rng.IntN(500),
			},
		}
	}
	return items
}

// randomOptions returns valid ranking options with limit in [0, maxLimit].
func randomOptions(rng *rand.Rand, maxLimit int) ranking.Options {
	weights := []float64{0, 0.1, 0.3, 0.5, 0.7, 1, 2}
	o := ranking.Options{
		RatingWeight:      weights[rng.IntN(len(weights))],
		PriceWeight:       weights[rng.IntN(len(weights))],
		PreferHigherPrice: rng.IntN(2) == 1,
		Limit:             rng.IntN(maxLimit + 1),
	}
	if o.RatingWeight == 0 && o.PriceWeight == 0 {
		o.RatingWeight = 1
	}
	return o
}

// syntheticRounds is the number of random option sets tried per catalog.
const syntheticRounds = 8

// runSynthetic ranks generated catalogs with both strategies and counts
// results that differ. Sizes straddle cfg.Threshold so both sides of the
// switch are exercised alongside the requested size.
func runSynthetic(ctx context.Context, cfg *Config, rng *rand.Rand, stats *Stats) error {
	full := ranking.NewEngine(ranking.WithLargeDatasetThreshold(math.MaxInt))
	bounded := ranking.NewEngine(ranking.WithLargeDatasetThreshold(1))

	sizes := []int{0, 1, cfg.Synthetic}
	for _, n := range []int{cfg.Threshold - 1, cfg.Threshold, cfg.Threshold + 1} {
		if n > 0 && n <= cfg.Synthetic {
			sizes = append(sizes, n)
		}
	}
	slices.Sort(sizes)
	sizes = slices.Compact(sizes)

	logger.Get().Info(ctx, "comparing ranking strategies on synthetic catalogs",
		logger.Any("sizes", sizes),
		logger.Int("rounds", syntheticRounds))

	type job struct {
		items []product.Product
		opts  ranking.Options
	}
	jobs := make([]job, 0, len(sizes)*syntheticRounds)
	for _, n := range sizes {
		items := generateCatalog(rng, n)
		for range syntheticRounds {
			jobs = append(jobs, job{items: items, opts: randomOptions(rng, max(n+2, 1))})
		}
	}

	var mismatches atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			want, err := full.SelectTop(j.items, ranking.WithOptions(j.opts))
			if err != nil {
				return fmt.Errorf("full sort: %w", err)
			}
			got, err := bounded.SelectTop(j.items, ranking.WithOptions(j.opts))
			if err != nil {
				return fmt.Errorf("bounded top-k: %w", err)
			}
			if !slices.Equal(product.IDs(want), product.IDs(got)) {
				mismatches.Add(1)
				logger.Get().Error(gctx, "strategies disagree",
					logger.Int("items", len(j.items)),
					logger.Any("options", j.opts))
			}
			return nil
		})
	}
	err := g.Wait()

	stats.SyntheticChecks += len(jobs)
	stats.SyntheticMismatches += int(mismatches.Load())
	return err
}
