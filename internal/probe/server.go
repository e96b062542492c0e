package probe

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/okian/storefront/internal/domain/cart"
	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/internal/domain/ranking"
	"github.com/okian/storefront/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// idempotencyHeader matches the header the cart API deduplicates on.
const idempotencyHeader = "Idempotency-Key"

// cartResponse is the JSON shape of a cart.
type cartResponse struct {
	ID string `json:"id"`
	cart.Cart
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, c *httpClient) error {
	logger.Get().Info(ctx, "checking service health")
	// /healthz serves Prometheus metrics; any 200 counts as healthy.
	if err := c.get(ctx, "/healthz", nil); err != nil {
		return err
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// fetchCatalog loads the products in catalog order, the order ranking ties follow.
func fetchCatalog(ctx context.Context, c *httpClient) ([]product.Product, error) {
	var items []product.Product
	if err := c.get(ctx, "/products", &items); err != nil {
		return nil, err
	}
	logger.Get().Info(ctx, "catalog loaded", logger.Int("products", len(items)))
	return items, nil
}

// topQuery encodes every ranking option so server defaults never apply.
func topQuery(o ranking.Options) string {
	q := url.Values{}
	q.Set("ratingWeight", strconv.FormatFloat(o.RatingWeight, 'g', -1, 64))
	q.Set("priceWeight", strconv.FormatFloat(o.PriceWeight, 'g', -1, 64))
	q.Set("preferHigherPrice", strconv.FormatBool(o.PreferHigherPrice))
	q.Set("limit", strconv.Itoa(o.Limit))
	return "/products/top?" + q.Encode()
}

// checkTop issues cfg.Requests concurrent /products/top calls with random
// options and compares each answer with a local ranking of items.
func checkTop(ctx context.Context, cfg *Config, c *httpClient, rng *rand.Rand, items []product.Product, stats *Stats) error {
	logger.Get().Info(ctx, "checking top products",
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers))

	queries := make([]ranking.Options, cfg.Requests)
	for i := range queries {
		queries[i] = randomOptions(rng, cfg.MaxLimit)
	}

	var mismatches, failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, o := range queries {
		g.Go(func() error {
			want, err := ranking.TopProducts(items, ranking.WithOptions(o))
			if err != nil {
				return fmt.Errorf("local ranking: %w", err)
			}
			var got []product.Product
			if err := c.get(gctx, topQuery(o), &got); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures.Add(1)
				logger.Get().Warn(gctx, "top request failed", logger.Error(err))
				return nil
			}
			if !slices.Equal(product.IDs(want), product.IDs(got)) {
				mismatches.Add(1)
				logger.Get().Error(gctx, "ranking mismatch",
					logger.Any("options", o),
					logger.Any("want", product.IDs(want)),
					logger.Any("got", product.IDs(got)))
			}
			return nil
		})
	}
	err := g.Wait()

	stats.TopRequests += len(queries)
	stats.TopMismatches += int(mismatches.Load())
	stats.TopFailures += int(failures.Load())
	return err
}

// checkCarts runs cfg.Carts concurrent cart round trips.
func checkCarts(ctx context.Context, cfg *Config, c *httpClient, rng *rand.Rand, items []product.Product, stats *Stats) error {
	if len(items) == 0 {
		logger.Get().Warn(ctx, "catalog is empty, skipping cart checks")
		return nil
	}
	logger.Get().Info(ctx, "checking carts", logger.Int("carts", cfg.Carts))

	picks := make([]product.Product, cfg.Carts)
	for i := range picks {
		picks[i] = items[rng.IntN(len(items))]
	}

	var failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, p := range picks {
		g.Go(func() error {
			if err := cartRoundTrip(gctx, c, p); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures.Add(1)
				logger.Get().Error(gctx, "cart round trip failed", logger.Int("productID", p.ID), logger.Error(err))
			}
			return nil
		})
	}
	err := g.Wait()

	stats.CartRoundTrips += len(picks)
	stats.CartFailures += int(failures.Load())
	return err
}

// cartRoundTrip creates a cart, adds p twice under one idempotency key
// (the replay must be rejected), changes the quantity and deletes the cart.
func cartRoundTrip(ctx context.Context, c *httpClient, p product.Product) error {
	var created cartResponse
	if err := c.do(ctx, http.MethodPost, "/carts", nil, nil, http.StatusCreated, &created); err != nil {
		return err
	}
	base := "/carts/" + url.PathEscape(created.ID)

	add := map[string]int{"productId": p.ID, "quantity": 2}
	header := http.Header{idempotencyHeader: []string{uuid.NewString()}}
	var added cartResponse
	if err := c.do(ctx, http.MethodPost, base+"/items", add, header, http.StatusOK, &added); err != nil {
		return err
	}
	if added.Quantity(p.ID) != 2 {
		return fmt.Errorf("quantity after add: got %d, want 2", added.Quantity(p.ID))
	}

	err := c.do(ctx, http.MethodPost, base+"/items", add, header, http.StatusOK, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusConflict {
		return fmt.Errorf("idempotent replay: want status %d, got %v", http.StatusConflict, err)
	}

	itemPath := base + "/items/" + strconv.Itoa(p.ID)
	var updated cartResponse
	if err := c.do(ctx, http.MethodPut, itemPath, map[string]int{"quantity": 5}, nil, http.StatusOK, &updated); err != nil {
		return err
	}
	if updated.TotalItems != 5 {
		return fmt.Errorf("total items after update: got %d, want 5", updated.TotalItems)
	}

	if err := c.do(ctx, http.MethodDelete, base, nil, nil, http.StatusNoContent, nil); err != nil {
		return err
	}
	err = c.get(ctx, base, nil)
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		return fmt.Errorf("deleted cart: want status %d, got %v", http.StatusNotFound, err)
	}
	return nil
}
