package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/storefront/internal/domain/catalog"
	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/pkg/logger"
	"github.com/okian/storefront/pkg/metrics"
)

// KeyPrefix namespaces every catalog entry.
const KeyPrefix = "catalog:"

const defaultTTL = 5 * time.Minute

// Catalog caches a catalog.Source. Concurrent misses on one key share a
// single upstream call. Store failures fall through to the source.
type Catalog struct {
	source catalog.Source
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	log    logger.Logger
}

var _ catalog.Source = (*Catalog)(nil)

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithTTL sets how long entries live.
func WithTTL(d time.Duration) CatalogOption {
	return func(c *Catalog) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) CatalogOption {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCatalog wraps source. A nil store disables caching.
func NewCatalog(source catalog.Source, store Store, opts ...CatalogOption) *Catalog {
	if store == nil {
		store = NoopStore{}
	}
	c := &Catalog{source: source, store: store, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("cache")
	}
	return c
}

func (c *Catalog) Products(ctx context.Context) ([]product.Product, error) {
	return fetch(ctx, c, KeyPrefix+"products", c.source.Products)
}

func (c *Catalog) Product(ctx context.Context, id int) (product.Product, error) {
	return fetch(ctx, c, KeyPrefix+"product:"+strconv.Itoa(id), func(ctx context.Context) (product.Product, error) {
		return c.source.Product(ctx, id)
	})
}

func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	return fetch(ctx, c, KeyPrefix+"categories", c.source.Categories)
}

func (c *Catalog) ProductsByCategory(ctx context.Context, category string) ([]product.Product, error) {
	return fetch(ctx, c, KeyPrefix+"category:"+category, func(ctx context.Context) ([]product.Product, error) {
		return c.source.ProductsByCategory(ctx, category)
	})
}

// Invalidate drops every cached catalog entry.
func (c *Catalog) Invalidate(ctx context.Context) error {
	n, err := c.store.Invalidate(ctx, KeyPrefix)
	if err != nil {
		metrics.RecordCacheError("invalidate")
		return err
	}
	c.log.Debug(ctx, "cache invalidated", logger.Int64("keys", n))
	return nil
}

func fetch[T any](ctx context.Context, c *Catalog, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](ctx, c, key); ok {
		metrics.RecordCacheHit()
		return v, nil
	}
	metrics.RecordCacheMiss()

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := lookup[T](ctx, c, key); ok {
			return v, nil
		}
		// One caller giving up must not fail the others sharing this call.
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.save(ctx, key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func lookup[T any](ctx context.Context, c *Catalog, key string) (T, bool) {
	var out T
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			metrics.RecordCacheError("get")
			c.log.Warn(ctx, "cache get failed", logger.String("key", key), logger.Error(err))
		}
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		metrics.RecordCacheError("decode")
		c.log.Warn(ctx, "cache entry undecodable", logger.String("key", key), logger.Error(err))
		return out, false
	}
	return out, true
}

func (c *Catalog) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		metrics.RecordCacheError("encode")
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		metrics.RecordCacheError("set")
		c.log.Warn(ctx, "cache set failed", logger.String("key", key), logger.Error(err))
	}
}
