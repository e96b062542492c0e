// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/storefront/internal/adapters/repository"
	"github.com/okian/storefront/internal/domain/cart"
	"github.com/okian/storefront/internal/domain/catalog"
	"github.com/okian/storefront/internal/domain/dedupe"
	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/internal/domain/ranking"
	"github.com/okian/storefront/pkg/logger"
	"github.com/okian/storefront/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultRefreshInterval = 5 * time.Minute
	defaultMaxTopLimit     = 100
	defaultIdempotencySize = 50_000
	systemMetricsInterval  = 15 * time.Second
)

// Invalidator drops cached catalog responses.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service implements the API dependencies for the storefront.
type Service struct {
	mu sync.RWMutex

	// Core components
	source      catalog.Source
	invalidator Invalidator
	products    *repository.ProductStore
	carts       *repository.CartStore
	deduper     dedupe.Deduper
	engine      *ranking.Engine

	// Configuration
	rankingDefaults  ranking.Options
	threshold        int
	maxTopLimit      int
	refreshInterval  time.Duration
	snapshotInterval time.Duration
	idempotencySize  int

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets where catalog data is read from, usually the cached client.
func WithSource(src catalog.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithInvalidator sets the cache cleared by ForceRefresh.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRankingDefaults sets the options a ranking request starts from.
func WithRankingDefaults(o ranking.Options) Option {
	return func(s *Service) {
		s.rankingDefaults = o
	}
}

// WithLargeDatasetThreshold sets the catalog size above which bounded top-K is used.
func WithLargeDatasetThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithMaxTopLimit caps the limit accepted by TopProducts.
func WithMaxTopLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTopLimit = n
		}
	}
}

// WithRefreshInterval sets how often the catalog is reloaded.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithSnapshotInterval sets how often the product store republishes its snapshot.
func WithSnapshotInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.snapshotInterval = d
		}
	}
}

// WithIdempotencySize bounds the remembered idempotency keys.
func WithIdempotencySize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.idempotencySize = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		rankingDefaults: ranking.DefaultOptions(),
		threshold:       ranking.DefaultLargeDatasetThreshold,
		maxTopLimit:     defaultMaxTopLimit,
		refreshInterval: defaultRefreshInterval,
		idempotencySize: defaultIdempotencySize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.carts = repository.NewCartStore()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.idempotencySize))
	s.engine = ranking.NewEngine(
		ranking.WithLargeDatasetThreshold(s.threshold),
		ranking.WithDefaults(s.rankingDefaults),
	)
	return s
}

// Start loads the catalog and begins the refresh loop. A failed initial
// load is logged; reads fall back to the source until a refresh succeeds.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.source == nil {
		s.mu.Unlock()
		return ErrNoSource
	}
	s.logger.Info(ctx, "starting storefront service...")

	var storeOpts []repository.Option
	if s.snapshotInterval > 0 {
		storeOpts = append(storeOpts, repository.WithSnapshotInterval(s.snapshotInterval))
	}
	s.products = repository.NewProductStore(ctx, storeOpts...)
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.started = true
	s.mu.Unlock()

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn(ctx, "initial catalog load failed, serving from source", logger.Error(err))
	}

	s.wg.Add(1)
	go s.loop(ctx, stop)

	s.logger.Info(ctx, "storefront service started",
		logger.Duration("refreshInterval", s.refreshInterval),
		logger.Int("largeDatasetThreshold", s.threshold),
		logger.Int("maxTopLimit", s.maxTopLimit),
		logger.Int("idempotencySize", s.idempotencySize),
	)
	return nil
}

func (s *Service) loop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()
	refresh := time.NewTicker(s.refreshInterval)
	defer refresh.Stop()
	system := time.NewTicker(systemMetricsInterval)
	defer system.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-refresh.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn(ctx, "catalog refresh failed, keeping previous catalog", logger.Error(err))
			}
		case <-system.C:
			metrics.CollectSystem()
		}
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.logger.Info(context.Background(), "stopping storefront service...")
	close(s.stopCh)
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	if s.products != nil {
		_ = s.products.Close()
	}
	s.logger.Info(context.Background(), "storefront service stopped")
}

// Refresh reloads the whole catalog from the source. On failure the
// previously loaded catalog stays in place.
func (s *Service) Refresh(ctx context.Context) error {
	store := s.store()
	if store == nil {
		return ErrNotStarted
	}
	start := time.Now()
	items, err := s.source.Products(ctx)
	if err != nil {
		metrics.RecordCatalogRefresh(metrics.OutcomeFailure, 0, 0)
		return fmt.Errorf("refresh catalog: %w", err)
	}
	store.Replace(ctx, items)
	metrics.RecordCatalogRefresh(metrics.OutcomeSuccess, len(items), float64(time.Now().Unix()))
	s.logger.Info(ctx, "catalog refreshed",
		logger.Int("products", len(items)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// ForceRefresh drops cached responses and reloads the catalog.
func (s *Service) ForceRefresh(ctx context.Context) error {
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate catalog cache: %w", err)
		}
	}
	return s.Refresh(ctx)
}

func (s *Service) store() *repository.ProductStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products
}

// loadedStore returns the product store when it holds a catalog.
func (s *Service) loadedStore() (*repository.ProductStore, bool) {
	store := s.store()
	if store == nil {
		return nil, false
	}
	loaded, _ := store.Loaded()
	return store, loaded
}

func (s *Service) catalogItems(ctx context.Context) ([]product.Product, error) {
	if store, ok := s.loadedStore(); ok {
		return store.All(ctx), nil
	}
	if s.source == nil {
		return nil, ErrNoSource
	}
	return s.source.Products(ctx)
}

// ListProducts returns the catalog narrowed by f and ordered by order.
func (s *Service) ListProducts(ctx context.Context, f catalog.Filter, order catalog.SortOrder) ([]product.Product, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	items, err := s.candidates(ctx, f, order)
	if err != nil {
		return nil, err
	}
	return catalog.Sort(catalog.Apply(items, f), order)
}

// candidates picks the cheapest superset of the listing: the category
// index or the price index when the store is loaded.
func (s *Service) candidates(ctx context.Context, f catalog.Filter, order catalog.SortOrder) ([]product.Product, error) {
	store, ok := s.loadedStore()
	if !ok {
		if s.source == nil {
			return nil, ErrNoSource
		}
		if f.Category != "" {
			return s.source.ProductsByCategory(ctx, f.Category)
		}
		return s.source.Products(ctx)
	}

	switch {
	case f.Category != "":
		return store.ByIDs(ctx, store.Snapshot().ByCategory[f.Category]), nil
	case order == catalog.SortPriceAsc || order == catalog.SortPriceDesc:
		return store.PriceRange(ctx, f.MinPrice, f.MaxPrice)
	default:
		return store.All(ctx), nil
	}
}

// Product returns a single product, asking the source when the local
// catalog does not have it. Products found that way are added to the
// store; category and price indexes pick them up on the next snapshot.
func (s *Service) Product(ctx context.Context, id int) (product.Product, error) {
	store, loaded := s.loadedStore()
	if loaded {
		p, err := store.Get(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return product.Product{}, err
		}
	}
	if s.source == nil {
		return product.Product{}, ErrNoSource
	}
	p, err := s.source.Product(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	if loaded {
		store.Upsert(ctx, p)
		s.logger.Debug(ctx, "added product fetched after load", logger.Int("id", p.ID))
	}
	return p, nil
}

// Categories lists the distinct product categories.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	if store, ok := s.loadedStore(); ok {
		return store.Snapshot().Categories, nil
	}
	if s.source == nil {
		return nil, ErrNoSource
	}
	return s.source.Categories(ctx)
}

// Search matches query against title, description and category.
func (s *Service) Search(ctx context.Context, query string) ([]product.Product, error) {
	items, err := s.catalogItems(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Search(items, query), nil
}

// TopProducts ranks the catalog. Options not supplied keep the configured
// defaults; a limit above the configured maximum is rejected.
func (s *Service) TopProducts(ctx context.Context, opts ...ranking.Option) ([]product.Product, error) {
	resolved := s.engine.Defaults()
	for _, opt := range opts {
		opt(&resolved)
	}
	if resolved.Limit > s.maxTopLimit {
		metrics.RecordRankingError("limit_too_large")
		return nil, fmt.Errorf("%w: %d exceeds maximum %d", ranking.ErrInvalidLimit, resolved.Limit, s.maxTopLimit)
	}

	items, err := s.catalogItems(ctx)
	if err != nil {
		metrics.RecordRankingError("catalog_unavailable")
		return nil, err
	}

	start := time.Now()
	top, err := s.engine.SelectTop(items, opts...)
	if err != nil {
		metrics.RecordRankingError(rankingErrorReason(err))
		return nil, err
	}
	strategy := s.engine.StrategyFor(len(items))
	metrics.RecordRankingRequest(string(strategy), float64(time.Since(start).Nanoseconds())/1e6)
	s.logger.Debug(ctx, "ranked products",
		logger.String("strategy", string(strategy)),
		logger.Int("catalog", len(items)),
		logger.Int("returned", len(top)),
	)
	return top, nil
}

func rankingErrorReason(err error) string {
	switch {
	case errors.Is(err, ranking.ErrInvalidWeights):
		return "invalid_weights"
	case errors.Is(err, ranking.ErrInvalidLimit):
		return "invalid_limit"
	default:
		return "unknown"
	}
}

// CreateCart makes an empty cart.
func (s *Service) CreateCart(ctx context.Context) (string, *cart.Cart) {
	id, c := s.carts.Create(ctx)
	metrics.RecordCartMutation("create")
	return id, c
}

// Cart returns the cart with id.
func (s *Service) Cart(ctx context.Context, id string) (*cart.Cart, error) {
	return s.carts.Get(ctx, id)
}

// DeleteCart removes the cart with id.
func (s *Service) DeleteCart(ctx context.Context, id string) error {
	if err := s.carts.Delete(ctx, id); err != nil {
		return err
	}
	metrics.RecordCartMutation("delete")
	return nil
}

// AddItem adds quantity units of productID to the cart. A non-empty
// idempotencyKey makes the call apply at most once per cart; a replay
// returns dedupe.ErrDuplicate. Failed calls release the key.
func (s *Service) AddItem(ctx context.Context, cartID string, productID, quantity int, idempotencyKey string) (*cart.Cart, error) {
	if idempotencyKey == "" {
		return s.addItem(ctx, cartID, productID, quantity)
	}

	key := cartID + ":" + idempotencyKey
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordIdempotentReplay()
		s.logger.Debug(ctx, "duplicate cart mutation skipped",
			logger.String("cartID", cartID),
			logger.String("idempotencyKey", idempotencyKey),
		)
		return nil, fmt.Errorf("%w: %s", dedupe.ErrDuplicate, idempotencyKey)
	}
	c, err := s.addItem(ctx, cartID, productID, quantity)
	if err != nil {
		s.deduper.Unrecord(ctx, key)
		return nil, err
	}
	return c, nil
}

func (s *Service) addItem(ctx context.Context, cartID string, productID, quantity int) (*cart.Cart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: %d", cart.ErrInvalidQuantity, quantity)
	}
	if _, err := s.carts.Get(ctx, cartID); err != nil {
		return nil, err
	}
	p, err := s.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	c, err := s.carts.Update(ctx, cartID, func(c *cart.Cart) error {
		return c.Add(p, quantity)
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordCartMutation("add")
	return c, nil
}

// SetItemQuantity sets the quantity of a line; zero removes it.
func (s *Service) SetItemQuantity(ctx context.Context, cartID string, productID, quantity int) (*cart.Cart, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: %d", cart.ErrInvalidQuantity, quantity)
	}
	c, err := s.carts.Update(ctx, cartID, func(c *cart.Cart) error {
		return c.UpdateQuantity(productID, quantity)
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordCartMutation("update")
	return c, nil
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID string, productID int) (*cart.Cart, error) {
	c, err := s.carts.Update(ctx, cartID, func(c *cart.Cart) error {
		if !c.Remove(productID) {
			return fmt.Errorf("%w: %d", cart.ErrItemNotFound, productID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordCartMutation("remove")
	return c, nil
}

// ClearCart empties the cart.
func (s *Service) ClearCart(ctx context.Context, cartID string) (*cart.Cart, error) {
	c, err := s.carts.Update(ctx, cartID, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordCartMutation("clear")
	return c, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":               started,
		"largeDatasetThreshold": s.threshold,
		"maxTopLimit":           s.maxTopLimit,
		"refreshInterval":       s.refreshInterval.String(),
		"carts":                 s.carts.Count(ctx),
		"idempotencyKeys":       s.deduper.Size(),
		"catalogLoaded":         false,
	}

	if store, ok := s.loadedStore(); ok {
		_, loadedAt := store.Loaded()
		snap := store.Snapshot()
		n := store.Count(ctx)
		stats["catalogLoaded"] = true
		stats["loadedAt"] = loadedAt.UTC().Format(time.RFC3339)
		stats["products"] = n
		stats["categories"] = len(snap.Categories)
		stats["minPrice"] = snap.MinPrice
		stats["maxPrice"] = snap.MaxPrice
		stats["rankingStrategy"] = string(s.engine.StrategyFor(n))
	}

	return stats
}
