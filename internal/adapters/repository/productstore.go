package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/storefront/internal/domain/catalog"
	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/pkg/metrics"
)

const defaultSnapshotInterval = time.Second

// Snapshot is an immutable view derived from the store. Readers get it
// without taking the store lock.
type Snapshot struct {
	Categories []string
	ByCategory map[string][]int
	MinPrice   float64
	MaxPrice   float64
	Count      int
	BuiltAt    time.Time
}

// ProductStore keeps the catalog in memory: an ID map for lookups, the
// load order for listings and a treap for price range queries.
type ProductStore struct {
	mu       sync.RWMutex
	root     *node
	byID     map[int]product.Product
	pos      map[int]int // id -> index in order
	order    []int
	loaded   bool
	loadedAt time.Time
	dirty    bool

	snapshotInterval time.Duration
	snapshot         atomic.Pointer[Snapshot]

	wg        sync.WaitGroup
	stopChan  chan struct{}
	closeOnce sync.Once
}

// NewProductStore builds an empty store and starts the snapshot publisher,
// which stops on ctx cancellation or Close.
func NewProductStore(ctx context.Context, opts ...Option) *ProductStore {
	s := &ProductStore{
		snapshotInterval: defaultSnapshotInterval,
		byID:             make(map[int]product.Product),
		pos:              make(map[int]int),
		stopChan:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(&Snapshot{ByCategory: map[string][]int{}, Categories: []string{}})
	s.startPeriodicSnapshots(ctx)
	return s
}

func (s *ProductStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.mu.RLock()
				dirty := s.dirty
				s.mu.RUnlock()
				if dirty {
					s.publishSnapshot()
				}
			}
		}
	}()
}

// Close stops the snapshot publisher. Safe to call more than once.
func (s *ProductStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Replace swaps the whole catalog and publishes a fresh snapshot.
// Duplicate ids keep the last occurrence at the first position.
func (s *ProductStore) Replace(_ context.Context, items []product.Product) {
	byID := make(map[int]product.Product, len(items))
	pos := make(map[int]int, len(items))
	order := make([]int, 0, len(items))
	var root *node
	for i := range items {
		p := items[i]
		if old, ok := byID[p.ID]; ok {
			root = deleteNode(root, old.Price, pos[p.ID])
		} else {
			pos[p.ID] = len(order)
			order = append(order, p.ID)
		}
		byID[p.ID] = p
		root = insert(root, p.ID, p.Price, pos[p.ID])
	}

	s.mu.Lock()
	s.root, s.byID, s.pos, s.order = root, byID, pos, order
	s.loaded = true
	s.loadedAt = time.Now()
	s.dirty = true
	s.mu.Unlock()

	s.publishSnapshot()
}

// Upsert inserts or replaces a single product. New products go to the end
// of the listing order. The snapshot catches up on the next tick.
func (s *ProductStore) Upsert(_ context.Context, p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[p.ID]; ok {
		s.root = deleteNode(s.root, old.Price, s.pos[p.ID])
	} else {
		s.pos[p.ID] = len(s.order)
		s.order = append(s.order, p.ID)
	}
	s.byID[p.ID] = p
	s.root = insert(s.root, p.ID, p.Price, s.pos[p.ID])
	s.dirty = true
}

// Get returns the product with id or ErrNotFound.
func (s *ProductStore) Get(_ context.Context, id int) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return product.Product{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return p, nil
}

// All returns every product in load order. The slice is a copy.
func (s *ProductStore) All(_ context.Context) []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]product.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// ByIDs returns the products for ids, skipping unknown ones.
func (s *ProductStore) ByIDs(_ context.Context, ids []int) []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// PriceRange returns products priced within [lo, hi] from cheapest to most
// expensive, equal prices in listing order. Nil bounds are open.
func (s *ProductStore) PriceRange(_ context.Context, lo, hi *float64) ([]product.Product, error) {
	low, high := math.Inf(-1), math.Inf(1)
	if lo != nil {
		low = *lo
	}
	if hi != nil {
		high = *hi
	}
	if math.IsNaN(low) || math.IsNaN(high) || low > high {
		return nil, fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, low, high)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]product.Product, 0)
	collectRange(s.root, low, high, s.byID, &out)
	return out, nil
}

// Count returns the number of products.
func (s *ProductStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Loaded reports whether Replace has run at least once, and when it last did.
func (s *ProductStore) Loaded() (bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded, s.loadedAt
}

// Snapshot returns the latest published snapshot. Never nil.
func (s *ProductStore) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

func (s *ProductStore) publishSnapshot() {
	start := time.Now()

	s.mu.Lock()
	items := make([]product.Product, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, s.byID[id])
	}
	s.dirty = false
	s.mu.Unlock()

	snap := &Snapshot{
		Categories: catalog.Categories(items),
		ByCategory: make(map[string][]int),
		Count:      len(items),
		BuiltAt:    time.Now(),
	}
	for i := range items {
		p := &items[i]
		snap.ByCategory[p.Category] = append(snap.ByCategory[p.Category], p.ID)
		if i == 0 || p.Price < snap.MinPrice {
			snap.MinPrice = p.Price
		}
		if i == 0 || p.Price > snap.MaxPrice {
			snap.MaxPrice = p.Price
		}
	}
	s.snapshot.Store(snap)

	metrics.RecordSnapshotDuration(float64(time.Since(start).Microseconds()) / 1000)
}
