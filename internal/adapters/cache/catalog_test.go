package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithLevel("error"))
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Invalidate(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Close() error { return nil }

type brokenStore struct{ NoopStore }

var errBroken = errors.New("connection refused")

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errBroken }
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errBroken
}

type countingSource struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (s *countingSource) wait() {
	if s.release != nil {
		<-s.release
	}
}

func (s *countingSource) Products(context.Context) ([]product.Product, error) {
	s.calls.Add(1)
	s.wait()
	if s.err != nil {
		return nil, s.err
	}
	return []product.Product{{ID: 1, Title: "A", Price: 10}, {ID: 2, Title: "B", Price: 20}}, nil
}

func (s *countingSource) Product(_ context.Context, id int) (product.Product, error) {
	s.calls.Add(1)
	if s.err != nil {
		return product.Product{}, s.err
	}
	return product.Product{ID: id, Title: "P"}, nil
}

func (s *countingSource) Categories(context.Context) ([]string, error) {
	s.calls.Add(1)
	return []string{"electronics"}, nil
}

func (s *countingSource) ProductsByCategory(_ context.Context, category string) ([]product.Product, error) {
	s.calls.Add(1)
	return []product.Product{{ID: 3, Category: category}}, nil
}

func TestCatalog_HitAndMiss(t *testing.T) {
	Convey("Given a cached catalog over a counting source", t, func() {
		src := &countingSource{}
		store := newMemStore()
		c := NewCatalog(src, store, WithTTL(time.Minute))
		ctx := context.Background()

		Convey("When products are requested twice", func() {
			first, err := c.Products(ctx)
			So(err, ShouldBeNil)
			second, err := c.Products(ctx)
			So(err, ShouldBeNil)

			Convey("Then the source should be hit once and results should match", func() {
				So(src.calls.Load(), ShouldEqual, 1)
				So(second, ShouldResemble, first)
				So(store.ttls[KeyPrefix+"products"], ShouldEqual, time.Minute)
			})
		})

		Convey("When different keys are requested", func() {
			_, _ = c.Product(ctx, 1)
			_, _ = c.Product(ctx, 2)
			_, _ = c.Product(ctx, 1)
			_, _ = c.Categories(ctx)
			items, err := c.ProductsByCategory(ctx, "jewelery")

			So(err, ShouldBeNil)
			So(items[0].Category, ShouldEqual, "jewelery")
			So(src.calls.Load(), ShouldEqual, 4)
		})

		Convey("When the cache is invalidated", func() {
			_, _ = c.Products(ctx)
			So(c.Invalidate(ctx), ShouldBeNil)
			_, _ = c.Products(ctx)

			So(src.calls.Load(), ShouldEqual, 2)
		})
	})
}

func TestCatalog_ErrorsAreNotCached(t *testing.T) {
	Convey("Given a failing source", t, func() {
		src := &countingSource{err: errors.New("upstream down")}
		store := newMemStore()
		c := NewCatalog(src, store)

		_, err := c.Product(context.Background(), 5)
		So(err, ShouldNotBeNil)
		_, err = c.Product(context.Background(), 5)
		So(err, ShouldNotBeNil)

		So(src.calls.Load(), ShouldEqual, 2)
		So(store.data, ShouldBeEmpty)
	})
}

func TestCatalog_DegradesWhenStoreFails(t *testing.T) {
	Convey("Given a store that always errors", t, func() {
		src := &countingSource{}
		c := NewCatalog(src, brokenStore{})

		items, err := c.Products(context.Background())

		Convey("Then the source should still answer", func() {
			So(err, ShouldBeNil)
			So(len(items), ShouldEqual, 2)
		})
	})

	Convey("Given no store at all", t, func() {
		src := &countingSource{}
		c := NewCatalog(src, nil)
		_, _ = c.Categories(context.Background())
		_, _ = c.Categories(context.Background())
		So(src.calls.Load(), ShouldEqual, 2)
	})
}

func TestCatalog_CollapsesConcurrentMisses(t *testing.T) {
	Convey("Given a slow source", t, func() {
		src := &countingSource{release: make(chan struct{})}
		c := NewCatalog(src, newMemStore())

		var wg sync.WaitGroup
		results := make([][]product.Product, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = c.Products(context.Background())
			}(i)
		}
		time.Sleep(100 * time.Millisecond)
		close(src.release)
		wg.Wait()

		Convey("Then one upstream call should serve every caller", func() {
			So(src.calls.Load(), ShouldEqual, 1)
			for _, r := range results {
				So(len(r), ShouldEqual, 2)
			}
		})
	})
}
