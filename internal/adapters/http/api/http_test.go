package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/storefront/internal/adapters/http/api"
	"github.com/okian/storefront/internal/adapters/repository"
	"github.com/okian/storefront/internal/adapters/upstream"
	"github.com/okian/storefront/internal/domain/cart"
	"github.com/okian/storefront/internal/domain/catalog"
	"github.com/okian/storefront/internal/domain/dedupe"
	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies ranks and filters a fixed catalog and keeps carts in a map.
type mockDependencies struct {
	items      []product.Product
	carts      map[string]*cart.Cart
	seenKeys   map[string]bool
	lastFilter catalog.Filter
	lastOrder  catalog.SortOrder
	lastOpts   ranking.Options
	refreshErr error
	refreshed  int
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		items: []product.Product{
			{ID: 1, Title: "A", Category: "x", Price: 10, Rating: product.Rating{Rate: 4}},
			{ID: 2, Title: "B", Category: "y", Price: 50, Rating: product.Rating{Rate: 5}},
			{ID: 3, Title: "C", Category: "x", Price: 10, Rating: product.Rating{Rate: 3}},
		},
		carts:    make(map[string]*cart.Cart),
		seenKeys: make(map[string]bool),
	}
}

func (m *mockDependencies) ListProducts(_ context.Context, f catalog.Filter, order catalog.SortOrder) ([]product.Product, error) {
	m.lastFilter, m.lastOrder = f, order
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return catalog.Sort(catalog.Apply(m.items, f), order)
}

func (m *mockDependencies) Product(_ context.Context, id int) (product.Product, error) {
	if p, ok := catalog.Find(m.items, id); ok {
		return p, nil
	}
	return product.Product{}, fmt.Errorf("%w: %d", repository.ErrNotFound, id)
}

func (m *mockDependencies) Categories(context.Context) ([]string, error) {
	return catalog.Categories(m.items), nil
}

func (m *mockDependencies) Search(_ context.Context, query string) ([]product.Product, error) {
	return catalog.Search(m.items, query), nil
}

func (m *mockDependencies) TopProducts(_ context.Context, opts ...ranking.Option) ([]product.Product, error) {
	m.lastOpts = ranking.DefaultOptions()
	for _, opt := range opts {
		opt(&m.lastOpts)
	}
	return ranking.TopProducts(m.items, opts...)
}

func (m *mockDependencies) ForceRefresh(context.Context) error {
	m.refreshed++
	return m.refreshErr
}

func (m *mockDependencies) CreateCart(context.Context) (string, *cart.Cart) {
	id := fmt.Sprintf("cart-%d", len(m.carts)+1)
	m.carts[id] = cart.New()
	return id, m.carts[id].Clone()
}

func (m *mockDependencies) cart(id string) (*cart.Cart, error) {
	c, ok := m.carts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrCartNotFound, id)
	}
	return c, nil
}

func (m *mockDependencies) Cart(_ context.Context, id string) (*cart.Cart, error) {
	c, err := m.cart(id)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

func (m *mockDependencies) DeleteCart(_ context.Context, id string) error {
	if _, err := m.cart(id); err != nil {
		return err
	}
	delete(m.carts, id)
	return nil
}

func (m *mockDependencies) AddItem(ctx context.Context, cartID string, productID, quantity int, key string) (*cart.Cart, error) {
	if key != "" {
		if m.seenKeys[cartID+":"+key] {
			return nil, dedupe.ErrDuplicate
		}
		m.seenKeys[cartID+":"+key] = true
	}
	c, err := m.cart(cartID)
	if err != nil {
		return nil, err
	}
	p, err := m.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := c.Add(p, quantity); err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

func (m *mockDependencies) SetItemQuantity(_ context.Context, cartID string, productID, quantity int) (*cart.Cart, error) {
	c, err := m.cart(cartID)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateQuantity(productID, quantity); err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

func (m *mockDependencies) RemoveItem(_ context.Context, cartID string, productID int) (*cart.Cart, error) {
	c, err := m.cart(cartID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(productID) {
		return nil, cart.ErrItemNotFound
	}
	return c.Clone(), nil
}

func (m *mockDependencies) ClearCart(_ context.Context, cartID string) (*cart.Cart, error) {
	c, err := m.cart(cartID)
	if err != nil {
		return nil, err
	}
	c.Clear()
	return c.Clone(), nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, 5)
	mux := http.NewServeMux()
	server.Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeIDs(w *httptest.ResponseRecorder) []int {
	var items []product.Product
	So(json.Unmarshal(w.Body.Bytes(), &items), ShouldBeNil)
	return product.IDs(items)
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDependencies())

		Convey("Then the health endpoint should expose metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint should return JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then a wrong method should be rejected", func() {
			w := do(mux, http.MethodPost, "/products", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestTopHandler(t *testing.T) {
	Convey("Given the ranking endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When no parameters are given", func() {
			w := do(mux, http.MethodGet, "/products/top", "")

			Convey("Then the default ranking should be returned without scores", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeIDs(w), ShouldResemble, []int{1, 3, 2})
				So(w.Body.String(), ShouldNotContainSubstring, "score")
			})
		})

		Convey("When every parameter is given", func() {
			w := do(mux, http.MethodGet, "/products/top?ratingWeight=0&priceWeight=1&preferHigherPrice=true&limit=1", "")

			Convey("Then they should reach the ranking", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeIDs(w), ShouldResemble, []int{2})
				So(deps.lastOpts, ShouldResemble, ranking.Options{RatingWeight: 0, PriceWeight: 1, PreferHigherPrice: true, Limit: 1})
			})
		})

		Convey("When limit is zero", func() {
			w := do(mux, http.MethodGet, "/products/top?limit=0", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When limit exceeds the maximum", func() {
			w := do(mux, http.MethodGet, "/products/top?limit=6", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When parameters are malformed", func() {
			for _, q := range []string{"limit=-1", "limit=ten", "ratingWeight=abc", "priceWeight=NaN", "preferHigherPrice=maybe"} {
				w := do(mux, http.MethodGet, "/products/top?"+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When both weights are zero", func() {
			w := do(mux, http.MethodGet, "/products/top?ratingWeight=0&priceWeight=0", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "bad_request")
		})
	})
}

func TestProductsHandler(t *testing.T) {
	Convey("Given the catalog endpoints", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When listing with filters and a sort", func() {
			w := do(mux, http.MethodGet, "/products?category=x&minPrice=5&maxPrice=20&sort=rating", "")

			Convey("Then the query should be parsed into a filter", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeIDs(w), ShouldResemble, []int{1, 3})
				So(deps.lastFilter.Category, ShouldEqual, "x")
				So(*deps.lastFilter.MinPrice, ShouldEqual, 5)
				So(*deps.lastFilter.MaxPrice, ShouldEqual, 20)
				So(deps.lastOrder, ShouldEqual, catalog.SortRating)
			})
		})

		Convey("When the sort is unknown or bounds are invalid", func() {
			So(do(mux, http.MethodGet, "/products?sort=newest", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/products?minPrice=x", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/products?minPrice=30&maxPrice=10", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When fetching a product", func() {
			w := do(mux, http.MethodGet, "/products/2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"title":"B"`)

			So(do(mux, http.MethodGet, "/products/99", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/products/abc", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When listing categories and searching", func() {
			w := do(mux, http.MethodGet, "/categories", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, `["x","y"]`)

			w = do(mux, http.MethodGet, "/search?q=b", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeIDs(w), ShouldResemble, []int{2})
		})

		Convey("When refreshing the catalog", func() {
			w := do(mux, http.MethodPost, "/catalog/refresh", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.refreshed, ShouldEqual, 1)

			Convey("And the upstream fails", func() {
				deps.refreshErr = fmt.Errorf("refresh catalog: %w", upstream.ErrUpstream)
				w := do(mux, http.MethodPost, "/catalog/refresh", "")
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(decodeError(w)["code"], ShouldEqual, "upstream_error")
			})
		})
	})
}

func TestCartsHandler(t *testing.T) {
	Convey("Given a created cart", t, func() {
		mux := newMux(newMockDependencies())

		w := do(mux, http.MethodPost, "/carts", "")
		So(w.Code, ShouldEqual, http.StatusCreated)
		var created struct {
			ID    string      `json:"id"`
			Items []cart.Item `json:"items"`
		}
		So(json.Unmarshal(w.Body.Bytes(), &created), ShouldBeNil)
		So(created.ID, ShouldNotBeEmpty)
		So(created.Items, ShouldBeEmpty)
		base := "/carts/" + created.ID

		Convey("When adding an item", func() {
			w := do(mux, http.MethodPost, base+"/items", `{"productId":1,"quantity":2}`)

			Convey("Then the cart should carry it with totals", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"totalItems":2`)
				So(w.Body.String(), ShouldContainSubstring, `"totalPrice":20`)
			})

			Convey("Then its quantity can be changed and the line removed", func() {
				w := do(mux, http.MethodPut, base+"/items/1", `{"quantity":4}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"quantity":4`)

				w = do(mux, http.MethodDelete, base+"/items/1", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(do(mux, http.MethodDelete, base+"/items/1", "").Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then clearing should empty it", func() {
				w := do(mux, http.MethodDelete, base+"/items", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"totalItems":0`)
			})
		})

		Convey("When quantity is omitted", func() {
			w := do(mux, http.MethodPost, base+"/items", `{"productId":3}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"totalItems":1`)
		})

		Convey("When the same idempotency key is sent twice", func() {
			first := do(mux, http.MethodPost, base+"/items", `{"productId":1}`, api.IdempotencyHeader, "k1")
			second := do(mux, http.MethodPost, base+"/items", `{"productId":1}`, api.IdempotencyHeader, "k1")

			Convey("Then the replay should conflict", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(second)["code"], ShouldEqual, "duplicate")
			})
		})

		Convey("When the request is invalid", func() {
			So(do(mux, http.MethodPost, base+"/items", `{"quantity":1}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, base+"/items", `{"productId":1,"extra":true}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, base+"/items", `{"product_id":1}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, base+"/items", `not json`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, base+"/items", `{"productId":1,"quantity":0}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, base+"/items", `{"productId":99}`).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPut, base+"/items/1", `{}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPut, base+"/items/x", `{"quantity":1}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When deleting the cart", func() {
			So(do(mux, http.MethodDelete, base, "").Code, ShouldEqual, http.StatusNoContent)
			So(do(mux, http.MethodGet, base, "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodDelete, base, "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped in the metrics middleware", t, func() {
		handler := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}, "teapot")

		Convey("When it is called", func() {
			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest(http.MethodGet, "/teapot", nil))

			Convey("Then the response should pass through untouched", func() {
				So(w.Code, ShouldEqual, http.StatusTeapot)
				So(w.Body.String(), ShouldEqual, "short and stout")
			})
		})
	})
}
