// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/storefront/internal/domain/cart"
	"github.com/okian/storefront/internal/domain/catalog"
	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/internal/domain/ranking"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ProductDependencies defines the catalog read operations.
type ProductDependencies interface {
	ListProducts(ctx context.Context, f catalog.Filter, order catalog.SortOrder) ([]product.Product, error)
	Product(ctx context.Context, id int) (product.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Search(ctx context.Context, query string) ([]product.Product, error)
}

// TopDependencies defines the ranking operation.
type TopDependencies interface {
	TopProducts(ctx context.Context, opts ...ranking.Option) ([]product.Product, error)
}

// CartDependencies defines the cart operations.
type CartDependencies interface {
	CreateCart(ctx context.Context) (string, *cart.Cart)
	Cart(ctx context.Context, id string) (*cart.Cart, error)
	DeleteCart(ctx context.Context, id string) error
	AddItem(ctx context.Context, cartID string, productID, quantity int, idempotencyKey string) (*cart.Cart, error)
	SetItemQuantity(ctx context.Context, cartID string, productID, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, cartID string, productID int) (*cart.Cart, error)
	ClearCart(ctx context.Context, cartID string) (*cart.Cart, error)
}

// RefreshDependencies defines the catalog reload operation.
type RefreshDependencies interface {
	ForceRefresh(ctx context.Context) error
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ProductDependencies
	TopDependencies
	CartDependencies
	RefreshDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	productsHandler *ProductsHandler
	topHandler      *TopHandler
	cartsHandler    *CartsHandler
}

// NewServer creates a new API server with all handlers. maxTopLimit caps
// the limit accepted by GET /products/top.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxTopLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		productsHandler: NewProductsHandler(deps),
		topHandler:      NewTopHandler(deps, maxTopLimit),
		cartsHandler:    NewCartsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /products", MetricsMiddleware(s.productsHandler.HandleList, "products"))
	mux.HandleFunc("GET /products/top", MetricsMiddleware(s.topHandler.HandleTop, "products_top"))
	mux.HandleFunc("GET /products/{id}", MetricsMiddleware(s.productsHandler.HandleGet, "product"))
	mux.HandleFunc("GET /categories", MetricsMiddleware(s.productsHandler.HandleCategories, "categories"))
	mux.HandleFunc("GET /search", MetricsMiddleware(s.productsHandler.HandleSearch, "search"))
	mux.HandleFunc("POST /catalog/refresh", MetricsMiddleware(s.productsHandler.HandleRefresh, "catalog_refresh"))

	mux.HandleFunc("POST /carts", MetricsMiddleware(s.cartsHandler.HandleCreate, "carts"))
	mux.HandleFunc("GET /carts/{id}", MetricsMiddleware(s.cartsHandler.HandleGet, "cart"))
	mux.HandleFunc("DELETE /carts/{id}", MetricsMiddleware(s.cartsHandler.HandleDelete, "cart"))
	mux.HandleFunc("POST /carts/{id}/items", MetricsMiddleware(s.cartsHandler.HandleAddItem, "cart_items"))
	mux.HandleFunc("DELETE /carts/{id}/items", MetricsMiddleware(s.cartsHandler.HandleClear, "cart_items"))
	mux.HandleFunc("PUT /carts/{id}/items/{productID}", MetricsMiddleware(s.cartsHandler.HandleSetQuantity, "cart_item"))
	mux.HandleFunc("DELETE /carts/{id}/items/{productID}", MetricsMiddleware(s.cartsHandler.HandleRemoveItem, "cart_item"))
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status from the error chain.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, Wrap(op, err))
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}
