package api

import (
	"net/http"

	"github.com/okian/storefront/internal/domain/catalog"
)

// ProductsHandler serves catalog reads and the catalog reload.
type ProductsHandler struct {
	deps interface {
		ProductDependencies
		RefreshDependencies
	}
}

// NewProductsHandler creates a new products handler.
func NewProductsHandler(deps Dependencies) *ProductsHandler {
	return &ProductsHandler{deps: deps}
}

// HandleList handles GET /products?category=&search=&minPrice=&maxPrice=&sort=.
func (h *ProductsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_products"
	q := r.URL.Query()

	order, err := catalog.ParseSortOrder(q.Get("sort"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	minPrice, err := floatPtrParam(q, "minPrice")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	maxPrice, err := floatPtrParam(q, "maxPrice")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	items, err := h.deps.ListProducts(r.Context(), catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}, order)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleGet handles GET /products/{id}.
func (h *ProductsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_product"
	id, err := pathInt(r.PathValue("id"), "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.Product(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCategories handles GET /categories.
func (h *ProductsHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.deps.Categories(r.Context())
	if err != nil {
		writeFailure(w, "api.list_categories", err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// HandleSearch handles GET /search?q=.
func (h *ProductsHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeFailure(w, "api.search", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleRefresh handles POST /catalog/refresh.
func (h *ProductsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ForceRefresh(r.Context()); err != nil {
		writeFailure(w, "api.refresh_catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "refreshed"})
}
