package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/storefront/internal/domain/cart"
)

// IdempotencyHeader carries the client token that makes an add apply once.
const IdempotencyHeader = "Idempotency-Key"

// CartsHandler serves cart endpoints.
type CartsHandler struct {
	deps CartDependencies
}

// NewCartsHandler creates a new carts handler.
func NewCartsHandler(deps CartDependencies) *CartsHandler {
	return &CartsHandler{deps: deps}
}

// cartResponse is a cart with its id.
type cartResponse struct {
	ID string `json:"id"`
	*cart.Cart
}

// addItemRequest is the body of POST /carts/{id}/items. Quantity defaults to 1.
type addItemRequest struct {
	ProductID *int `json:"productId"`
	Quantity  *int `json:"quantity"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

// HandleCreate handles POST /carts.
func (h *CartsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, c := h.deps.CreateCart(r.Context())
	writeJSON(w, http.StatusCreated, cartResponse{ID: id, Cart: c})
}

// HandleGet handles GET /carts/{id}.
func (h *CartsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, err := h.deps.Cart(r.Context(), id)
	if err != nil {
		writeFailure(w, "api.get_cart", err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{ID: id, Cart: c})
}

// HandleDelete handles DELETE /carts/{id}.
func (h *CartsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteCart(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, "api.delete_cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddItem handles POST /carts/{id}/items. A repeated Idempotency-Key
// for the same cart yields 409 and leaves the cart unchanged.
func (h *CartsHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_cart_item"
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.ProductID == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing productId")))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	id := r.PathValue("id")
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	c, err := h.deps.AddItem(r.Context(), id, *req.ProductID, quantity, key)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{ID: id, Cart: c})
}

// HandleSetQuantity handles PUT /carts/{id}/items/{productID}. Zero removes the line.
func (h *CartsHandler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_cart_item"
	productID, err := pathInt(r.PathValue("productID"), "productID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var req quantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing quantity")))
		return
	}

	id := r.PathValue("id")
	c, err := h.deps.SetItemQuantity(r.Context(), id, productID, *req.Quantity)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{ID: id, Cart: c})
}

// HandleRemoveItem handles DELETE /carts/{id}/items/{productID}.
func (h *CartsHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_cart_item"
	productID, err := pathInt(r.PathValue("productID"), "productID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	id := r.PathValue("id")
	c, err := h.deps.RemoveItem(r.Context(), id, productID)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{ID: id, Cart: c})
}

// HandleClear handles DELETE /carts/{id}/items.
func (h *CartsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, err := h.deps.ClearCart(r.Context(), id)
	if err != nil {
		writeFailure(w, "api.clear_cart", err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{ID: id, Cart: c})
}
