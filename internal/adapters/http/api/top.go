package api

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/okian/storefront/internal/domain/ranking"
)

// TopHandler serves the product ranking.
type TopHandler struct {
	deps     TopDependencies
	maxLimit int
}

// NewTopHandler creates a new ranking handler.
func NewTopHandler(deps TopDependencies, maxLimit int) *TopHandler {
	return &TopHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleTop handles GET /products/top?ratingWeight=&priceWeight=&preferHigherPrice=&limit=.
// Omitted parameters keep the configured defaults.
func (h *TopHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_top_products"
	q := r.URL.Query()

	limit, hasLimit, err := intParam(q, "limit")
	switch {
	case err != nil:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case hasLimit && limit < 0:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("limit must not be negative, got %d", limit)))
		return
	case hasLimit && h.maxLimit > 0 && limit > h.maxLimit:
		writeError(w, http.StatusBadRequest, "limit_exceeded", WrapKind(op, ErrBadRequest, fmt.Errorf("limit %d exceeds maximum %d", limit, h.maxLimit)))
		return
	}

	opts, err := rankingOptions(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if hasLimit {
		opts = append(opts, ranking.WithLimit(limit))
	}

	items, err := h.deps.TopProducts(r.Context(), opts...)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func rankingOptions(q url.Values) ([]ranking.Option, error) {
	var opts []ranking.Option
	if v, ok, err := floatParam(q, "ratingWeight"); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, ranking.WithRatingWeight(v))
	}
	if v, ok, err := floatParam(q, "priceWeight"); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, ranking.WithPriceWeight(v))
	}
	if v, ok, err := boolParam(q, "preferHigherPrice"); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, ranking.WithPreferHigherPrice(v))
	}
	return opts, nil
}
