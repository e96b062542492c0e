package api

import (
	"errors"
	"net/http"

	"github.com/okian/storefront/internal/adapters/repository"
	"github.com/okian/storefront/internal/adapters/upstream"
	"github.com/okian/storefront/internal/domain/cart"
	"github.com/okian/storefront/internal/domain/catalog"
	"github.com/okian/storefront/internal/domain/dedupe"
	"github.com/okian/storefront/internal/domain/ranking"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// OpError records the API operation that failed, an optional kind used
// for status mapping, and the underlying cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op
	}
}

func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op. Nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// WrapKind annotates err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// classify maps an error to a status code and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ranking.ErrInvalidWeights),
		errors.Is(err, ranking.ErrInvalidLimit),
		errors.Is(err, catalog.ErrUnknownSort),
		errors.Is(err, catalog.ErrInvalidFilter),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, repository.ErrInvalidRange):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, upstream.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, dedupe.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, upstream.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
