package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("product not found")
	ErrCartNotFound = errors.New("cart not found")
	ErrInvalidRange = errors.New("invalid price range")
)
