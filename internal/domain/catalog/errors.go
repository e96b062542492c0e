package catalog

import "errors"

// Sentinel kinds for catalog query errors.
var (
	ErrUnknownSort   = errors.New("unknown sort order")
	ErrInvalidFilter = errors.New("invalid filter")
)
