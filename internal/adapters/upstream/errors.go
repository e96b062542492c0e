package upstream

import "errors"

// Sentinel kinds for catalog client errors.
var (
	ErrNotFound = errors.New("catalog item not found")
	ErrUpstream = errors.New("catalog upstream error")

	errEmptyBody = errors.New("empty response body")
)
