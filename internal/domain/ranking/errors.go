package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrInvalidWeights = errors.New("invalid ranking weights")
	ErrInvalidLimit   = errors.New("invalid ranking limit")
)
