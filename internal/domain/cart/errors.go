package cart

import "errors"

// Sentinel kinds for cart errors.
var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrItemNotFound    = errors.New("item not in cart")
)
