package dedupe

import "errors"

// ErrDuplicate reports a mutation whose idempotency key was already applied.
var ErrDuplicate = errors.New("duplicate request")
