package service

import "errors"

// Service errors.
var (
	ErrNoSource   = errors.New("no catalog source configured")
	ErrNotStarted = errors.New("service not started")
)
