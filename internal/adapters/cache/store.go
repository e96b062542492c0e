// Package cache keeps upstream catalog responses in a shared key-value store
// so restarts and replicas do not hammer the remote catalog.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented key-value cache.
type Store interface {
	// Get returns ErrMiss when key is not present.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate deletes every key starting with prefix and reports how many went.
	Invalidate(ctx context.Context, prefix string) (int64, error)
	Close() error
}

// NoopStore never holds anything. It stands in when no Redis is configured.
type NoopStore struct{}

var _ Store = NoopStore{}

func (NoopStore) Get(context.Context, string) ([]byte, error)             { return nil, ErrMiss }
func (NoopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NoopStore) Invalidate(context.Context, string) (int64, error)        { return 0, nil }
func (NoopStore) Close() error                                              { return nil }
