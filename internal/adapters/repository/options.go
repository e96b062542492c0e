// Package repository holds the in-memory product catalog and carts.
package repository

import "time"

// Option applies a configuration option to the ProductStore.
type Option func(*ProductStore)

// WithSnapshotInterval sets how often the read snapshot is rebuilt.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *ProductStore) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}
