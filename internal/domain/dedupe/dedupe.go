// Package dedupe tracks idempotency keys so a cart mutation applies at most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// defaultMaxKeys bounds the key set when no size is configured.
const defaultMaxKeys = 50_000

// Deduper records seen idempotency keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a failed mutation can be retried with it.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// keySet implements Deduper with a map for lookup and a list for age order.
// In bounded mode (maxSize > 0) the oldest key is evicted once the set is full.
type keySet struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = newest
	maxSize int
}

// NewInMemoryDeduper creates an in-memory key set with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &keySet{
		maxSize: defaultMaxKeys,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

// SeenAndRecord implements Deduper.
func (d *keySet) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushFront(key)
	return false
}

// Unrecord implements Deduper.
func (d *keySet) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

// Size returns the number of keys currently tracked.
func (d *keySet) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// evictOldest drops the least recently recorded key. Caller holds d.mu.
func (d *keySet) evictOldest() {
	back := d.order.Back()
	if back == nil {
		return
	}
	d.order.Remove(back)
	delete(d.seen, back.Value.(string))
}
