package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/storefront/internal/domain/cart"
	"github.com/okian/storefront/pkg/metrics"
)

// CartStore keeps carts in memory keyed by random UUIDs. Carts handed out
// are copies; changes go through Update.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string]*cart.Cart
}

// NewCartStore returns an empty store.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]*cart.Cart)}
}

// Create makes an empty cart and returns its id.
func (s *CartStore) Create(_ context.Context) (string, *cart.Cart) {
	id := uuid.NewString()
	c := cart.New()

	s.mu.Lock()
	s.carts[id] = c
	n := len(s.carts)
	s.mu.Unlock()

	metrics.UpdateCartsActive(n)
	return id, c.Clone()
}

// Get returns a copy of the cart.
func (s *CartStore) Get(_ context.Context, id string) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, id)
	}
	return c.Clone(), nil
}

// Update applies fn to a working copy and stores it only if fn succeeds,
// so a failed mutation leaves the cart untouched.
func (s *CartStore) Update(_ context.Context, id string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, id)
	}
	work := c.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	s.carts[id] = work
	return work.Clone(), nil
}

// Delete removes the cart.
func (s *CartStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.carts[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCartNotFound, id)
	}
	delete(s.carts, id)
	n := len(s.carts)
	s.mu.Unlock()

	metrics.UpdateCartsActive(n)
	return nil
}

// Count returns the number of live carts.
func (s *CartStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts)
}
