// Package memory implements cart slot storage in process memory.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

var _ cart.Storage = (*Storage)(nil)

// Storage keeps slots in a map. Data does not survive a restart.
type Storage struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{slots: make(map[string][]byte)}
}

// Load returns a copy of the slot, or cart.ErrNotFound.
func (s *Storage) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return slices.Clone(v), nil
}

// Save replaces the slot.
func (s *Storage) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = slices.Clone(data)
	return nil
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error { return nil }
