package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

var _ cart.Storage = (*Slots)(nil)

// Slots implements cart.Storage on the cart_slots table.
type Slots struct {
	pool *pgxpool.Pool
}

// NewSlots returns Slots backed by pool.
func NewSlots(pool *pgxpool.Pool) *Slots {
	return &Slots{pool: pool}
}

const loadSlot = `SELECT value FROM cart_slots WHERE key = $1`

// Load returns the slot value, or cart.ErrNotFound.
func (s *Slots) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	if err := s.pool.QueryRow(ctx, loadSlot, key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("loading slot %q: %w", key, err)
	}
	return data, nil
}

const saveSlot = `
INSERT INTO cart_slots (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

// Save upserts the slot. data must be a JSON document.
func (s *Slots) Save(ctx context.Context, key string, data []byte) error {
	if _, err := s.pool.Exec(ctx, saveSlot, key, data); err != nil {
		return fmt.Errorf("saving slot %q: %w", key, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Slots) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
