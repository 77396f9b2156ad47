package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

func TestStorage(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Load(ctx, "cart")
	require.ErrorIs(t, err, cart.ErrNotFound)

	data := []byte(`[{"id":"P1"}]`)
	require.NoError(t, s.Save(ctx, "cart", data))
	data[0] = 'x'

	got, err := s.Load(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"P1"}]`, string(got))

	got[0] = 'y'
	again, err := s.Load(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"P1"}]`, string(again))
	assert.NoError(t, s.Ping(ctx))
}
