package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	IDs []int64 `json:"ids"`
}

func newTestCache(t *testing.T) Cache {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := NewRedisClient(s.Addr(), "")
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, time.Minute)
}

func TestRedisCache_SetAndGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	err := c.Set(ctx, "bookings:booker:7:ALL:0:20", page{IDs: []int64{3, 2, 1}}, 7)
	require.NoError(t, err)

	var got page
	ok, err := c.Get(ctx, "bookings:booker:7:ALL:0:20", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int64{3, 2, 1}, got.IDs)
}

func TestRedisCache_GetMissingKey(t *testing.T) {
	c := newTestCache(t)

	var got page
	ok, err := c.Get(context.Background(), "bookings:booker:404:ALL:0:20", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_InvalidateIsScopedToUser(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	// Booker 7 and owner 9 share one entry; user 8 has an unrelated one.
	require.NoError(t, c.Set(ctx, "bookings:booker:7:ALL:0:20", page{IDs: []int64{1}}, 7, 9))
	require.NoError(t, c.Set(ctx, "bookings:booker:8:ALL:0:20", page{IDs: []int64{2}}, 8))

	require.NoError(t, c.Invalidate(ctx, 9))

	var got page
	ok, err := c.Get(ctx, "bookings:booker:7:ALL:0:20", &got)
	require.NoError(t, err)
	assert.False(t, ok, "entry indexed to user 9 should be gone")

	ok, err = c.Get(ctx, "bookings:booker:8:ALL:0:20", &got)
	require.NoError(t, err)
	assert.True(t, ok, "unrelated user's entry should survive")
}

func TestNoopCache(t *testing.T) {
	c := NewNoop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", page{IDs: []int64{1}}, 1))

	var got page
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Invalidate(ctx, 1))
}
