package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshavthakur30/SweetShop/internal/cart"
	"github.com/keshavthakur30/SweetShop/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func sampleLines() []cart.Line {
	return []cart.Line{
		{Sweet: domain.Sweet{ID: 1, Name: "Ladoo", Price: 100, Quantity: 3}, Quantity: 2},
		{Sweet: domain.Sweet{ID: 2, Name: "Rasgulla", Price: 90, Quantity: 5}, Quantity: 1},
	}
}

func TestRedisCache_SetGetRoundtrip(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "sess-1", sampleLines()))

	got, err := c.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Sweet.ID)
	assert.Equal(t, 2, got[0].Quantity)
}

func TestRedisCache_MissOnUnknownSession(t *testing.T) {
	c, _ := setupTestRedis(t)

	_, err := c.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "sess-1", sampleLines()))
	require.NoError(t, c.Delete(ctx, "sess-1"))

	_, err := c.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_EntriesExpire(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "sess-1", sampleLines()))
	mr.FastForward(21 * time.Minute) // past baseTTL plus max jitter

	_, err := c.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_SessionsAreIsolated(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "sess-1", sampleLines()))
	require.NoError(t, c.Set(ctx, "sess-2", sampleLines()[:1]))

	one, err := c.Get(ctx, "sess-1")
	require.NoError(t, err)
	two, err := c.Get(ctx, "sess-2")
	require.NoError(t, err)

	assert.Len(t, one, 2)
	assert.Len(t, two, 1)
}
