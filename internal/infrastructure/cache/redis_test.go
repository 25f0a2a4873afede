package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricecart/backend/internal/domain"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCacheWithClient(client), mr
}

func TestRedisCache_SetAndGet(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()

	entry := domain.CacheEntry{
		Key:       "abc",
		CreatedAt: time.Now().UTC(),
		Result: domain.PriceComparison{
			Location:      "78701",
			CheapestStore: "Walmart",
		},
	}

	err := cache.Set(ctx, "abc", entry, 1*time.Minute)
	require.NoError(t, err)

	data, err := cache.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cheapestStore":"Walmart"`)
}

func TestRedisCache_Get_CacheMiss(t *testing.T) {
	cache, _ := newTestRedisCache(t)

	_, err := cache.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	ctx := context.Background()

	err := cache.Set(ctx, "short", "value", 1*time.Second)
	require.NoError(t, err)

	// miniredis expires keys via explicit clock advance
	mr.FastForward(2 * time.Second)

	_, err = cache.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", 1*time.Minute))
	require.NoError(t, cache.Delete(ctx, "key"))

	_, err := cache.Get(ctx, "key")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestRedisCache_PurgeExpired_NoOp(t *testing.T) {
	cache, _ := newTestRedisCache(t)

	deleted, err := cache.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache("not-a-url")
	assert.Error(t, err)
}
