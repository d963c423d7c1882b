package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	IDs   []string `json:"ids"`
	Total int      `json:"total"`
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl, "appointix", zerolog.Nop()), mr
}

func TestCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	var out page
	assert.False(t, c.Get(ctx, "doctors:20:0", &out))

	c.Set(ctx, "doctors:20:0", page{IDs: []string{"a", "b"}, Total: 2})
	assert.True(t, mr.Exists("appointix:doctors:20:0"))

	require.True(t, c.Get(ctx, "doctors:20:0", &out))
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, []string{"a", "b"}, out.IDs)
}

func TestCache_Expires(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "doctors:20:0", page{Total: 1})
	mr.FastForward(2 * time.Minute)

	var out page
	assert.False(t, c.Get(ctx, "doctors:20:0", &out))
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "doctors:20:0", page{Total: 1})
	c.Set(ctx, "doctors:20:20", page{Total: 1})
	c.Set(ctx, "other", page{Total: 1})

	c.InvalidatePrefix(ctx, "doctors:")

	assert.False(t, mr.Exists("appointix:doctors:20:0"))
	assert.False(t, mr.Exists("appointix:doctors:20:20"))
	assert.True(t, mr.Exists("appointix:other"))
}

func TestCache_UndecodableEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set("appointix:doctors:20:0", "not json"))

	var out page
	assert.False(t, c.Get(context.Background(), "doctors:20:0", &out))
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	var out page

	c.Set(ctx, "k", page{})
	c.InvalidatePrefix(ctx, "k")
	assert.False(t, c.Get(ctx, "k", &out))
	assert.NoError(t, c.Ping(ctx))
}

func TestCache_RedisDownIsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	c := New(client, time.Minute, "appointix", zerolog.Nop())

	var out page
	assert.False(t, c.Get(context.Background(), "doctors:20:0", &out))
	assert.Error(t, c.Ping(context.Background()))
}
