// Package cache is a small JSON cache over Redis. A nil *Cache is valid and
// never hits, so callers need no branching when Redis is not configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// New wraps client. Keys are namespaced under prefix.
func New(client *redis.Client, ttl time.Duration, prefix string, logger zerolog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, prefix: prefix, logger: logger}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func (c *Cache) key(k string) string {
	return c.prefix + ":" + k
}

// Get decodes the value at key into out and reports whether it was found.
// Redis errors are logged and treated as a miss.
func (c *Cache) Get(ctx context.Context, key string, out interface{}) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry undecodable")
		return false
	}
	return true
}

// Set stores val at key with the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, val interface{}) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// InvalidatePrefix deletes every key that starts with prefix.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if !c.enabled() {
		return
	}
	iter := c.client.Scan(ctx, 0, c.key(prefix)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Str("prefix", prefix).Msg("cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Str("prefix", prefix).Msg("cache invalidate failed")
	}
}

// Ping reports Redis liveness. A disabled cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
