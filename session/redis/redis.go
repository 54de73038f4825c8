// Package redis provides the best-effort cache tier on Redis, implementing
// core.Cache. Failures here are absorbed by the session store; losing the
// Redis connection degrades the system to durable-only operation without
// surfacing errors to callers.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fixado/dialog/core"
)

// Cache is a core.Cache backed by Redis. Keys are namespaced with a prefix
// (default "dialog:sess:") so one Redis instance can serve several
// deployments.
type Cache struct {
	client *redis.Client
	prefix string
}

var _ core.Cache = (*Cache)(nil)

// Options configures the Redis cache tier.
type Options struct {
	// Prefix namespaces every key. Defaults to "dialog:sess:".
	Prefix string
}

// New creates a Cache over an existing Redis client.
func New(client *redis.Client, optFns ...func(o *Options)) *Cache {
	opts := Options{Prefix: "dialog:sess:"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Cache{client: client, prefix: opts.Prefix}
}

// Dial connects to addr and returns a Cache over the new client. The
// connection is verified with a short ping so misconfiguration shows up at
// startup rather than as silent cache misses.
func Dial(ctx context.Context, addr string, optFns ...func(o *Options)) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(client, optFns...), nil
}

func (c *Cache) key(id string) string { return c.prefix + id }

// SetWithTTL implements core.Cache.
func (c *Cache) SetWithTTL(ctx context.Context, key string, blob []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), blob, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get implements core.Cache, translating redis.Nil into core.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return blob, nil
}

// Delete implements core.Cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Cache) Close() error { return c.client.Close() }
