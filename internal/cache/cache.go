// Package cache holds read-through caches for catalog reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache stores JSON-encodable values under string keys. All keys share one
// generation; Invalidate moves to the next generation so older entries are
// never read again and expire on their own.
type Cache interface {
	// Get decodes the value stored under key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores v under key.
	Set(ctx context.Context, key string, v any) error
	// Invalidate drops every entry.
	Invalidate(ctx context.Context) error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any) error         { return nil }
func (Nop) Invalidate(context.Context) error               { return nil }

// client is the subset of *goredis.Client the cache uses.
type client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Incr(ctx context.Context, key string) *goredis.IntCmd
}

// Redis is a Cache backed by a Redis server.
type Redis struct {
	rdb    client
	prefix string
	ttl    time.Duration
}

// NewRedis returns a cache using keys under prefix with the given entry TTL.
func NewRedis(rdb client, prefix string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Dial connects to addr and checks the server responds.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (c *Redis) genKey() string { return c.prefix + ":gen" }

func (c *Redis) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Redis) key(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key)
}

func (c *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return false, err
	}
	raw, err := c.rdb.Get(ctx, c.key(gen, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (c *Redis) Set(ctx context.Context, key string, v any) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(gen, key), raw, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.genKey()).Err()
}
