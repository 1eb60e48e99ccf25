// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "srchive:search:"

// RedisCache keeps search outputs in Redis for a fixed TTL. Failures are
// logged and treated as misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration

	// Scope distinguishes engines with different settings sharing one Redis.
	Scope string
}

// NewRedisCache connects to url ("redis://host:port/db").
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: redis.NewClient(opt), ttl: ttl}, nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns a cached output.
func (c *RedisCache) Get(ctx context.Context, queries []string) (Output, bool) {
	key := c.key(queries)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("search cache read failed", "error", err)
		}
		return Output{}, false
	}

	var out Output
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Warn("search cache entry unreadable", "key", key, "error", err)
		return Output{}, false
	}
	slog.Debug("search cache hit", "key", key)
	return out, true
}

// Set stores out under the query list.
func (c *RedisCache) Set(ctx context.Context, queries []string, out Output) {
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	key := c.key(queries)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("search cache write failed", "key", key, "error", err)
	}
}

// InvalidateAll drops every cached search. Ingest, retain and repair call it
// after changing the corpus.
func (c *RedisCache) InvalidateAll(ctx context.Context) (int, error) {
	iter := c.client.Scan(ctx, 0, cachePrefix+"*", 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("deleting cache keys: %w", err)
	}
	return len(keys), nil
}

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(queries []string) string {
	raw := c.Scope + "|" + strings.Join(queries, "\x1f")
	sum := sha256.Sum256([]byte(raw))
	return cachePrefix + fmt.Sprintf("%x", sum[:12])
}
