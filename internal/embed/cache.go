// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cached wraps a Provider with a bounded LRU of recent embeddings. It is
// safe for concurrent use.
type Cached struct {
	Provider

	mu      sync.Mutex
	maxSize int
	order   *list.List
	entries map[string]*list.Element

	hits, misses int64
}

type cacheEntry struct {
	key    string
	vector []float32
}

// WithCache returns p wrapped in an LRU holding up to size vectors. A size
// of zero or less returns p unchanged.
func WithCache(p Provider, size int) Provider {
	if size <= 0 {
		return p
	}
	return &Cached{
		Provider: p,
		maxSize:  size,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func cacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(h[:])
}

// Embed returns a cached vector or computes and stores a new one. Callers
// get their own copy.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.Model(), text)

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		c.hits++
		v := el.Value.(*cacheEntry).vector
		c.mu.Unlock()
		return append([]float32(nil), v...), nil
	}
	c.misses++
	c.mu.Unlock()

	v, err := c.Provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
	} else {
		c.entries[key] = c.order.PushFront(&cacheEntry{key: key, vector: append([]float32(nil), v...)})
		for c.order.Len() > c.maxSize {
			oldest := c.order.Back()
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	return v, nil
}

// Stats returns hit and miss counts and the current size.
func (c *Cached) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.order.Len()
}
