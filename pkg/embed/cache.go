package embed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// VectorStore is the persistent tier of the cache. Implemented by the SQLite
// store; a nil store leaves the cache memory-only.
type VectorStore interface {
	GetVector(ctx context.Context, key string) ([]float64, bool, error)
	PutVector(ctx context.Context, key string, vec []float64) error
}

// Cache is a two-tier (memory + store) embedding cache keyed by string.
// Keys are content-addressed for topics and id-addressed for posts, so a
// changed topic definition simply misses under its new key; stale entries
// age out of the LRU and are never read again.
//
// Safe for concurrent use. Concurrent requests for the same key are
// collapsed into a single upstream call.
type Cache struct {
	embedder Embedder
	store    VectorStore
	mem      *lru.Cache[string, []float64]
	group    singleflight.Group
}

// NewCache creates a cache in front of an embedder. size is the memory-tier
// capacity; store may be nil.
func NewCache(embedder Embedder, store VectorStore, size int) (*Cache, error) {
	if size <= 0 {
		size = 4096
	}
	mem, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{embedder: embedder, store: store, mem: mem}, nil
}

// GetOrCompute returns the vector for key, computing it from text via the
// embedder only on a full miss. Exactly one upstream call is made per key
// even under concurrent access.
func (c *Cache) GetOrCompute(ctx context.Context, key, text string) ([]float64, error) {
	if vec, ok := c.mem.Get(key); ok {
		return vec, nil
	}

	out, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check after winning the flight; a peer may have filled it.
		if vec, ok := c.mem.Get(key); ok {
			return vec, nil
		}

		if c.store != nil {
			vec, ok, err := c.store.GetVector(ctx, key)
			if err == nil && ok {
				c.mem.Add(key, vec)
				return vec, nil
			}
			// A store read error is not fatal: fall through to recompute.
		}

		vec, err := c.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}

		c.mem.Add(key, vec)
		if c.store != nil {
			if err := c.store.PutVector(ctx, key, vec); err != nil {
				// Losing a persistent write only costs a future recompute.
				return vec, nil
			}
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]float64), nil
}

// Contains reports whether key is present in the memory tier.
func (c *Cache) Contains(key string) bool {
	return c.mem.Contains(key)
}

// Len returns the number of vectors held in memory.
func (c *Cache) Len() int {
	return c.mem.Len()
}
