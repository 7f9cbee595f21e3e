package insight

import (
	"sync"
	"sync/atomic"
)

// Cache stores insights by key. Implementations must be safe for concurrent
// use.
type Cache interface {
	Get(key Key) (Insight, bool, error)
	Put(key Key, in Insight) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu     sync.RWMutex
	items  map[string]Insight
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: map[string]Insight{}}
}

func (c *MemoryCache) Get(key Key) (Insight, bool, error) {
	c.mu.RLock()
	in, ok := c.items[key.Digest()]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return in, ok, nil
}

func (c *MemoryCache) Put(key Key, in Insight) error {
	c.mu.Lock()
	c.items[key.Digest()] = in
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached insights.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns hit and miss counts.
func (c *MemoryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
