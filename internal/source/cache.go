package source

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize holds every kind of one layout with room to spare.
const DefaultCacheSize = 32

// Cache memoises fetched payloads by reference.
type Cache struct {
	next  Fetcher
	items *lru.Cache[string, []byte]
}

// NewCache wraps next with an LRU of the given size.
func NewCache(next Fetcher, size int) (*Cache, error) {
	if next == nil {
		return nil, fmt.Errorf("cache requires a fetcher")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	items, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create source cache: %w", err)
	}
	return &Cache{next: next, items: items}, nil
}

// Fetch serves ref from the cache, fetching on a miss. Errors are not cached.
func (c *Cache) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if data, ok := c.items.Get(ref); ok {
		return data, nil
	}
	data, err := c.next.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	c.items.Add(ref, data)
	return data, nil
}

// Invalidate drops ref from the cache.
func (c *Cache) Invalidate(ref string) {
	c.items.Remove(ref)
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.items.Purge()
}

// Len reports how many payloads are cached.
func (c *Cache) Len() int {
	return c.items.Len()
}

// Upstream returns the uncached fetcher.
func (c *Cache) Upstream() Fetcher {
	return c.next
}
