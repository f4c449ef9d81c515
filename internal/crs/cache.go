package crs

import (
	"fmt"
	"sync"
)

// transformCache memoizes transform results by (from, to, x, y). It keeps a
// fixed maximum size; on overflow the oldest half of the entries (by
// insertion order) is evicted in bulk before the new entry is stored. A
// simple bound, not a true LRU.
type transformCache struct {
	mu         sync.Mutex
	entries    map[string][2]float64
	order      []string
	maxEntries int
}

func newTransformCache(maxEntries int) *transformCache {
	return &transformCache{
		entries:    make(map[string][2]float64),
		maxEntries: maxEntries,
	}
}

func cacheKey(from, to string, x, y float64) string {
	return fmt.Sprintf("%s>%s:%g,%g", from, to, x, y)
}

func (c *transformCache) get(from, to string, x, y float64) ([2]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[cacheKey(from, to, x, y)]
	return v, ok
}

func (c *transformCache) put(from, to string, x, y, tx, ty float64) {
	key := cacheKey(from, to, x, y)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = [2]float64{tx, ty}
		return
	}

	if len(c.entries) >= c.maxEntries {
		half := len(c.order) / 2
		for _, old := range c.order[:half] {
			delete(c.entries, old)
		}
		c.order = append(c.order[:0], c.order[half:]...)
	}

	c.entries[key] = [2]float64{tx, ty}
	c.order = append(c.order, key)
}

func (c *transformCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][2]float64)
	c.order = nil
}

func (c *transformCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
