// Package cache provides a thread-safe generic cache and the syntax stylesheet cache.
package cache

import "sync"

type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}


// GetOrSet returns the cached value for key, computing and storing it on a miss.
// fn runs outside the lock, so concurrent misses may compute more than once.
func (c *Cache[K, V]) GetOrSet(key K, fn func() V) V {
	if val, ok := c.Get(key); ok {
		return val
	}

	val := fn()

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.items[key]; ok {
		return existing
	}
	c.items[key] = val
	return val
}
