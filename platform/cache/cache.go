// Package cache provides a generic bounded key-value store with per-entry
// TTL. This is part of the platform layer and contains no business logic.
//
// Each concern owns a named instance with its own size and TTL so a hot
// cache cannot evict another concern's entries.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a bounded in-process TTL cache. At capacity, Set evicts the
// single oldest-inserted entry (insertion order, not LRU). Expired entries
// are removed lazily on read; Prune removes them eagerly for housekeeping.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache bounded to maxSize entries with the given per-entry TTL.
func New[T any](maxSize int, ttl time.Duration) *Cache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (c *Cache[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the value for key if present and not expired. An expired
// entry is removed and reported as absent.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.removeLocked(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the cache's TTL. When the cache is at
// capacity and key is new, the oldest-inserted entry is evicted first.
func (c *Cache[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with an entry-specific TTL.
func (c *Cache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxSize {
			c.removeLocked(c.order[0])
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = entry[T]{value: value, expiresAt: c.now().Add(ttl)}
}

// SetNX stores value only if key holds no live entry, returning whether
// the write won. Check and write happen under one lock so concurrent
// callers cannot both win.
func (c *Cache[T]) SetNX(key string, value T, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if !c.now().After(e.expiresAt) {
			return false
		}
		c.removeLocked(key)
	}
	if len(c.entries) >= c.maxSize {
		c.removeLocked(c.order[0])
	}
	c.order = append(c.order, key)
	c.entries[key] = entry[T]{value: value, expiresAt: c.now().Add(ttl)}
	return true
}

// Has reports whether key holds a live entry.
func (c *Cache[T]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key if present.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
	c.order = c.order[:0]
}

// Len returns the number of stored entries, including any not yet lazily expired.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Prune eagerly removes all expired entries. Housekeeping only; correctness
// relies on the lazy expiry in Get.
func (c *Cache[T]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

func (c *Cache[T]) removeLocked(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
