// Package cache provides a TTL response cache for the generation cascade.
// It is an explicit, injectable component rather than a module-level
// singleton, and takes an injectable clock so tests can control expiry.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long cached responses remain valid by default.
const DefaultTTL = 5 * time.Minute

type entry struct {
	value     string
	createdAt time.Time
}

// Cache is a thread-safe TTL cache mapping request keys to responses.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	max     int
	now     func() time.Time

	hits   int
	misses int
}

// Option configures the cache.
type Option func(*Cache)

// WithClock replaces the time source. Useful for testing expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMaxEntries caps the cache size. When exceeded, the oldest entry is
// evicted. Zero means unlimited.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.max = n
	}
}

// New creates a cache with the given TTL. A non-positive TTL falls back
// to DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key if present and not expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.createdAt) >= c.ttl {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return "", false
	}
	c.hits++
	return e.value, true
}

// Set stores a value for key.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.max > 0 && len(c.entries) >= c.max {
		if _, exists := c.entries[key]; !exists {
			c.evictOldest()
		}
	}

	c.entries[key] = entry{value: value, createdAt: c.now()}
}

// Clear removes all entries and resets statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.hits = 0
	c.misses = 0
}

// Stats returns hit/miss counts.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Len returns the number of entries, including any not yet expired-swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
