// Package infra provides shared infrastructure components used across
// the application. Currently a keyed, TTL-bounded memo cache.
package infra

import (
	"sync"
	"time"
)

// CacheEntry holds a cached value with expiration.
type CacheEntry struct {
	Value     any
	ExpiresAt time.Time
}

// Cache is a thread-safe in-memory cache with TTL and an optional size bound.
// A ttl <= 0 keeps entries until they are evicted or flushed.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]CacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewCache creates a new cache with the given default TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithMaxEntries bounds the cache; the entry closest to expiry is evicted first.
func (c *Cache) WithMaxEntries(n int) *Cache {
	c.mu.Lock()
	c.maxEntries = n
	c.mu.Unlock()
	return c
}

// Get retrieves a value from the cache. Returns nil, false if not found or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.expired(entry) {
		return nil, false
	}
	return entry.Value, true
}

// Set stores a value in the cache with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value in the cache with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = CacheEntry{
		Value:     value,
		ExpiresAt: expires,
	}
}

// Flush removes all entries from the cache.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]CacheEntry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries. Can be called periodically.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	for k, v := range c.entries {
		if c.expired(v) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

func (c *Cache) expired(e CacheEntry) bool {
	return !e.ExpiresAt.IsZero() && c.now().After(e.ExpiresAt)
}

// evictLocked drops expired entries, or failing that the one expiring soonest.
// Entries without expiry count as expiring last. Must be called with mu held.
func (c *Cache) evictLocked() {
	victim := ""
	var earliest time.Time
	for k, v := range c.entries {
		if c.expired(v) {
			delete(c.entries, k)
			continue
		}
		if victim == "" || expiresBefore(v.ExpiresAt, earliest) {
			victim, earliest = k, v.ExpiresAt
		}
	}
	if len(c.entries) >= c.maxEntries {
		delete(c.entries, victim)
	}
}

func expiresBefore(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	return b.IsZero() || a.Before(b)
}
