// Package cache provides the process-wide memoization service used to avoid
// re-running the workbook load and rainfall scrape on every request. It is an
// explicit injected object rather than package-level state, with a
// configurable default TTL.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the entry lifetime used when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// Entry holds a cached value with its expiration.
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

// Cache is a thread-safe in-memory key→value store with TTL. Expired entries
// are treated as misses on read and reaped by Cleanup.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	group   singleflight.Group
}

// New creates a cache with the given default TTL; DefaultTTL when zero.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
	}
}

// TTL returns the cache's default entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get retrieves a value. Returns nil, false if absent or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Value, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
}

// Invalidate removes a key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Flush removes all entries.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
}

// Cleanup removes expired entries. Can be called periodically.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	now := time.Now()
	for k, v := range c.entries {
		if now.After(v.ExpiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// GetOrCompute returns the cached value for key, invoking compute on a miss
// and storing the result with the given TTL. Concurrent misses on the same
// key are collapsed into a single compute call; the recompute itself is
// idempotent, so a stale duplicate is harmless either way. A compute error is
// returned to every waiter and nothing is cached.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: another caller may have filled the entry between the
		// miss above and acquiring the flight.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.SetWithTTL(key, v, ttl)
		return v, nil
	})
	return v, err
}
