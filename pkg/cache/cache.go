// Package cache implements C5: a bounded, TTL-expiring cache of aggregated
// scan results, keyed by content identity so that a file mutation reliably
// invalidates its entry.
package cache

import (
	"sync"
	"time"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
)

// Key identifies a cache entry. Size and LastWriteTime participate in the
// key (rather than being validated on lookup) so that a mismatch is simply a
// different key and therefore a natural miss — a file mutation invalidates
// its entry without any special-cased comparison logic.
type Key struct {
	SHA256        string
	Size          int64
	LastWriteTime time.Time
}

type entry struct {
	result    scan.AggregatedResult
	expiresAt time.Time
	insertedAt time.Time
}

// Cache is a bounded, TTL-expiring cache of AggregatedResult, safe for
// concurrent use.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[Key]*entry
}

// New creates a cache with the given time-to-live and maximum entry count.
func New(ttl time.Duration, capacity int) *Cache {
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[Key]*entry),
	}
}

// Store records result under key, evicting the oldest entry by insertion
// time if the cache is at capacity.
func (c *Cache) Store(key Key, result scan.AggregatedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity && c.capacity > 0 {
		c.evictOldestLocked()
	}

	c.entries[key] = &entry{
		result:     result.Clone(),
		expiresAt:  now.Add(c.ttl),
		insertedAt: now,
	}
}

// evictOldestLocked removes the entry with the earliest insertion time. The
// caller must hold c.mu.
func (c *Cache) evictOldestLocked() {
	var oldestKey Key
	var oldestTime time.Time
	first := true
	for key, e := range c.entries {
		if first || e.insertedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.insertedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// TryGet returns a deep clone of the cached result for key, if present and
// not expired. The returned value is independent: mutating it never
// influences what a subsequent TryGet returns.
func (c *Cache) TryGet(key Key) (scan.AggregatedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return scan.AggregatedResult{}, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return scan.AggregatedResult{}, false
	}
	return e.result.Clone(), true
}

// Len returns the current number of entries, including expired entries that
// have not yet been removed by a TryGet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
