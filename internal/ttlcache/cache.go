// Package ttlcache is a concurrency-safe key/value map where every entry
// carries its own absolute expiry. Expired entries stay readable through Peek
// until Sweep removes them.
package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	now     func() time.Time
	entries map[K]entry[V]
}

func New[K comparable, V any](now func() time.Time) *Cache[K, V] {
	if now == nil {
		now = time.Now
	}

	return &Cache[K, V]{now: now, entries: map[K]entry[V]{}}
}

// Put stores value under key, replacing any previous entry and resetting its
// expiry to now+ttl. A non-positive ttl stores an entry that never expires.
func (c *Cache[K, V]) Put(key K, value V, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// Get returns the value only while it is live.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.expired(now) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Peek returns the stored value regardless of expiry and whether it has
// lapsed.
func (c *Cache[K, V]) Peek(key K) (value V, expired bool, ok bool) {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return value, false, false
	}
	return e.value, e.expired(now), true
}

func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// Sweep removes every entry whose expiry is at or before now and returns the
// removed keys. Sweeping twice at the same instant removes nothing the second
// time.
func (c *Cache[K, V]) Sweep(now time.Time) []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []K
	for key, e := range c.entries {
		if e.expired(now) {
			removed = append(removed, key)
			delete(c.entries, key)
		}
	}
	return removed
}

// DeleteIfExpired removes key only if its entry has lapsed at now and returns
// the removed value.
func (c *Cache[K, V]) DeleteIfExpired(key K, now time.Time) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.expired(now) {
		var zero V
		return zero, false
	}
	delete(c.entries, key)
	return e.value, true
}

// Entries copies every stored entry, including lapsed ones not yet swept.
func (c *Cache[K, V]) Entries() map[K]V {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[K]V, len(c.entries))
	for key, e := range c.entries {
		out[key] = e.value
	}
	return out
}

func (c *Cache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]K, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
