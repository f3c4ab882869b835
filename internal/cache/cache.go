package cache

import (
	"sync"
	"time"

	"filmsage-backend/internal/metrics"
)

// sweepEvery is the number of writes between full expiry sweeps.
const sweepEvery = 64

// Entry is a cached value together with how long ago it was stored.
type Entry[V any] struct {
	Value V
	Age   time.Duration
}

type item[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a thread-safe TTL map. Expired entries are dropped lazily on
// read and in bulk every sweepEvery writes; there is no background goroutine.
type Cache[V any] struct {
	name   string
	ttl    time.Duration
	now    func() time.Time
	mu     sync.RWMutex
	items  map[string]item[V]
	writes int
}

// New creates a cache whose entries live for ttl. name labels the
// cache lookup metric.
func New[V any](name string, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		name:  name,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]item[V]),
	}
}

// Get returns the entry for key if it has not expired.
func (c *Cache[V]) Get(key string) (Entry[V], bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if ok {
		age := c.now().Sub(it.storedAt)
		if age < c.ttl {
			metrics.CacheLookups.WithLabelValues(c.name, "hit").Inc()
			return Entry[V]{Value: it.value, Age: age}, true
		}
		c.mu.Lock()
		// Re-check: a concurrent Put may have refreshed the key.
		if cur, still := c.items[key]; still && cur.storedAt.Equal(it.storedAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
	}

	metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()
	var zero Entry[V]
	return zero, false
}

// Put stores value under key, replacing any previous entry.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = item[V]{value: value, storedAt: now}
	c.writes++
	if c.writes%sweepEvery == 0 {
		for k, it := range c.items {
			if now.Sub(it.storedAt) >= c.ttl {
				delete(c.items, k)
			}
		}
	}
}

// Len reports the number of stored entries, expired ones included until swept.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
