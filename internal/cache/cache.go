// Package cache provides a generic, thread-safe TTL cache used to memoize
// embeddings and pairwise scores. Entries expire independently; expired
// entries are dropped lazily on read and swept by a background janitor.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// TTL is a time-to-live cache keyed by string. Writes are idempotent:
// concurrent writers racing on the same key may safely overwrite each other
// because cached values are deterministic functions of the key.
type TTL[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]*entry[V]
	stats Stats

	shutdown chan struct{}
	once     sync.Once
}

// NewTTL creates a TTL cache. A background janitor sweeps expired entries
// every cleanupInterval; Close stops it.
func NewTTL[V any](ttl, cleanupInterval time.Duration) *TTL[V] {
	c := &TTL[V]{
		ttl:      ttl,
		items:    make(map[string]*entry[V]),
		shutdown: make(chan struct{}),
	}

	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	go c.janitor(cleanupInterval)

	return c
}

func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		c.stats.miss()
		return zero, false
	}

	if item.expired(time.Now()) {
		c.mu.Lock()
		if current, still := c.items[key]; still && current.expired(time.Now()) {
			delete(c.items, key)
			c.stats.eviction()
		}
		c.mu.Unlock()

		var zero V
		c.stats.miss()
		return zero, false
	}

	c.stats.hit()
	return item.value, true
}

func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	c.items[key] = &entry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *TTL[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (c *TTL[V]) Stats() StatsSnapshot {
	return c.stats.snapshot()
}

// Close stops the background janitor. The cache stays usable afterwards;
// expired entries are then only dropped lazily on read.
func (c *TTL[V]) Close() {
	c.once.Do(func() { close(c.shutdown) })
}

func (c *TTL[V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *TTL[V]) sweep() {
	now := time.Now()

	c.mu.Lock()
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
			c.stats.eviction()
		}
	}
	c.mu.Unlock()
}
