// Package paycache remembers which agent keys have already been verified
// paid so the hot path can skip the verify service. Entries are positive
// only; a missing entry just means "ask again".
package paycache

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultCapacity bounds the number of remembered keys.
	DefaultCapacity = 1000

	// DefaultTTL is how long a verified key stays paid without re-checking.
	DefaultTTL = 10 * time.Minute

	sweepInterval = time.Minute
)

// Cache is a bounded TTL set of paid agent keys. Eviction is FIFO on
// insertion time; reads never reorder entries. Safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	order    *list.List // front = newest insert
	capacity int
	ttl      time.Duration

	stopSweep chan struct{}
	sweepDone chan struct{}
}

type entry struct {
	key        string
	insertedAt time.Time
	element    *list.Element
}

// New returns a cache with the default capacity and TTL and a background
// sweeper running. Call Stop when the owning gate shuts down.
func New() *Cache {
	return NewWithConfig(DefaultCapacity, DefaultTTL)
}

// NewWithConfig returns a cache with explicit bounds.
func NewWithConfig(capacity int, ttl time.Duration) *Cache {
	c := &Cache{
		entries:   make(map[string]*entry),
		order:     list.New(),
		capacity:  capacity,
		ttl:       ttl,
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get reports whether key is cached as paid. Entries older than the TTL
// read as absent regardless of whether the sweeper has run.
func (c *Cache) Get(key string) bool {
	now := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	return now.Sub(e.insertedAt) <= c.ttl
}

// Set marks key as paid. Inserting at capacity evicts the oldest entry
// first so the bound is never exceeded. Re-inserting an existing key
// refreshes its timestamp and insertion position.
func (c *Cache) Set(key string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.insertedAt = now
		c.order.MoveToFront(e.element)
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	e := &entry{key: key, insertedAt: now}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
}

// Len returns the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictOldest removes the entry with the earliest insertion time.
// Caller must hold the write lock.
func (c *Cache) evictOldest() {
	element := c.order.Back()
	if element == nil {
		return
	}
	e := element.Value.(*entry)
	c.order.Remove(element)
	delete(c.entries, e.key)
}

// sweep periodically drops expired entries. Correctness does not depend on
// it; Get already treats stale entries as absent.
func (c *Cache) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	defer close(c.sweepDone)

	for {
		select {
		case <-c.stopSweep:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			var stale []*entry
			for _, e := range c.entries {
				if now.Sub(e.insertedAt) > c.ttl {
					stale = append(stale, e)
				}
			}
			for _, e := range stale {
				c.order.Remove(e.element)
				delete(c.entries, e.key)
			}
			c.mu.Unlock()
		}
	}
}

// Stop terminates the background sweeper.
func (c *Cache) Stop() {
	close(c.stopSweep)
	<-c.sweepDone
}
