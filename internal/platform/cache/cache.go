// Package cache provides an in-memory LRU cache with per-entry TTL.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 1024

// Stats reports cache effectiveness.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
	Size      int
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	element   *list.Element
}

// LRU is a fixed-capacity cache. The least recently used entry is evicted
// when a new key is inserted at capacity. It is safe for concurrent use.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*entry[V]
	order    *list.List // front = most recently used
	stats    Stats
	now      func() time.Time
}

// New creates a cache holding at most capacity entries.
func New[V any](capacity int) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[V]{
		capacity: capacity,
		items:    make(map[string]*entry[V]),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the value stored under key. Expired entries count as misses
// and are removed.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	if c.expired(e) {
		c.remove(e)
		c.stats.Misses++
		return zero, false
	}
	c.order.MoveToFront(e.element)
	c.stats.Hits++
	return e.value, true
}

// Set stores value under key. A ttl of 0 never expires.
func (c *LRU[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(e.element)
		return
	}

	if len(c.items) >= c.capacity {
		if back := c.order.Back(); back != nil {
			c.remove(back.Value.(*entry[V]))
			c.stats.Evictions++
		}
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	e.element = c.order.PushFront(e)
	c.items[key] = e
}

// Delete removes key if present.
func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.remove(e)
	}
}

// Purge removes every entry and resets the counters.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry[V])
	c.order.Init()
	c.stats = Stats{}
}

// PurgeExpired removes expired entries and returns how many were removed.
func (c *LRU[V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for _, e := range c.items {
		if c.expired(e) {
			c.remove(e)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.items)
	return s
}

func (c *LRU[V]) expired(e *entry[V]) bool {
	return !e.expiresAt.IsZero() && c.now().After(e.expiresAt)
}

// remove must be called with c.mu held.
func (c *LRU[V]) remove(e *entry[V]) {
	delete(c.items, e.key)
	c.order.Remove(e.element)
}
