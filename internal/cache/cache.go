// Package cache implements the bounded, TTL-based result cache shared
// by the tool layer: hover/signature/definition/symbol lookups key off
// a canonical parameter tuple and get invalidated per-file when an
// edit lands.
package cache

import (
	"sync"
	"time"
)

// entry pairs a cached value with its expiration time.
type entry struct {
	value     any
	expiresAt time.Time
	inserted  time.Time
}

// Cache is a generic, bounded, TTL cache with a per-file invalidation
// index. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int

	entries map[string]*entry
	// byFile maps a file URI to the set of cache keys whose value
	// depends on that file's content, so an edit can drop exactly the
	// affected entries instead of flushing everything.
	byFile map[string]map[string]struct{}
	// insertOrder tracks insertion sequence for earliest-evict.
	insertOrder []string
}

// New builds a Cache with the given TTL and maximum entry count.
func New(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*entry),
		byFile:  make(map[string]map[string]struct{}),
	}
}

// Get returns the cached value for key if present and unexpired.
// Expiration is sampled opportunistically here rather than via a
// background sweep.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeLocked(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, associating it with files for
// per-file invalidation. Inserting above maxSize evicts the
// earliest-inserted entry.
func (c *Cache) Set(key string, value any, files ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	c.entries[key] = &entry{value: value, expiresAt: time.Now().Add(c.ttl), inserted: time.Now()}
	c.insertOrder = append(c.insertOrder, key)
	for _, f := range files {
		if c.byFile[f] == nil {
			c.byFile[f] = make(map[string]struct{})
		}
		c.byFile[f][key] = struct{}{}
	}
}

// InvalidateFile drops every cache entry associated with uri.
func (c *Cache) InvalidateFile(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.byFile[uri]
	for key := range keys {
		c.removeLocked(key)
	}
	delete(c.byFile, uri)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.byFile = make(map[string]map[string]struct{})
	c.insertOrder = nil
}

// Len reports the current entry count (including not-yet-swept
// expired entries).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	for _, keys := range c.byFile {
		delete(keys, key)
	}
}

func (c *Cache) evictOldestLocked() {
	for len(c.insertOrder) > 0 {
		oldest := c.insertOrder[0]
		c.insertOrder = c.insertOrder[1:]
		if _, ok := c.entries[oldest]; ok {
			c.removeLocked(oldest)
			return
		}
	}
}
