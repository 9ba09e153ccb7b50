// Package swcache is the offline cache layer: bounded response caches
// plus the request router that picks a serving strategy per request
// class.
package swcache

import (
	"net/http"
	"sync"
	"time"
)

// Standard cache names. The daemon creates all four at startup; CACHE_URLS
// control requests land in the dynamic cache.
const (
	CacheShell   = "app-shell"
	CacheImages  = "images"
	CacheAPI     = "api"
	CacheDynamic = "dynamic"
)

// Default entry limits per cache. The shell cache is unbounded because it
// holds a fixed precache list.
const (
	DefaultImageLimit   = 100
	DefaultAPILimit     = 30
	DefaultDynamicLimit = 50
)

// Entry is one cached response snapshot.
type Entry struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
}

// BoundedCache stores response snapshots keyed by URL path, bounded by
// entry count. Eviction is strictly by insertion order: when the cache is
// full, the oldest-inserted entries go first. Re-putting an existing key
// replaces the value but keeps the key's original position, so a
// frequently-refreshed entry gains no protection from eviction.
type BoundedCache struct {
	name  string
	limit int // 0 means unbounded

	mu      sync.Mutex
	order   []string
	entries map[string]*Entry
}

// NewBoundedCache creates an empty cache. limit <= 0 disables eviction.
func NewBoundedCache(name string, limit int) *BoundedCache {
	return &BoundedCache{
		name:    name,
		limit:   limit,
		entries: make(map[string]*Entry),
	}
}

// Name returns the cache's name.
func (c *BoundedCache) Name() string { return c.name }

// Get returns the entry for key, or nil.
func (c *BoundedCache) Get(key string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

// Put stores an entry, evicting oldest-inserted keys if the limit is
// exceeded.
func (c *BoundedCache) Put(key string, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = e

	if c.limit <= 0 {
		return
	}
	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Delete removes key if present.
func (c *BoundedCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the current entry count.
func (c *BoundedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the keys in insertion order.
func (c *BoundedCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Clear drops every entry.
func (c *BoundedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.entries = make(map[string]*Entry)
}

// Manager owns the named caches.
type Manager struct {
	mu     sync.Mutex
	caches map[string]*BoundedCache
}

// NewManager creates a Manager with no caches.
func NewManager() *Manager {
	return &Manager{caches: make(map[string]*BoundedCache)}
}

// Cache returns the named cache, creating it with limit if absent. The
// limit of an existing cache is never changed.
func (m *Manager) Cache(name string, limit int) *BoundedCache {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.caches[name]; ok {
		return c
	}
	c := NewBoundedCache(name, limit)
	m.caches[name] = c
	return c
}

// Status returns the entry count of every cache.
func (m *Manager) Status() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int, len(m.caches))
	for name, c := range m.caches {
		out[name] = c.Len()
	}
	return out
}

// ClearAll empties every cache without removing the caches themselves.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.caches {
		c.Clear()
	}
}
