package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is the report cache validity window.
const DefaultTTL = 5 * time.Minute

type entry struct {
	value    any
	storedAt time.Time
}

// ReportCache is a process-local TTL cache for report query results.
// Keys are composed from the full set of query parameters that affect the
// result (report name, date range, metric). Constructed once and passed to
// the query layer; write paths that change underlying data must call
// Invalidate rather than wait for TTL expiry.
type ReportCache struct {
	entries map[string]entry
	ttl     time.Duration
	mu      sync.RWMutex
	now     func() time.Time
}

// NewReportCache creates a ReportCache with the given TTL.
func NewReportCache(ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReportCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key joins query parameters into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, "|")
}

// Get returns the cached value for key if it exists and is fresher than
// the TTL.
func (c *ReportCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

// Put stores a value under key with the current timestamp.
func (c *ReportCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
}

// GetOrCompute returns the cached value for key, or calls compute, caches
// the result and returns it. A compute error is returned as-is and nothing
// is cached.
func (c *ReportCache) GetOrCompute(key string, compute func() (any, error)) (any, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := compute()
	if err != nil {
		return nil, err
	}
	c.Put(key, value)
	return value, nil
}

// Invalidate removes all entries whose key starts with prefix. An empty
// prefix clears the whole cache.
func (c *ReportCache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Size returns the current number of cached entries, including expired
// ones not yet overwritten.
func (c *ReportCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
