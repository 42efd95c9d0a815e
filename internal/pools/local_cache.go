package pools

import (
	"context"
	"path"
	"sync"
	"sync/atomic"
	"time"
)

// LocalCache is an in-process TTL cache used when no Redis is configured.
// It tracks its own hit rate and supports glob invalidation. Expired entries
// are dropped on read and swept at most once per TTL on write.
type LocalCache struct {
	entries   map[string]localEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	hits      atomic.Int64
	misses    atomic.Int64
	mu        sync.RWMutex
}

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewLocalCache(ttl time.Duration) *LocalCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LocalCache{
		entries: make(map[string]localEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *LocalCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if now := c.now(); now.After(entry.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && now.After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.value, true
}

func (c *LocalCache) Set(key string, value []byte) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.sweepLocked(now)
	}
	c.entries[key] = localEntry{value: value, expiresAt: now.Add(c.ttl)}
}

func (c *LocalCache) sweepLocked(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.lastSweep = now
}

func (c *LocalCache) Stats(ctx context.Context) (CacheStats, error) {
	hits := c.hits.Load()
	misses := c.misses.Load()

	now := c.now()
	var keys int64
	c.mu.RLock()
	for _, entry := range c.entries {
		if !now.After(entry.expiresAt) {
			keys++
		}
	}
	c.mu.RUnlock()

	stats := CacheStats{HitRatePercent: 100, Keys: keys}
	if total := hits + misses; total > 0 {
		stats.HitRatePercent = float64(hits) / float64(total) * 100
	}
	return stats, nil
}

func (c *LocalCache) Invalidate(ctx context.Context, pattern string) (int64, error) {
	if pattern == "" {
		pattern = "*"
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int64
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}
