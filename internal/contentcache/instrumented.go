package contentcache

import (
	"intenserp-api/internal/markdown"
	"intenserp-api/internal/metrics"
)

// InstrumentedCache records hit/miss counts around any backend.
type InstrumentedCache struct {
	cache markdown.Cache
	stats *Stats
}

func NewInstrumentedCache(cache markdown.Cache, stats *Stats) *InstrumentedCache {
	if cache == nil {
		return nil
	}
	return &InstrumentedCache{cache: cache, stats: stats}
}

func (c *InstrumentedCache) Get(key string) (markdown.CacheEntry, bool) {
	if c == nil || c.cache == nil {
		return markdown.CacheEntry{}, false
	}
	entry, ok := c.cache.Get(key)
	if ok {
		c.stats.Hit()
		metrics.CacheOperations.WithLabelValues("hit").Inc()
		return entry, true
	}
	c.stats.Miss()
	metrics.CacheOperations.WithLabelValues("miss").Inc()
	return markdown.CacheEntry{}, false
}

func (c *InstrumentedCache) Put(key string, entry markdown.CacheEntry) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Put(key, entry)
}
