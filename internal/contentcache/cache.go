// Package contentcache caches converted Markdown keyed by snapshot hash.
// Repeated polls of an unchanged response body hit the cache instead of the
// HTML pipeline.
package contentcache

import (
	"fmt"
	"sync/atomic"
	"time"

	"intenserp-api/internal/config"
	"intenserp-api/internal/markdown"
)

// New builds the cache selected by cache.mode, wrapped with hit/miss
// counting. An unknown mode is an error rather than a silent fallback.
func New(cfg *config.Store, stats *Stats) (markdown.Cache, error) {
	size := cfg.GetInt("cache.size", 100)
	ttl := time.Duration(cfg.GetInt("cache.ttl_seconds", 3600)) * time.Second

	var backend markdown.Cache
	mode := cfg.GetString("cache.mode", "memory")
	switch mode {
	case "memory":
		backend = NewMemoryCache(size, ttl)
	case "sharded":
		backend = NewShardedMemoryCache(size, ttl, cfg.GetInt("cache.shards", 16))
	case "redis":
		redisCache := NewRedisCache(
			cfg.GetString("cache.redis_addr", ""),
			cfg.GetString("cache.redis_password", ""),
			cfg.GetInt("cache.redis_db", 0),
			ttl,
			cfg.GetString("cache.redis_prefix", ""),
		)
		if redisCache == nil {
			return nil, fmt.Errorf("cache.mode is redis but cache.redis_addr is empty")
		}
		backend = redisCache
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache.mode %q", mode)
	}

	return NewInstrumentedCache(backend, stats), nil
}

// Stats counts cache outcomes with atomics so the hot path takes no lock.
type Stats struct {
	hits   uint64
	misses uint64
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) Hit() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.hits, 1)
}

func (s *Stats) Miss() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.misses, 1)
}

func (s *Stats) Snapshot() (hits, misses uint64) {
	if s == nil {
		return 0, 0
	}
	return atomic.LoadUint64(&s.hits), atomic.LoadUint64(&s.misses)
}
