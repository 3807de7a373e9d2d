package contentcache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"intenserp-api/internal/markdown"
)

// RedisCache shares converted snapshots across relay instances pointed at
// the same browser session pool.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(addr, password string, db int, ttl time.Duration, prefix string) *RedisCache {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	if prefix == "" {
		prefix = "intenserp:markdown:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}
}

func (c *RedisCache) Get(key string) (markdown.CacheEntry, bool) {
	if c == nil || c.client == nil {
		return markdown.CacheEntry{}, false
	}

	value, err := c.client.Get(context.Background(), c.prefix+key).Result()
	if err != nil {
		return markdown.CacheEntry{}, false
	}

	var entry markdown.CacheEntry
	if err := json.Unmarshal([]byte(value), &entry); err != nil {
		return markdown.CacheEntry{}, false
	}
	return entry, true
}

func (c *RedisCache) Put(key string, entry markdown.CacheEntry) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	_ = c.client.Set(context.Background(), c.prefix+key, data, ttl).Err()
}
