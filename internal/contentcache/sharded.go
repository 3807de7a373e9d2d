package contentcache

import (
	"hash/fnv"
	"time"

	"intenserp-api/internal/markdown"
)

// ShardedMemoryCache splits the keyspace across independent LRU stores so
// concurrent snapshot polls do not contend on one lock.
type ShardedMemoryCache struct {
	shards []*lruStore
}

func NewShardedMemoryCache(maxEntries int, ttl time.Duration, shardCount int) *ShardedMemoryCache {
	if shardCount <= 0 {
		shardCount = 16
	}
	if maxEntries < 0 {
		maxEntries = 0
	}

	entriesPerShard := maxEntries / shardCount
	if entriesPerShard == 0 {
		entriesPerShard = 1
	}

	shards := make([]*lruStore, shardCount)
	for i := range shards {
		shards[i] = newLRUStore(entriesPerShard, ttl)
	}
	return &ShardedMemoryCache{shards: shards}
}

func (c *ShardedMemoryCache) shard(key string) *lruStore {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

func (c *ShardedMemoryCache) Get(key string) (markdown.CacheEntry, bool) {
	if c == nil {
		return markdown.CacheEntry{}, false
	}
	return c.shard(key).get(key)
}

func (c *ShardedMemoryCache) Put(key string, entry markdown.CacheEntry) {
	if c == nil {
		return
	}
	c.shard(key).put(key, entry)
}
