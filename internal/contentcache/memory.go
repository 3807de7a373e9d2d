package contentcache

import (
	"container/list"
	"sync"
	"time"

	"intenserp-api/internal/markdown"
)

// lruStore is one bounded LRU region with optional TTL. MemoryCache uses a
// single store; ShardedMemoryCache spreads keys across several.
type lruStore struct {
	mu         sync.RWMutex
	maxEntries int
	ttl        time.Duration
	ll         *list.List
	items      map[string]*list.Element
}

type cacheItem struct {
	key       string
	value     markdown.CacheEntry
	expiresAt time.Time
}

func newLRUStore(maxEntries int, ttl time.Duration) *lruStore {
	return &lruStore{
		maxEntries: maxEntries,
		ttl:        ttl,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

func (s *lruStore) get(key string) (markdown.CacheEntry, bool) {
	if s.maxEntries <= 0 {
		return markdown.CacheEntry{}, false
	}

	s.mu.RLock()
	el, ok := s.items[key]
	if !ok {
		s.mu.RUnlock()
		return markdown.CacheEntry{}, false
	}

	item := el.Value.(*cacheItem)
	if s.ttl > 0 && time.Now().After(item.expiresAt) {
		s.mu.RUnlock()
		s.mu.Lock()
		s.removeElement(el)
		s.mu.Unlock()
		return markdown.CacheEntry{}, false
	}

	value := item.value
	s.mu.RUnlock()

	s.mu.Lock()
	s.ll.MoveToFront(el)
	s.mu.Unlock()

	return value, true
}

func (s *lruStore) put(key string, entry markdown.CacheEntry) {
	if s.maxEntries <= 0 {
		return
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		item := el.Value.(*cacheItem)
		item.value = entry
		item.expiresAt = s.expiryTime()
		s.ll.MoveToFront(el)
		return
	}

	el := s.ll.PushFront(&cacheItem{
		key:       key,
		value:     entry,
		expiresAt: s.expiryTime(),
	})
	s.items[key] = el

	if s.ll.Len() > s.maxEntries {
		s.removeOldest()
	}
}

func (s *lruStore) expiryTime() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.ttl)
}

func (s *lruStore) removeOldest() {
	if el := s.ll.Back(); el != nil {
		s.removeElement(el)
	}
}

func (s *lruStore) removeElement(el *list.Element) {
	s.ll.Remove(el)
	delete(s.items, el.Value.(*cacheItem).key)
}

// MemoryCache is an in-process LRU with TTL expiry, suitable for a single
// relay instance.
type MemoryCache struct {
	store *lruStore
}

func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &MemoryCache{store: newLRUStore(maxEntries, ttl)}
}

func (c *MemoryCache) Get(key string) (markdown.CacheEntry, bool) {
	if c == nil {
		return markdown.CacheEntry{}, false
	}
	return c.store.get(key)
}

func (c *MemoryCache) Put(key string, entry markdown.CacheEntry) {
	if c == nil {
		return
	}
	c.store.put(key, entry)
}
