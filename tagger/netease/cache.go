package netease

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// CacheStats holds response cache statistics.
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	HitRate   float64 `json:"hit_rate"`
}

type cacheEntry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// responseCache is a thread-safe TTL cache with LRU eviction for catalog
// responses. Values are stored as returned and must be treated as read-only.
type responseCache struct {
	mu        sync.Mutex
	entries   map[string]*list.Element
	order     *list.List // front is most recently used
	maxSize   int
	ttl       time.Duration
	now       func() time.Time
	hits      int64
	misses    int64
	evictions int64

	stop     chan struct{}
	stopOnce sync.Once
}

func newResponseCache(maxSize int, ttl time.Duration) *responseCache {
	return &responseCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// enabled is false when the cache was configured with no capacity or TTL.
func (c *responseCache) enabled() bool {
	return c.maxSize > 0 && c.ttl > 0
}

func (c *responseCache) get(key string) (interface{}, bool) {
	if !c.enabled() {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if !c.now().Before(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	c.order.MoveToFront(elem)
	atomic.AddInt64(&c.hits, 1)
	return entry.value, true
}

func (c *responseCache) set(key string, value interface{}) {
	if !c.enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	for len(c.entries) >= c.maxSize {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.order.Remove(back)
		delete(c.entries, back.Value.(*cacheEntry).key)
		atomic.AddInt64(&c.evictions, 1)
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value, expiresAt: expiresAt})
}

func (c *responseCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

func (c *responseCache) stats() CacheStats {
	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{
		Hits:      hits,
		Misses:    misses,
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      size,
		MaxSize:   c.maxSize,
		HitRate:   rate,
	}
}

// startCleanup purges expired entries every interval until stopCleanup.
func (c *responseCache) startCleanup(interval time.Duration) {
	if interval <= 0 || !c.enabled() {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.purgeExpired()
			}
		}
	}()
}

func (c *responseCache) stopCleanup() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *responseCache) purgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*cacheEntry)
		if !now.Before(entry.expiresAt) {
			c.order.Remove(elem)
			delete(c.entries, entry.key)
			removed++
		}
		elem = prev
	}
	return removed
}
