package netease

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(maxSize int, ttl time.Duration) (*responseCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := newResponseCache(maxSize, ttl)
	cache.now = clock.now
	return cache, clock
}

func TestResponseCache_GetSet(t *testing.T) {
	cache, _ := newTestCache(10, time.Hour)

	cache.set("key1", "value1")
	value, ok := cache.get("key1")
	if !ok || value != "value1" {
		t.Errorf("Expected 'value1', got %v (ok=%v)", value, ok)
	}

	if _, ok := cache.get("nonexistent"); ok {
		t.Error("Expected miss for nonexistent key")
	}
}

func TestResponseCache_Expiration(t *testing.T) {
	cache, clock := newTestCache(10, time.Minute)

	cache.set("key1", "value1")
	clock.t = clock.t.Add(59 * time.Second)
	if _, ok := cache.get("key1"); !ok {
		t.Error("Expected hit before expiry")
	}

	clock.t = clock.t.Add(time.Second)
	if _, ok := cache.get("key1"); ok {
		t.Error("Expected miss at expiry")
	}
	if cache.stats().Size != 0 {
		t.Errorf("Expected expired entry removed, size=%d", cache.stats().Size)
	}
}

func TestResponseCache_LRUEviction(t *testing.T) {
	cache, _ := newTestCache(3, time.Hour)

	cache.set("key1", 1)
	cache.set("key2", 2)
	cache.set("key3", 3)

	// key1 becomes most recently used, so key2 is evicted next.
	cache.get("key1")
	cache.set("key4", 4)

	if _, ok := cache.get("key2"); ok {
		t.Error("Expected key2 to be evicted")
	}
	for _, key := range []string{"key1", "key3", "key4"} {
		if _, ok := cache.get(key); !ok {
			t.Errorf("Expected %s to be present", key)
		}
	}
	if got := cache.stats().Evictions; got != 1 {
		t.Errorf("Expected 1 eviction, got %d", got)
	}
}

func TestResponseCache_UpdateExisting(t *testing.T) {
	cache, _ := newTestCache(2, time.Hour)
	cache.set("key1", "a")
	cache.set("key1", "b")

	if value, _ := cache.get("key1"); value != "b" {
		t.Errorf("Expected 'b', got %v", value)
	}
	if cache.stats().Size != 1 {
		t.Errorf("Expected size 1, got %d", cache.stats().Size)
	}
}

func TestResponseCache_Disabled(t *testing.T) {
	cache, _ := newTestCache(0, time.Hour)
	cache.set("key1", "value1")
	if _, ok := cache.get("key1"); ok {
		t.Error("Expected disabled cache to never hit")
	}
}

func TestResponseCache_StatsAndClear(t *testing.T) {
	cache, _ := newTestCache(10, time.Hour)
	cache.set("key1", "value1")
	cache.get("key1")
	cache.get("key1")
	cache.get("missing")

	stats := cache.stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("Expected 2 hits and 1 miss, got %d and %d", stats.Hits, stats.Misses)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Errorf("Expected hit rate ~0.667, got %f", stats.HitRate)
	}

	cache.clear()
	if cache.stats().Size != 0 {
		t.Errorf("Expected empty cache after clear, got %d", cache.stats().Size)
	}
}

func TestResponseCache_PurgeExpired(t *testing.T) {
	cache, clock := newTestCache(10, time.Minute)
	cache.set("old", 1)
	clock.t = clock.t.Add(30 * time.Second)
	cache.set("new", 2)
	clock.t = clock.t.Add(45 * time.Second)

	if removed := cache.purgeExpired(); removed != 1 {
		t.Errorf("Expected 1 purged entry, got %d", removed)
	}
	if _, ok := cache.get("new"); !ok {
		t.Error("Expected unexpired entry to survive purge")
	}
}

func TestResponseCache_StopCleanupTwice(t *testing.T) {
	cache, _ := newTestCache(10, time.Minute)
	cache.startCleanup(time.Millisecond)
	cache.stopCleanup()
	cache.stopCleanup()
}
