package cache

import (
	"sync"
	"testing"
	"time"
)

func TestLRUCache_BasicOperations(t *testing.T) {
	config := Config{
		MaxSize: 3,
		TTL:     0,
	}
	cache := NewLRUCache[string, int](config)

	// Test Put and Get
	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}
	if v, ok := cache.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %d, %v; want 3, true", v, ok)
	}

	// Test non-existent key
	if _, ok := cache.Get("d"); ok {
		t.Error("Get(d) should return false")
	}

	// Test Len
	if len := cache.Len(); len != 3 {
		t.Errorf("Len() = %d; want 3", len)
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	config := Config{
		MaxSize: 2,
		TTL:     0,
	}
	cache := NewLRUCache[string, int](config)

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3) // Should evict "a" (least recently used)

	// "a" should be evicted
	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should return false after eviction")
	}

	// "b" and "c" should still be present
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}
	if v, ok := cache.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %d, %v; want 3, true", v, ok)
	}

	// Test that accessing moves to front
	cache.Get("b")    // Move "b" to front
	cache.Put("d", 4) // Should evict "c" (now least recently used)

	if _, ok := cache.Get("c"); ok {
		t.Error("Get(c) should return false after eviction")
	}
	if v, ok := cache.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}
	if v, ok := cache.Get("d"); !ok || v != 4 {
		t.Errorf("Get(d) = %d, %v; want 4, true", v, ok)
	}
}

func TestLRUCache_Update(t *testing.T) {
	config := Config{
		MaxSize: 2,
		TTL:     0,
	}
	cache := NewLRUCache[string, int](config)

	cache.Put("a", 1)
	cache.Put("a", 2) // Update existing key

	if v, ok := cache.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", v, ok)
	}

	// Should still have only 1 entry
	if len := cache.Len(); len != 1 {
		t.Errorf("Len() = %d; want 1", len)
	}
}

func TestLRUCache_Remove(t *testing.T) {
	config := Config{
		MaxSize: 3,
		TTL:     0,
	}
	cache := NewLRUCache[string, int](config)

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	cache.Remove("b")

	if _, ok := cache.Get("b"); ok {
		t.Error("Get(b) should return false after Remove")
	}

	if len := cache.Len(); len != 2 {
		t.Errorf("Len() = %d; want 2", len)
	}

	// Other entries should still be present
	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := cache.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %d, %v; want 3, true", v, ok)
	}
}

func TestLRUCache_Clear(t *testing.T) {
	config := Config{
		MaxSize: 3,
		TTL:     0,
	}
	cache := NewLRUCache[string, int](config)

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	cache.Clear()

	if len := cache.Len(); len != 0 {
		t.Errorf("Len() = %d; want 0", len)
	}

	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should return false after Clear")
	}
}

func TestLRUCache_TTL(t *testing.T) {
	config := Config{
		MaxSize: 3,
		TTL:     50 * time.Millisecond,
	}
	cache := NewLRUCache[string, int](config)

	cache.Put("a", 1)

	// Should be present immediately
	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	// Wait for expiration
	time.Sleep(100 * time.Millisecond)

	// Should be expired
	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should return false after TTL expiration")
	}
}

func TestLRUCache_Stats(t *testing.T) {
	config := Config{
		MaxSize: 2,
		TTL:     0,
	}
	cache := NewLRUCache[string, int](config)

	cache.Put("a", 1)
	cache.Put("b", 2)

	// Test hits
	cache.Get("a")
	cache.Get("b")

	// Test misses
	cache.Get("c")
	cache.Get("d")

	// Test eviction
	cache.Put("c", 3) // Evicts "a"

	stats := cache.Stats()

	if stats.Hits != 2 {
		t.Errorf("Hits = %d; want 2", stats.Hits)
	}
	if stats.Misses != 2 {
		t.Errorf("Misses = %d; want 2", stats.Misses)
	}
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d; want 1", stats.Evictions)
	}
	if stats.Size != 2 {
		t.Errorf("Size = %d; want 2", stats.Size)
	}
	if stats.MaxSize != 2 {
		t.Errorf("MaxSize = %d; want 2", stats.MaxSize)
	}
}

func TestLRUCache_OnEvict(t *testing.T) {
	var evictedKey string
	var evictedValue int

	config := Config{
		MaxSize: 2,
		TTL:     0,
		OnEvict: func(key, value interface{}) {
			evictedKey = key.(string)
			evictedValue = value.(int)
		},
	}
	cache := NewLRUCache[string, int](config)

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3) // Should evict "a"

	if evictedKey != "a" {
		t.Errorf("evictedKey = %s; want a", evictedKey)
	}
	if evictedValue != 1 {
		t.Errorf("evictedValue = %d; want 1", evictedValue)
	}
}

func TestLRUCache_Concurrency(t *testing.T) {
	config := Config{
		MaxSize: 100,
		TTL:     0,
	}
	cache := NewLRUCache[int, int](config)

	var wg sync.WaitGroup
	numGoroutines := 10
	numOperations := 100

	// Concurrent writes
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := id*numOperations + j
				cache.Put(key, key)
			}
		}(i)
	}

	// Concurrent reads
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := id*numOperations + j
				cache.Get(key)
			}
		}(i)
	}

	wg.Wait()

	// Cache should be in a valid state
	if len := cache.Len(); len > config.MaxSize {
		t.Errorf("Len() = %d; want <= %d", len, config.MaxSize)
	}
}


func TestLRUCache_ClearFiresOnEvict(t *testing.T) {
	var evicted []string

	config := Config{
		MaxSize: 3,
		TTL:     0,
		OnEvict: func(key, value interface{}) {
			evicted = append(evicted, key.(string))
		},
	}
	cache := NewLRUCache[string, int](config)

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Clear()

	if len(evicted) != 2 {
		t.Errorf("OnEvict fired %d times; want 2", len(evicted))
	}
}
