package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setupTestEnvironment(t *testing.T) (*Cache, func()) {
	t.Helper()

	cache := NewCache(0, 0)

	cleanup := func() {
		cache.Flush()
	}

	return cache, cleanup
}

func TestCache_Set(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("key", "value")

	if _, ok := cache.Get("key"); !ok {
		t.Error("expected key to be set")
	}
}

func TestCache_SetWithExpiration(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("key", "value", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := cache.Get("key")
	assert.False(t, ok, "expected key to expire")
}

func TestCache_Delete(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set(CacheKeyEntity("blog", 1), "one")
	cache.Set(CacheKeyEntity("blog", 2), "two")
	cache.Set(CacheKeyEntities("blog"), "all")

	cache.Delete(CacheKeyEntity("blog", 1), CacheKeyEntities("blog"))

	_, ok := cache.Get(CacheKeyEntity("blog", 1))
	assert.False(t, ok)
	_, ok = cache.Get(CacheKeyEntities("blog"))
	assert.False(t, ok)
	_, ok = cache.Get(CacheKeyEntity("blog", 2))
	assert.True(t, ok)
}

func TestCache_Flush(t *testing.T) {
	cache, cleanup := setupTestEnvironment(t)
	defer cleanup()

	cache.Set("key", "value")
	cache.Flush()

	if _, ok := cache.Get("key"); ok {
		t.Error("expected cache to be flushed")
	}
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "visit:7", CacheKeyEntity("visit", 7))
	assert.Equal(t, "promotion:all", CacheKeyEntities("promotion"))
	assert.Equal(t, "user_by_id:3", CacheKeyUserByID(3))
}
