package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// InMemoryCache implements Cache with patrickmn/go-cache. It is per process.
type InMemoryCache struct {
	cache *gocache.Cache
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		cache: gocache.New(ExpiryDefaultInMemory, 2*ExpiryDefaultInMemory),
	}
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	span := StartCacheSpan(ctx, "inmemory", "get", map[string]interface{}{"key": key})
	defer FinishSpan(span)
	return c.cache.Get(key)
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration == 0 {
		expiration = ExpiryDefaultInMemory
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) SetIfAbsent(_ context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if expiration == 0 {
		expiration = ExpiryDefaultInMemory
	}
	// Add fails when the key exists and has not expired
	if err := c.cache.Add(key, value, expiration); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}
