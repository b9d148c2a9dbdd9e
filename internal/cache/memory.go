package cache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process cache backend. It is the default backend and
// the degradation target when Redis is unreachable.
type MemoryCache struct {
	store *gocache.Cache

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

func (c *MemoryCache) Get(_ context.Context, artifact ArtifactType, fingerprint string) ([]byte, bool) {
	value, found := c.store.Get(cacheKey(artifact, fingerprint))
	if !found {
		c.misses.Add(1)
		return nil, false
	}
	data, ok := value.([]byte)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return data, true
}

func (c *MemoryCache) Set(_ context.Context, artifact ArtifactType, fingerprint string, value []byte, ttl time.Duration) {
	c.store.Set(cacheKey(artifact, fingerprint), value, ttl)
	c.sets.Add(1)
}

func (c *MemoryCache) Stats() Stats {
	return Stats{
		Backend: "memory",
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
	}
}
