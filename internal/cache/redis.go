package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache keeps artifacts in Redis so cached content survives restarts
// and is shared between replicas. Every Redis failure is absorbed: the
// operation falls through to an embedded memory cache and the Degraded flag
// is raised in stats.
type RedisCache struct {
	client   *redis.Client
	fallback *MemoryCache

	hits     atomic.Int64
	misses   atomic.Int64
	sets     atomic.Int64
	degraded atomic.Bool
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisCache(opts RedisOptions) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisCache{
		client:   client,
		fallback: NewMemoryCache(),
	}
}

func (c *RedisCache) Get(ctx context.Context, artifact ArtifactType, fingerprint string) ([]byte, bool) {
	data, err := c.client.Get(ctx, cacheKey(artifact, fingerprint)).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.markDegraded(ctx, "get", err)
		return c.fallback.Get(ctx, artifact, fingerprint)
	}
	c.hits.Add(1)
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, artifact ArtifactType, fingerprint string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, cacheKey(artifact, fingerprint), value, ttl).Err(); err != nil {
		c.markDegraded(ctx, "set", err)
		c.fallback.Set(ctx, artifact, fingerprint, value, ttl)
		return
	}
	c.sets.Add(1)
}

func (c *RedisCache) Stats() Stats {
	fallbackStats := c.fallback.Stats()
	return Stats{
		Backend:  "redis",
		Hits:     c.hits.Load() + fallbackStats.Hits,
		Misses:   c.misses.Load() + fallbackStats.Misses,
		Sets:     c.sets.Load() + fallbackStats.Sets,
		Degraded: c.degraded.Load(),
	}
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) markDegraded(ctx context.Context, op string, err error) {
	if c.degraded.CompareAndSwap(false, true) {
		ctxzap.Extract(ctx).Warn("redis cache degraded, falling back to memory",
			zap.String("op", op),
			zap.Error(err))
	}
}
