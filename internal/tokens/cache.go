package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores resolved mint symbols across builder cycles.
type Cache interface {
	Get(ctx context.Context, mint string) (string, bool)
	Put(ctx context.Context, mint, symbol string)
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	symbols map[string]string
}

// NewMemoryCache creates an in-memory symbol cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{symbols: make(map[string]string)}
}

func (c *MemoryCache) Get(_ context.Context, mint string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.symbols[mint]
	return s, ok
}

func (c *MemoryCache) Put(_ context.Context, mint, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols[mint] = symbol
}

// Redis cache keys and TTL. Token symbols are effectively immutable; the
// TTL only bounds garbage from delisted mints.
const (
	redisKeyPrefix = "agentscan:symbol:"
	redisTTL       = 7 * 24 * time.Hour
)

// RedisCache is a Cache backed by Redis, shared across processes.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed symbol cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, mint string) (string, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+mint).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *RedisCache) Put(ctx context.Context, mint, symbol string) {
	// Best effort; a failed write only costs a refetch next cycle.
	c.client.Set(ctx, redisKeyPrefix+mint, symbol, redisTTL)
}
