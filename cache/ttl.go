// Package cache wraps go-cache with a typed API and an explicit TTL per cache.
package cache

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const DefaultCleanupInterval = 10 * time.Minute

// TTL is a typed in-memory cache. Entries expire purely by time; there is no
// invalidation signal.
type TTL[V any] struct {
	useCase string
	ttl     time.Duration
	cache   *gocache.Cache
	logger  *slog.Logger
}

// New creates a cache whose entries live for ttl unless SetWithTTL says otherwise.
func New[V any](useCase string, ttl, cleanupInterval time.Duration, logger *slog.Logger) *TTL[V] {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTL[V]{
		useCase: useCase,
		ttl:     ttl,
		cache:   gocache.New(ttl, cleanupInterval),
		logger:  logger,
	}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V

	value, found := c.cache.Get(key)
	if !found {
		return zero, false
	}

	v, ok := value.(V)
	if !ok {
		c.logger.Error("wrong type assertion when getting cached value",
			slog.String("cache", c.useCase), slog.String("key", key))
		return zero, false
	}
	return v, true
}

func (c *TTL[V]) Set(key string, value V) {
	c.cache.Set(key, value, c.ttl)
}

func (c *TTL[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.cache.Set(key, value, ttl)
}

// Touch re-inserts a hit so it lives for another full TTL.
func (c *TTL[V]) Touch(key string) (V, bool) {
	v, ok := c.Get(key)
	if ok {
		c.Set(key, v)
	}
	return v, ok
}

func (c *TTL[V]) Delete(key string) {
	c.cache.Delete(key)
}

func (c *TTL[V]) Len() int {
	return c.cache.ItemCount()
}

func (c *TTL[V]) TTL() time.Duration {
	return c.ttl
}
