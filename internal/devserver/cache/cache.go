// ABOUTME: In-memory cache with TTL-based expiration
// ABOUTME: Thread-safe cache using sync.Map with a stoppable cleanup loop

package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const cleanupInterval = time.Minute

type entry[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache stores values of one type with a default TTL
type Cache[V any] struct {
	store  sync.Map
	ttl    time.Duration
	logger *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New creates a cache and starts its cleanup loop. Close stops it.
func New[V any](ttl time.Duration, logger *zap.Logger) *Cache[V] {
	return newWithClock[V](ttl, logger, time.Now)
}

func newWithClock[V any](ttl time.Duration, logger *zap.Logger, now func() time.Time) *Cache[V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache[V]{
		ttl:    ttl,
		logger: logger,
		stop:   make(chan struct{}),
		now:    now,
	}
	go c.startCleanup(cleanupInterval)
	return c
}

// Get returns the value for key unless it is missing or expired
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	val, ok := c.store.Load(key)
	if !ok {
		c.logger.Debug("cache miss", zap.String("key", key))
		return zero, false
	}

	e := val.(entry[V])
	if c.now().After(e.expiresAt) {
		c.store.Delete(key)
		c.logger.Debug("cache expired", zap.String("key", key))
		return zero, false
	}

	c.logger.Debug("cache hit", zap.String("key", key))
	return e.data, true
}

// Set stores a value with the default TTL
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.store.Store(key, entry[V]{data: value, expiresAt: c.now().Add(ttl)})
	c.logger.Debug("cache set", zap.String("key", key), zap.Duration("ttl", ttl))
}

// Delete removes key
func (c *Cache[V]) Delete(key string) {
	c.store.Delete(key)
}

// Len counts the live entries
func (c *Cache[V]) Len() int {
	n := 0
	now := c.now()
	c.store.Range(func(_, val any) bool {
		if !now.After(val.(entry[V]).expiresAt) {
			n++
		}
		return true
	})
	return n
}

// Close stops the cleanup loop
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache[V]) evictExpired() {
	now := c.now()
	c.store.Range(func(key, val any) bool {
		if now.After(val.(entry[V]).expiresAt) {
			c.store.Delete(key)
		}
		return true
	})
}
