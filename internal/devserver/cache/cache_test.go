package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeClock lets tests move time without sleeping
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newCache(t *testing.T, ttl time.Duration) (*Cache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newWithClock[string](ttl, nil, clock.now)
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache_SetAndGet(t *testing.T) {
	c, _ := newCache(t, time.Second)

	c.Set("key1", "value1")

	val, found := c.Get("key1")
	assert.True(t, found)
	assert.Equal(t, "value1", val)
}

func TestCache_Expiration(t *testing.T) {
	c, clock := newCache(t, 100*time.Millisecond)

	c.Set("key1", "value1")
	_, found := c.Get("key1")
	assert.True(t, found, "expected key1 immediately")

	clock.advance(150 * time.Millisecond)

	_, found = c.Get("key1")
	assert.False(t, found, "expected key1 to be expired")
}

func TestCache_SetWithTTL(t *testing.T) {
	c, clock := newCache(t, time.Second)

	c.SetWithTTL("short", "a", 10*time.Millisecond)
	c.Set("long", "b")
	clock.advance(500 * time.Millisecond)

	_, found := c.Get("short")
	assert.False(t, found)
	_, found = c.Get("long")
	assert.True(t, found)
}

func TestCache_Delete(t *testing.T) {
	c, _ := newCache(t, time.Second)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, found := c.Get("key1")
	assert.False(t, found)
}

func TestCache_LenAndEviction(t *testing.T) {
	c, clock := newCache(t, time.Second)

	c.Set("a", "1")
	c.SetWithTTL("b", "2", time.Hour)
	assert.Equal(t, 2, c.Len())

	clock.advance(2 * time.Second)
	assert.Equal(t, 1, c.Len())

	c.evictExpired()
	_, stillStored := c.store.Load("a")
	assert.False(t, stillStored)
}

func TestCache_LogsHitsAndMisses(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := New[int](time.Second, zap.New(core))
	defer c.Close()

	c.Get("missing")
	c.Set("present", 1)
	c.Get("present")

	assert.Equal(t, 1, logs.FilterMessage("cache miss").Len())
	assert.Equal(t, 1, logs.FilterMessage("cache hit").Len())
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New[string](time.Second, nil)
	c.Close()
	c.Close()
}
