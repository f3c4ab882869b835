package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache[V any](ttl time.Duration) (*Cache[V], *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[V]("test", ttl)
	c.now = clock.Now
	return c, clock
}

func TestCache_PutGet(t *testing.T) {
	c, clock := newTestCache[string](time.Minute)

	c.Put("trending", "value")
	clock.Advance(20 * time.Second)

	e, ok := c.Get("trending")
	require.True(t, ok)
	assert.Equal(t, "value", e.Value)
	assert.Equal(t, 20*time.Second, e.Age)
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache[int](time.Minute)
	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestCache_ExpiresLazily(t *testing.T) {
	c, clock := newTestCache[int](time.Minute)

	c.Put("k", 1)
	clock.Advance(time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_PutReplaces(t *testing.T) {
	c, clock := newTestCache[int](time.Minute)

	c.Put("k", 1)
	clock.Advance(50 * time.Second)
	c.Put("k", 2)
	clock.Advance(50 * time.Second)

	e, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, e.Value)
}

func TestCache_SweepOnWrite(t *testing.T) {
	c, clock := newTestCache[int](time.Minute)

	for i := 0; i < sweepEvery-1; i++ {
		c.Put(fmt.Sprintf("old-%d", i), i)
	}
	clock.Advance(2 * time.Minute)
	c.Put("fresh", 1)

	assert.Equal(t, 1, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int]("concurrent", time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%10)
				c.Put(key, n)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 10)
}
