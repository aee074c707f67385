package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemory_FIFOEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string](2, nil)

	require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "b", "2", time.Minute))

	// reading "a" does not protect it: eviction is by insertion, not access
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)

	require.NoError(t, c.Set(ctx, "c", "3", time.Minute))

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "first inserted key should be evicted")

	v, ok, _ := c.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	v, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	assert.Equal(t, 2, c.Len())
}

func TestMemory_OverwriteCountsAsInsertion(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int](2, nil)

	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Set(ctx, "b", 2, 0)
	_ = c.Set(ctx, "a", 10, 0) // "a" is now the newest
	_ = c.Set(ctx, "c", 3, 0)

	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok)
	v, ok, _ := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemory[string](10, clock.now)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	clock.advance(59 * time.Second)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	clock.advance(time.Second)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is removed on read")
}

func TestMemory_InvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int](10, nil)

	_ = c.Set(ctx, "candidates:1:aaa", 1, time.Minute)
	_ = c.Set(ctx, "candidates:1:bbb", 2, time.Minute)
	_ = c.Set(ctx, "candidates:10:aaa", 3, time.Minute)

	require.NoError(t, c.Invalidate(ctx, "candidates:1:"))

	_, ok, _ := c.Get(ctx, "candidates:1:aaa")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "candidates:1:bbb")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "candidates:10:aaa")
	assert.True(t, ok)
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int](16, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k:%d:%d", i, j%20)
				_ = c.Set(ctx, key, j, time.Minute)
				_, _, _ = c.Get(ctx, key)
				if j%50 == 0 {
					_ = c.Invalidate(ctx, fmt.Sprintf("k:%d:", i))
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
