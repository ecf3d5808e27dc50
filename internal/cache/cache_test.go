package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("k", "v", "file:///p/a.go")

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_ExpiryIsSampledOnRead(t *testing.T) {
	c := New(10*time.Millisecond, 10)
	c.Set("k", "v")

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "expired entry must not be served")
	assert.Equal(t, 0, c.Len(), "expired entry is dropped when sampled")
}

func TestCache_EvictsEarliestInsertedAtCapacity(t *testing.T) {
	c := New(time.Minute, 2)
	c.Set("first", 1)
	c.Set("second", 2)
	c.Set("third", 3)

	_, ok := c.Get("first")
	assert.False(t, ok, "earliest-inserted entry should be evicted")
	_, ok = c.Get("second")
	assert.True(t, ok)
	_, ok = c.Get("third")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_InvalidateFileDropsOnlyAssociatedKeys(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("hover:a:1", "x", "file:///p/a.go")
	c.Set("hover:a:2", "y", "file:///p/a.go")
	c.Set("hover:b:1", "z", "file:///p/b.go")

	c.InvalidateFile("file:///p/a.go")

	_, ok := c.Get("hover:a:1")
	assert.False(t, ok)
	_, ok = c.Get("hover:a:2")
	assert.False(t, ok)
	got, ok := c.Get("hover:b:1")
	require.True(t, ok)
	assert.Equal(t, "z", got)
}

func TestCache_EntryMayDependOnSeveralFiles(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("refs", "r", "file:///p/a.go", "file:///p/b.go")

	c.InvalidateFile("file:///p/b.go")
	_, ok := c.Get("refs")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("k", "v", "file:///p/a.go")
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute, 100)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%20)
				c.Set(key, j, "file:///p/shared.go")
				c.Get(key)
				if j%50 == 0 {
					c.InvalidateFile("file:///p/shared.go")
				}
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
