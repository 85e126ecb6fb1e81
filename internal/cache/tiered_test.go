package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTieredCache(t *testing.T) {
	ctx := context.Background()
	l1 := NewLRUBlockCache(1<<10, nil)
	l2 := NewLRUBlockCache(1<<10, nil)
	c := NewTieredBlockCache(l1, l2)

	c.Set(ctx, key(1), []byte("one"))
	assert.Equal(t, 1, l1.Len())
	assert.Equal(t, 1, l2.Len())

	// Only in the second tier: promoted on read.
	l2.Set(ctx, key(2), []byte("two"))
	v, ok := c.Get(ctx, key(2))
	require.True(t, ok)
	assert.Equal(t, "two", string(v))
	_, ok = l1.Get(ctx, key(2))
	assert.True(t, ok)

	_, ok = c.Get(ctx, key(3))
	assert.False(t, ok)

	c.Invalidate(func(k CacheKey) bool { return k.Offset == 1 })
	assert.Equal(t, 1, l1.Len())
	assert.Equal(t, 1, l2.Len())

	require.NoError(t, c.Close())
	assert.Zero(t, l1.Len())
	assert.Zero(t, l2.Len())
}

func TestTieredCache_Stats(t *testing.T) {
	ctx := context.Background()
	l1 := NewLRUBlockCache(1<<10, nil)
	l2 := NewLRUBlockCache(1<<10, nil)
	c := NewTieredBlockCache(l1, l2)

	l2.Set(ctx, key(1), []byte("x"))
	_, _ = c.Get(ctx, key(1)) // l1 miss, l2 hit
	_, _ = c.Get(ctx, key(1)) // l1 hit
	_, _ = c.Get(ctx, key(9)) // miss in both

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}
