package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiskCache(t *testing.T, dir string, maxSize int64) *DiskBlockCache {
	t.Helper()
	c, err := NewDiskBlockCache(DiskCacheConfig{RootDir: dir, MaxSizeBytes: maxSize})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// flush waits for background writes.
func flush(c *DiskBlockCache) { c.wg.Wait() }

func TestDiskCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := newDiskCache(t, t.TempDir(), 1<<20)

	_, ok := c.Get(ctx, key(1))
	assert.False(t, ok)

	c.Set(ctx, key(1), []byte("block-1"))
	flush(c)

	v, ok := c.Get(ctx, key(1))
	require.True(t, ok)
	assert.Equal(t, "block-1", string(v))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(7), c.Size())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestDiskCache_Eviction(t *testing.T) {
	ctx := context.Background()
	c := newDiskCache(t, t.TempDir(), 30)

	for i := uint64(1); i <= 3; i++ {
		c.Set(ctx, key(i), make([]byte, 10))
		flush(c)
	}
	// Touch 1 so that 2 is the eviction victim.
	_, ok := c.Get(ctx, key(1))
	require.True(t, ok)

	c.Set(ctx, key(4), make([]byte, 10))
	flush(c)

	_, ok = c.Get(ctx, key(2))
	assert.False(t, ok)
	for _, k := range []uint64{1, 3, 4} {
		_, ok := c.Get(ctx, key(k))
		assert.True(t, ok, "offset %d", k)
	}
	assert.Equal(t, int64(30), c.Size())

	rel, ok := c.encodeKeyToRelPath(key(2))
	require.True(t, ok)
	assert.NoFileExists(t, filepath.Join(c.rootDir, rel))
}

func TestDiskCache_Reload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	keys := []CacheKey{
		key(7),
		{Kind: CacheKindPostings, SegmentID: "3f2a-seg", Field: "a/b_c d", Offset: 1 << 40},
		{Kind: CacheKindBlob, Path: "segments/x.tdc"},
		{Kind: CacheKindSuffixes, SegmentID: "seg"},
	}

	c, err := NewDiskBlockCache(DiskCacheConfig{RootDir: dir, MaxSizeBytes: 1 << 20})
	require.NoError(t, err)
	for i, k := range keys {
		c.Set(ctx, k, []byte(strings.Repeat("x", i+1)))
	}
	require.NoError(t, c.Close())

	// A leftover temp file from an interrupted write is cleaned up.
	stale := filepath.Join(dir, "tmp-blk-123")
	require.NoError(t, os.WriteFile(stale, []byte("junk"), 0o600))

	reopened := newDiskCache(t, dir, 1<<20)
	assert.Equal(t, len(keys), reopened.Len())
	for i, k := range keys {
		v, ok := reopened.Get(ctx, k)
		require.True(t, ok, "key %+v", k)
		assert.Len(t, v, i+1)
	}
	assert.NoFileExists(t, stale)
}

func TestDiskCache_ReloadShrinks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c := newDiskCache(t, dir, 100)
	for i := range uint64(5) {
		c.Set(ctx, key(i), make([]byte, 10))
	}
	flush(c)
	require.Equal(t, int64(50), c.Size())

	smaller := newDiskCache(t, dir, 20)
	assert.LessOrEqual(t, smaller.Size(), int64(20))
}

func TestDiskCache_Skips(t *testing.T) {
	ctx := context.Background()
	c := newDiskCache(t, t.TempDir(), 16)

	c.Set(ctx, key(1), make([]byte, 17))
	c.Set(ctx, CacheKey{Kind: CacheKindTermBlocks, Field: strings.Repeat("f", 200)}, []byte("x"))
	flush(c)
	assert.Zero(t, c.Len())

	require.NoError(t, c.Close())
	c.Set(ctx, key(2), []byte("x"))
	flush(c)
	assert.Zero(t, c.Len(), "no writes after close")
}

func TestDiskCache_MissingFile(t *testing.T) {
	ctx := context.Background()
	c := newDiskCache(t, t.TempDir(), 1<<20)
	c.Set(ctx, key(1), []byte("data"))
	flush(c)

	rel, ok := c.encodeKeyToRelPath(key(1))
	require.True(t, ok)
	require.NoError(t, os.Remove(filepath.Join(c.rootDir, rel)))

	_, ok = c.Get(ctx, key(1))
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestDiskCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	c := newDiskCache(t, t.TempDir(), 1<<20)
	a := CacheKey{Kind: CacheKindTermBlocks, SegmentID: "a", Offset: 1}
	b := CacheKey{Kind: CacheKindTermBlocks, SegmentID: "b", Offset: 1}
	c.Set(ctx, a, []byte("x"))
	c.Set(ctx, b, []byte("y"))
	flush(c)

	c.Invalidate(func(k CacheKey) bool { return k.SegmentID == "a" })

	_, ok := c.Get(ctx, a)
	assert.False(t, ok)
	_, ok = c.Get(ctx, b)
	assert.True(t, ok)
}

func TestDiskCache_EmptyRoot(t *testing.T) {
	_, err := NewDiskBlockCache(DiskCacheConfig{})
	require.Error(t, err)
}

func TestParsePathToKey_Rejects(t *testing.T) {
	c := &DiskBlockCache{rootDir: "/cache"}
	for _, p := range []string{
		"/cache/1/x__/notanumber.blk",
		"/cache/1/x__/5.txt",
		"/cache/1/y__/5.blk",
		"/cache/1/xzz__/5.blk",
		"/cache/1/x_/5.blk",
		"/cache/abc/x__/5.blk",
		"/cache/5.blk",
	} {
		_, ok := c.parsePathToKey(filepath.FromSlash(p))
		assert.False(t, ok, p)
	}

	k, ok := c.parsePathToKey(filepath.FromSlash("/cache/2/x__/5.blk"))
	require.True(t, ok)
	assert.Equal(t, CacheKey{Kind: CacheKindPostings, Offset: 5}, k)
}
