package cache

import (
	"context"
	"errors"
)

// TieredBlockCache layers a fast cache over a slower, larger one, usually
// memory over disk. Hits in the second tier are promoted to the first.
type TieredBlockCache struct {
	l1, l2 BlockCache
}

var _ BlockCache = (*TieredBlockCache)(nil)

// NewTieredBlockCache creates a two-level cache.
func NewTieredBlockCache(l1, l2 BlockCache) *TieredBlockCache {
	return &TieredBlockCache{l1: l1, l2: l2}
}

// Get looks in l1, then in l2.
func (t *TieredBlockCache) Get(ctx context.Context, key CacheKey) ([]byte, bool) {
	if b, ok := t.l1.Get(ctx, key); ok {
		return b, true
	}
	b, ok := t.l2.Get(ctx, key)
	if ok {
		t.l1.Set(ctx, key, b)
	}
	return b, ok
}

// Set stores the block in both tiers.
func (t *TieredBlockCache) Set(ctx context.Context, key CacheKey, b []byte) {
	t.l1.Set(ctx, key, b)
	t.l2.Set(ctx, key, b)
}

// Invalidate removes matching entries from both tiers.
func (t *TieredBlockCache) Invalidate(predicate func(key CacheKey) bool) {
	t.l1.Invalidate(predicate)
	t.l2.Invalidate(predicate)
}

// Close closes both tiers.
func (t *TieredBlockCache) Close() error {
	return errors.Join(t.l1.Close(), t.l2.Close())
}

// Stats counts a hit in either tier as a hit. Only a miss in both is a
// miss.
func (t *TieredBlockCache) Stats() (hits, misses int64) {
	h1, _ := t.l1.Stats()
	h2, m2 := t.l2.Stats()
	return h1 + h2, m2
}
