package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/termdict/internal/cache"
)

// DefaultPageSize is the cache page size used when none is given.
const DefaultPageSize = 64 * 1024

// maxFetchConcurrency bounds parallel backend reads for one ReadAt.
const maxFetchConcurrency = 8

// CachingStore puts a page cache in front of a remote BlobStore.
//
// Segments are immutable, so cached pages never go stale while a blob
// keeps its name. Call Invalidate after deleting or replacing a blob.
type CachingStore struct {
	inner    BlobStore
	cache    cache.BlockCache
	pageSize int64
}

// NewCachingStore wraps inner. pageSize defaults to DefaultPageSize if <= 0.
func NewCachingStore(inner BlobStore, c cache.BlockCache, pageSize int64) *CachingStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &CachingStore{
		inner:    inner,
		cache:    c,
		pageSize: pageSize,
	}
}

// NewLRUCachingStore wraps inner with an LRU page cache holding up to
// capacity bytes.
func NewLRUCachingStore(inner BlobStore, capacity, pageSize int64) *CachingStore {
	return NewCachingStore(inner, cache.NewShardedLRUBlockCache(capacity, nil), pageSize)
}

// Open opens a blob whose reads go through the page cache.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:    b,
		cache:    s.cache,
		name:     name,
		pageSize: s.pageSize,
	}, nil
}

// Invalidate drops all cached pages of the named blob.
func (s *CachingStore) Invalidate(name string) {
	s.cache.Invalidate(func(key cache.CacheKey) bool {
		return key.Kind == cache.CacheKindBlob && key.Path == name
	})
}

// CachingBlob serves reads from cached pages and fetches missing runs of
// pages from the inner blob.
type CachingBlob struct {
	inner    Blob
	cache    cache.BlockCache
	name     string
	pageSize int64
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *CachingBlob) key(page int64) cache.CacheKey {
	return cache.CacheKey{
		Kind:   cache.CacheKindBlob,
		Path:   b.name,
		Offset: uint64(page),
	}
}

func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	size := b.Size()
	if off >= size {
		return 0, io.EOF
	}

	end := min(off+int64(len(p)), size)
	first := off / b.pageSize
	last := (end - 1) / b.pageSize

	pages, err := b.fetch(ctx, first, last)
	if err != nil {
		return 0, err
	}

	total := 0
	for i, page := range pages {
		pageStart := (first + int64(i)) * b.pageSize
		from := max(pageStart, off)
		to := min(pageStart+int64(len(page)), end)
		if to <= from {
			continue
		}
		total += copy(p[from-off:], page[from-pageStart:to-pageStart])
	}
	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// fetch returns pages first..last, reading contiguous runs of missing
// pages with one backend request each.
func (b *CachingBlob) fetch(ctx context.Context, first, last int64) ([][]byte, error) {
	pages := make([][]byte, last-first+1)

	type run struct{ start, count int64 }
	var missing []run
	for pg := first; pg <= last; pg++ {
		if data, ok := b.cache.Get(ctx, b.key(pg)); ok {
			pages[pg-first] = data
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == pg {
			missing[n-1].count++
		} else {
			missing = append(missing, run{start: pg, count: 1})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFetchConcurrency)
	for _, r := range missing {
		g.Go(func() error {
			start := r.start * b.pageSize
			length := min(r.count*b.pageSize, b.Size()-start)
			buf := make([]byte, length)
			n, err := b.inner.ReadAt(gctx, buf, start)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]
			for i := int64(0); i < r.count; i++ {
				lo := i * b.pageSize
				if lo >= int64(len(buf)) {
					break
				}
				hi := min(lo+b.pageSize, int64(len(buf)))
				// Copy so one large read does not pin every page.
				page := make([]byte, hi-lo)
				copy(page, buf[lo:hi])
				b.cache.Set(gctx, b.key(r.start+i), page)
				pages[r.start+i-first] = page
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// ReadRange reads through the page cache.
func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	return newSectionReader(ctx, b, off, length)
}
