package blocktree

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/termdict/internal/cache"
)

// BlockSource returns term blocks by file pointer.
type BlockSource interface {
	// ReadBlock returns the verified body of the block at fp. The slice must
	// be treated as read-only.
	ReadBlock(fp int64) ([]byte, error)
}

// SuffixCache is implemented by block sources that also keep the
// decompressed suffix bytes of compressed blocks, so reloading a block skips
// decompression.
type SuffixCache interface {
	CachedSuffixes(fp int64) ([]byte, bool)
	StoreSuffixes(fp int64, suffixes []byte)
}

// BytesSource serves blocks from an in-memory (or memory-mapped) copy of the
// file. data[0] is at file offset base.
type BytesSource struct {
	data []byte
	base int64
}

var _ BlockSource = (*BytesSource)(nil)

// NewBytesSource creates a BlockSource over data.
func NewBytesSource(data []byte, base int64) *BytesSource {
	return &BytesSource{data: data, base: base}
}

// ReadBlock implements BlockSource.
func (s *BytesSource) ReadBlock(fp int64) ([]byte, error) {
	off := fp - s.base
	if off < 0 || off >= int64(len(s.data)) {
		return nil, corruptf("block pointer %d out of range", fp)
	}
	return parseFramedBlock(s.data[off:], fp)
}

const defaultReadAhead = 4096

// ReaderAtSource reads blocks through an io.ReaderAt, optionally caching the
// verified bodies.
type ReaderAtSource struct {
	r         io.ReaderAt
	size      int64
	readAhead int
	cache     cache.BlockCache
	key       cache.CacheKey
}

var (
	_ BlockSource = (*ReaderAtSource)(nil)
	_ SuffixCache = (*ReaderAtSource)(nil)
)

// SourceOption configures a ReaderAtSource.
type SourceOption func(*ReaderAtSource)

// WithBlockCache caches verified block bodies under the given segment and
// field.
func WithBlockCache(c cache.BlockCache, segmentID, field string) SourceOption {
	return func(s *ReaderAtSource) {
		s.cache = c
		s.key = cache.CacheKey{Kind: cache.CacheKindTermBlocks, SegmentID: segmentID, Field: field}
	}
}

// WithReadAhead sets how many bytes are read speculatively for each block.
func WithReadAhead(n int) SourceOption {
	return func(s *ReaderAtSource) {
		if n > 0 {
			s.readAhead = n
		}
	}
}

// NewReaderAtSource creates a BlockSource over r, which holds size bytes.
func NewReaderAtSource(r io.ReaderAt, size int64, opts ...SourceOption) *ReaderAtSource {
	s := &ReaderAtSource{r: r, size: size, readAhead: defaultReadAhead}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadBlock implements BlockSource.
func (s *ReaderAtSource) ReadBlock(fp int64) ([]byte, error) {
	key := s.key
	key.Offset = uint64(fp)
	if s.cache != nil {
		if b, ok := s.cache.Get(context.Background(), key); ok {
			return b, nil
		}
	}

	if fp < 0 || fp >= s.size {
		return nil, corruptf("block pointer %d out of range", fp)
	}
	buf := make([]byte, min(int64(s.readAhead), s.size-fp))
	if err := s.readFull(buf, fp); err != nil {
		return nil, err
	}
	bodyLen, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, corruptf("block at %d: bad length header", fp)
	}
	remaining := s.size - fp - int64(n)
	if remaining < checksumSize || bodyLen > uint64(remaining-checksumSize) {
		return nil, corruptf("block at %d: length %d exceeds file", fp, bodyLen)
	}
	total := int64(n) + int64(bodyLen) + checksumSize
	if total > int64(len(buf)) {
		full := make([]byte, total)
		copy(full, buf)
		if err := s.readFull(full[len(buf):], fp+int64(len(buf))); err != nil {
			return nil, err
		}
		buf = full
	}
	body, err := parseFramedBlock(buf[:total], fp)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(context.Background(), key, body)
	}
	return body, nil
}

// CachedSuffixes implements SuffixCache.
func (s *ReaderAtSource) CachedSuffixes(fp int64) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(context.Background(), s.suffixKey(fp))
}

// StoreSuffixes implements SuffixCache.
func (s *ReaderAtSource) StoreSuffixes(fp int64, suffixes []byte) {
	if s.cache != nil {
		s.cache.Set(context.Background(), s.suffixKey(fp), suffixes)
	}
}

func (s *ReaderAtSource) suffixKey(fp int64) cache.CacheKey {
	key := s.key
	key.Kind = cache.CacheKindSuffixes
	key.Offset = uint64(fp)
	return key
}

func (s *ReaderAtSource) readFull(p []byte, off int64) error {
	n, err := s.r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("blocktree: read block at %d: %w", off, err)
}
