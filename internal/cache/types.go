package cache

import "context"

// CacheKind is used to separate key spaces.
type CacheKind uint8

const (
	CacheKindUnknown    CacheKind = iota
	CacheKindTermBlocks           // verified block-tree term blocks
	CacheKindPostings             // encoded roaring postings
	CacheKindBlob                 // generic blob ranges
	CacheKindSuffixes             // decompressed term-block suffix bytes
)

func (k CacheKind) String() string {
	switch k {
	case CacheKindTermBlocks:
		return "term_blocks"
	case CacheKindPostings:
		return "postings"
	case CacheKindBlob:
		return "blob"
	case CacheKindSuffixes:
		return "suffixes"
	default:
		return "unknown"
	}
}

// CacheKey identifies an immutable block. Segments are write-once, so the
// segment id plus a file offset is stable for the life of the process.
type CacheKey struct {
	Kind CacheKind
	// SegmentID is the id recorded in the segment metadata.
	SegmentID string
	// Field scopes term blocks to one field of the segment.
	Field string
	// Offset is the byte offset of the block.
	Offset uint64
	// Path identifies the source for generic blob caching.
	Path string
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key CacheKey) (b []byte, ok bool)
	// Set caches a block. The caller must treat b as immutable afterwards.
	Set(ctx context.Context, key CacheKey, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key CacheKey) bool)
	// Close releases any resources.
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
