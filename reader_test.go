package termdict

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/termdict/blobstore"
	"github.com/hupe1980/termdict/blocktree"
	"github.com/hupe1980/termdict/codec"
	"github.com/hupe1980/termdict/internal/cache"
)

// opaqueStore hides the Mappable interface of the wrapped store's blobs so
// reads take the block-source path used for remote stores.
type opaqueStore struct {
	blobstore.BlobStore
}

func (s opaqueStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	b, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return opaqueBlob{b}, nil
}

type opaqueBlob struct {
	blobstore.Blob
}

func TestReader_LocalStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())
	c := randomCorpus(10, []string{"body", "title"}, 500)
	writeCorpus(t, store, "segments/seg-1.tdc", c)

	r, err := Open(ctx, store, "segments/seg-1.tdc")
	require.NoError(t, err)
	defer r.Close()
	assertCorpus(t, r, c)
}

func TestReader_RemoteStore(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	c := randomCorpus(11, []string{"body"}, 600)
	writeCorpus(t, mem, "seg", c, WithBlockSize(6, 12))

	metrics := &BasicMetricsCollector{}
	r, err := Open(ctx, opaqueStore{mem}, "seg",
		WithBlockCacheSize(1<<20),
		WithReadAhead(512),
		WithMetricsCollector(metrics),
	)
	require.NoError(t, err)
	defer r.Close()

	assertCorpus(t, r, c)
	// Second pass is served from the block cache.
	assertCorpus(t, r, c)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1200), stats.SeekCount)
	assert.Equal(t, int64(1200), stats.SeekHits)
	assert.Zero(t, stats.SeekErrors)
	assert.Positive(t, stats.BlockLoads)
	assert.Zero(t, stats.BlockLoadErrors)
}

func TestReader_DiskCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mem := blobstore.NewMemoryStore()
	c := randomCorpus(13, []string{"body", "title"}, 400)
	writeCorpus(t, mem, "seg", c, WithBlockSize(6, 12), WithCompression(CompressionLZ4))

	disk, err := NewDiskCache(dir, 1<<24)
	require.NoError(t, err)
	r, err := Open(ctx, opaqueStore{mem}, "seg", WithBlockCacheSize(1<<20), WithDiskCache(disk))
	require.NoError(t, err)
	assertCorpus(t, r, c)
	require.NoError(t, r.Close())
	require.NoError(t, disk.Close())

	// A new process finds the blocks on disk.
	disk, err = NewDiskCache(dir, 1<<24)
	require.NoError(t, err)
	defer disk.Close()
	require.Positive(t, disk.Len())
	assert.Positive(t, disk.Size())

	r, err = Open(ctx, opaqueStore{mem}, "seg", WithDiskCache(disk))
	require.NoError(t, err)
	defer r.Close()
	assertCorpus(t, r, c)

	hits, _ := disk.Stats()
	assert.Positive(t, hits)
}

func TestReader_CachingStore(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	c := randomCorpus(12, []string{"f"}, 300)
	writeCorpus(t, mem, "seg", c)

	store := blobstore.NewCachingStore(mem, cache.NewLRUBlockCache(1<<20, nil), 1024)
	r, err := Open(ctx, store, "seg")
	require.NoError(t, err)
	defer r.Close()
	assertCorpus(t, r, c)
}

func TestReader_SeekerAndPostings(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w, err := NewWriter(ctx, store, "seg", WithBlockSize(2, 4))
	require.NoError(t, err)
	terms := []string{"apple", "apricot", "banana", "blueberry", "cherry", "date", "fig", "grape"}
	for i, term := range terms {
		require.NoError(t, w.Add("fruit", []byte(term), roaring.BitmapOf(uint32(i), uint32(i+100))))
	}
	require.NoError(t, w.Close(ctx))

	r, err := Open(ctx, store, "seg")
	require.NoError(t, err)
	defer r.Close()

	fr, err := r.Field("fruit")
	require.NoError(t, err)
	assert.Equal(t, []byte("apple"), fr.Min())
	assert.Equal(t, []byte("grape"), fr.Max())

	s, err := fr.Seeker()
	require.NoError(t, err)

	status, err := s.SeekCeil([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, blocktree.SeekNotFound, status)
	assert.Equal(t, []byte("cherry"), s.Term())

	state, err := s.TermState()
	require.NoError(t, err)
	assert.Equal(t, 2, state.DocFreq)
	docs, err := r.Postings(ctx, "fruit", state)
	require.NoError(t, err)
	assert.Equal(t, []uint32{4, 104}, docs.ToArray())

	status, err = s.SeekCeil([]byte("zzz"))
	require.NoError(t, err)
	assert.Equal(t, blocktree.SeekEnd, status)
}

func TestReader_Scan(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	c := randomCorpus(13, []string{"f"}, 200)
	writeCorpus(t, store, "seg", c, WithBlockSize(4, 8))

	r, err := Open(ctx, store, "seg")
	require.NoError(t, err)
	defer r.Close()

	var prev []byte
	n := 0
	for p, err := range r.Scan(ctx, "f") {
		require.NoError(t, err)
		if prev != nil {
			require.Negative(t, bytes.Compare(prev, p.Term))
		}
		assert.True(t, c["f"][string(p.Term)].Equals(p.Docs))
		prev = p.Term
		n++
	}
	assert.Equal(t, len(c["f"]), n)

	// Stopping early is fine.
	for range r.Scan(ctx, "f") {
		break
	}

	for _, err := range r.Scan(ctx, "missing") {
		require.ErrorIs(t, err, ErrFieldNotFound)
	}
}

func TestReader_Info(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w, err := NewWriter(ctx, store, "seg", WithCodec(codec.JSON{}))
	require.NoError(t, err)
	require.NoError(t, w.Add("a", []byte("x"), roaring.BitmapOf(1, 2)))
	require.NoError(t, w.Add("a", []byte("y"), roaring.BitmapOf(3)))
	require.NoError(t, w.Close(ctx))

	r, err := Open(ctx, store, "seg")
	require.NoError(t, err)
	defer r.Close()

	info := r.Info()
	assert.Equal(t, "seg", info.Name)
	assert.Equal(t, w.SegmentID(), info.ID)
	assert.Equal(t, "json", info.Codec)
	assert.False(t, info.CreatedAt.IsZero())
	require.Len(t, info.Fields, 1)
	assert.Equal(t, "a", info.Fields[0].Name)
	assert.Equal(t, int64(2), info.Fields[0].NumTerms)
	assert.Equal(t, int64(3), info.Fields[0].SumDocFreq)
	assert.Equal(t, []byte("x"), info.Fields[0].MinTerm)
	assert.Equal(t, []byte("y"), info.Fields[0].MaxTerm)
}

func TestReader_Closed(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeCorpus(t, store, "seg", randomCorpus(14, []string{"f"}, 10))

	r, err := Open(ctx, store, "seg")
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, _, err = r.Lookup(ctx, "f", []byte("a"))
	require.ErrorIs(t, err, ErrClosed)
	_, err = r.Field("f")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, r.Close(), ErrClosed)
}

func TestOpen_NotFound(t *testing.T) {
	_, err := Open(context.Background(), blobstore.NewMemoryStore(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

// singleTermSegment returns the bytes of a segment with one field "f" and
// one term "a".
func singleTermSegment(t *testing.T) []byte {
	t.Helper()
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	w, err := NewWriter(ctx, store, "seg")
	require.NoError(t, err)
	require.NoError(t, w.Add("f", []byte("a"), roaring.BitmapOf(1, 2, 3)))
	require.NoError(t, w.Close(ctx))

	b, err := store.Open(ctx, "seg")
	require.NoError(t, err)
	defer b.Close()
	data, err := blobstore.ReadAll(ctx, b)
	require.NoError(t, err)
	return bytes.Clone(data)
}

func TestOpen_Corrupt(t *testing.T) {
	ctx := context.Background()
	good := singleTermSegment(t)
	headerLen := headerSize + len(codec.Default.Name())
	metaOffset := int(binary.LittleEndian.Uint64(good[len(good)-footerSize+8:]))

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"truncated", func(b []byte) []byte { return b[:len(b)-1] }},
		{"too small", func(b []byte) []byte { return b[:footerSize] }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"bad footer magic", func(b []byte) []byte { b[len(b)-footerSize] = 'X'; return b }},
		{"metadata flipped", func(b []byte) []byte { b[metaOffset+3] ^= 0xFF; return b }},
		{"metadata offset out of range", func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[len(b)-footerSize+8:], uint64(len(b)))
			return b
		}},
		{"unknown codec", func(b []byte) []byte { b[headerSize] = 'X'; return b }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			require.NoError(t, store.Put(ctx, "seg", tt.mutate(bytes.Clone(good))))
			_, err := Open(ctx, store, "seg")
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}

	t.Run("unsupported version", func(t *testing.T) {
		b := bytes.Clone(good)
		binary.LittleEndian.PutUint16(b[4:6], formatVersion+1)
		store := blobstore.NewMemoryStore()
		require.NoError(t, store.Put(ctx, "seg", b))
		_, err := Open(ctx, store, "seg")
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("posting flipped", func(t *testing.T) {
		// The first posting starts right after the header.
		b := bytes.Clone(good)
		b[headerLen+2] ^= 0xFF
		store := blobstore.NewMemoryStore()
		require.NoError(t, store.Put(ctx, "seg", b))

		r, err := Open(ctx, store, "seg")
		require.NoError(t, err)
		defer r.Close()
		_, _, err = r.Lookup(ctx, "f", []byte("a"))
		require.ErrorIs(t, err, ErrCorrupt)
	})
}
