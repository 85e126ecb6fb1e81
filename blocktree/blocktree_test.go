package blocktree

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/hupe1980/termdict/fst"
	"github.com/hupe1980/termdict/internal/cache"
	"github.com/hupe1980/termdict/internal/compress"
	"github.com/hupe1980/termdict/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader is written before the blocks so that pointers are not
// relative to zero.
const fileHeader = "HEAD"

type testField struct {
	terms [][]byte
	stats []TermStats
	data  []byte
	meta  *FieldMeta
	w     *Writer
	fr    *FieldReader
}

func statsFor(i int) TermStats {
	return TermStats{DocFreq: i%7 + 1, PostingsFP: int64(1000 + i*13), PostingsLen: int64(i%5 + 1)}
}

func writeField(t *testing.T, terms [][]byte, opts ...WriterOption) *testField {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	w, err := NewWriter(&buf, int64(buf.Len()), opts...)
	require.NoError(t, err)

	stats := make([]TermStats, len(terms))
	for i, term := range terms {
		stats[i] = statsFor(i)
		require.NoError(t, w.Add(term, stats[i]))
	}
	meta, err := w.Finish()
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), w.FilePointer())

	data := buf.Bytes()
	fr, err := NewFieldReader("body", *meta, data[meta.IndexFP:meta.IndexFP+meta.IndexLen], NewBytesSource(data, 0))
	require.NoError(t, err)
	return &testField{terms: terms, stats: stats, data: data, meta: meta, w: w, fr: fr}
}

func (f *testField) seeker(t *testing.T) *Seeker {
	t.Helper()
	s, err := f.fr.Seeker()
	require.NoError(t, err)
	return s
}

func (f *testField) ceil(target []byte) int {
	return sort.Search(len(f.terms), func(i int) bool { return bytes.Compare(f.terms[i], target) >= 0 })
}

type fieldCase struct {
	name  string
	terms func() [][]byte
	opts  []WriterOption
}

func fieldCases() []fieldCase {
	return []fieldCase{
		{
			name: "single leaf",
			terms: func() [][]byte {
				return [][]byte{[]byte("apple"), []byte("banana"), []byte("cherry"), []byte("date")}
			},
		},
		{
			name:  "random",
			terms: func() [][]byte { return testutil.NewRNG(1).SortedKeys(3000, 1, 8, "abcdefgh") },
		},
		{
			name:  "floor blocks",
			terms: func() [][]byte { return testutil.NewRNG(2).PrefixedKeys([]string{"a", "ab", "abc", "x"}, 400, 2) },
		},
		{
			name:  "small blocks",
			terms: func() [][]byte { return testutil.NewRNG(3).SortedKeys(800, 1, 6, "abcd") },
			opts:  []WriterOption{WithMinItemsInBlock(2), WithMaxItemsInBlock(3)},
		},
		{
			name:  "lz4",
			terms: func() [][]byte { return testutil.NewRNG(4).PrefixedKeys([]string{"user:", "group:"}, 300, 8) },
			opts:  []WriterOption{WithCompression(compress.LZ4)},
		},
		{
			name:  "zstd",
			terms: func() [][]byte { return testutil.NewRNG(5).SortedKeys(2000, 4, 12, testutil.Lowercase) },
			opts:  []WriterOption{WithCompression(compress.ZSTD)},
		},
		{
			name:  "binary",
			terms: func() [][]byte { return testutil.NewRNG(6).SortedKeys(1500, 1, 5, testutil.Binary) },
		},
	}
}

func TestSeeker_NextVisitsAllTerms(t *testing.T) {
	for _, tc := range fieldCases() {
		t.Run(tc.name, func(t *testing.T) {
			f := writeField(t, tc.terms(), tc.opts...)
			s := f.seeker(t)

			for i, want := range f.terms {
				got, err := s.Next()
				require.NoError(t, err)
				require.Equal(t, want, got, "term %d", i)

				st, err := s.TermState()
				require.NoError(t, err)
				require.Equal(t, f.stats[i], st.TermStats, "term %q", want)
			}
			got, err := s.Next()
			require.NoError(t, err)
			assert.Nil(t, got)

			// Stays exhausted.
			got, err = s.Next()
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestSeeker_SeekExact(t *testing.T) {
	for _, tc := range fieldCases() {
		t.Run(tc.name, func(t *testing.T) {
			f := writeField(t, tc.terms(), tc.opts...)
			s := f.seeker(t)
			rng := testutil.NewRNG(7)

			// Random order, then sorted order.
			for range len(f.terms) {
				i := rng.Intn(len(f.terms))
				found, err := s.SeekExact(f.terms[i])
				require.NoError(t, err)
				require.True(t, found, "term %q", f.terms[i])
				assert.Equal(t, f.terms[i], s.Term())

				df, err := s.DocFreq()
				require.NoError(t, err)
				assert.Equal(t, f.stats[i].DocFreq, df)
			}
			for i, term := range f.terms {
				found, err := s.SeekExact(term)
				require.NoError(t, err)
				require.True(t, found, "term %q", term)

				st, err := s.TermState()
				require.NoError(t, err)
				assert.Equal(t, f.stats[i], st.TermStats)
			}
		})
	}
}

func TestSeeker_SeekExactAbsent(t *testing.T) {
	for _, tc := range fieldCases() {
		t.Run(tc.name, func(t *testing.T) {
			f := writeField(t, tc.terms(), tc.opts...)
			present := make(map[string]bool, len(f.terms))
			for _, term := range f.terms {
				present[string(term)] = true
			}
			s := f.seeker(t)
			rng := testutil.NewRNG(8)

			for range 3000 {
				var target []byte
				if rng.Intn(3) == 0 {
					// Extend a real term so the index walk goes deep.
					target = append(bytes.Clone(f.terms[rng.Intn(len(f.terms))]), rng.Key(1, 2, "az\x00\xff")...)
				} else {
					target = rng.Key(0, 9, "abcdxyz:ru\x00\xff")
				}
				found, err := s.SeekExact(target)
				require.NoError(t, err)
				require.Equal(t, present[string(target)], found, "target %q", target)
				if found {
					assert.Equal(t, target, s.Term())
				} else {
					assert.Nil(t, s.Term())
				}
			}
		})
	}
}

func TestSeeker_SeekCeil(t *testing.T) {
	for _, tc := range fieldCases() {
		t.Run(tc.name, func(t *testing.T) {
			f := writeField(t, tc.terms(), tc.opts...)
			s := f.seeker(t)
			rng := testutil.NewRNG(9)

			targets := make([][]byte, 0, 2000)
			for range 2000 {
				targets = append(targets, rng.Key(0, 9, "abcdhxyz:ru\x00\xff"))
			}

			check := func(target []byte) {
				want := f.ceil(target)
				status, err := s.SeekCeil(target)
				require.NoError(t, err)
				switch {
				case want == len(f.terms):
					require.Equal(t, SeekEnd, status, "target %q", target)
					assert.Nil(t, s.Term())
					return
				case bytes.Equal(f.terms[want], target):
					require.Equal(t, SeekFound, status, "target %q", target)
				default:
					require.Equal(t, SeekNotFound, status, "target %q", target)
				}
				require.Equal(t, f.terms[want], s.Term(), "target %q", target)

				st, err := s.TermState()
				require.NoError(t, err)
				require.Equal(t, f.stats[want], st.TermStats, "target %q", target)

				// Iteration continues from the seek position.
				next, err := s.Next()
				require.NoError(t, err)
				if want+1 < len(f.terms) {
					require.Equal(t, f.terms[want+1], next, "next after %q", target)
				} else {
					require.Nil(t, next)
				}
			}

			for _, target := range targets {
				check(target)
			}
			sort.Slice(targets, func(i, j int) bool { return bytes.Compare(targets[i], targets[j]) < 0 })
			for _, target := range targets {
				check(target)
			}
		})
	}
}

func TestSeeker_ReuseIsTransparent(t *testing.T) {
	terms := testutil.NewRNG(10).PrefixedKeys([]string{"foo", "foob", "fooba", "g"}, 200, 4)
	f := writeField(t, terms, WithMinItemsInBlock(4), WithMaxItemsInBlock(8))
	rng := testutil.NewRNG(11)

	reused := f.seeker(t)
	for range 2000 {
		target := f.terms[rng.Intn(len(f.terms))]
		if rng.Intn(2) == 0 {
			target = append(bytes.Clone(target[:rng.Intn(len(target)+1)]), rng.Key(0, 3, "abz")...)
		}

		fresh := f.seeker(t)
		wantStatus, err := fresh.SeekCeil(target)
		require.NoError(t, err)
		gotStatus, err := reused.SeekCeil(target)
		require.NoError(t, err)
		require.Equal(t, wantStatus, gotStatus, "target %q", target)
		require.Equal(t, fresh.Term(), reused.Term(), "target %q", target)

		wantFound, err := fresh.SeekExact(target)
		require.NoError(t, err)
		gotFound, err := reused.SeekExact(target)
		require.NoError(t, err)
		require.Equal(t, wantFound, gotFound, "target %q", target)
	}
}

func TestSeeker_MixedNextAndSeek(t *testing.T) {
	f := writeField(t, testutil.NewRNG(12).SortedKeys(2000, 1, 6, "abcde"), WithMinItemsInBlock(3), WithMaxItemsInBlock(6))
	s := f.seeker(t)
	rng := testutil.NewRNG(13)

	pos := -1
	for range 5000 {
		switch rng.Intn(3) {
		case 0:
			i := rng.Intn(len(f.terms))
			found, err := s.SeekExact(f.terms[i])
			require.NoError(t, err)
			require.True(t, found)
			pos = i
		case 1:
			target := rng.Key(0, 7, "abcdef")
			status, err := s.SeekCeil(target)
			require.NoError(t, err)
			pos = f.ceil(target)
			if pos == len(f.terms) {
				require.Equal(t, SeekEnd, status)
				pos = len(f.terms)
			}
		default:
			if pos < 0 || pos >= len(f.terms) {
				continue
			}
			next, err := s.Next()
			require.NoError(t, err)
			pos++
			if pos == len(f.terms) {
				require.Nil(t, next)
				continue
			}
			require.Equal(t, f.terms[pos], next)
		}
		if pos >= 0 && pos < len(f.terms) {
			require.Equal(t, f.terms[pos], s.Term())
		}
	}
}

func TestSeeker_SeekExactState(t *testing.T) {
	f := writeField(t, testutil.NewRNG(14).SortedKeys(1000, 1, 6, "abcd"))
	s := f.seeker(t)

	i := len(f.terms) / 3
	found, err := s.SeekExact(f.terms[i])
	require.NoError(t, err)
	require.True(t, found)
	st, err := s.TermState()
	require.NoError(t, err)

	other := f.seeker(t)
	other.SeekExactState(f.terms[i], st)
	assert.Equal(t, f.terms[i], other.Term())

	got, err := other.TermState()
	require.NoError(t, err)
	assert.Equal(t, f.stats[i], got.TermStats)

	next, err := other.Next()
	require.NoError(t, err)
	assert.Equal(t, f.terms[i+1], next)

	got, err = other.TermState()
	require.NoError(t, err)
	assert.Equal(t, f.stats[i+1], got.TermStats)
}

func TestSeeker_MinMaxShortCircuit(t *testing.T) {
	f := writeField(t, [][]byte{[]byte("m"), []byte("n"), []byte("o")})
	s := f.seeker(t)

	found, err := s.SeekExact([]byte("a"))
	require.NoError(t, err)
	assert.False(t, found)

	status, err := s.SeekCeil([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, SeekNotFound, status)
	assert.Equal(t, []byte("m"), s.Term())

	status, err = s.SeekCeil([]byte("z"))
	require.NoError(t, err)
	assert.Equal(t, SeekEnd, status)
	assert.Nil(t, s.Term())

	next, err := s.Next()
	require.NoError(t, err)
	assert.Nil(t, next)

	status, err = s.SeekCeil([]byte("n"))
	require.NoError(t, err)
	assert.Equal(t, SeekFound, status)
}

func TestSeeker_NotPositioned(t *testing.T) {
	f := writeField(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	s := f.seeker(t)

	_, err := s.TermState()
	require.ErrorIs(t, err, ErrNotPositioned)

	found, err := s.SeekExact([]byte("bb"))
	require.NoError(t, err)
	require.False(t, found)

	_, err = s.Next()
	require.ErrorIs(t, err, ErrNotPositioned)

	// Not a poisoning error.
	found, err = s.SeekExact([]byte("c"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSeeker_EmptyTerm(t *testing.T) {
	terms := [][]byte{{}, []byte("a"), []byte("b")}
	f := writeField(t, terms)
	s := f.seeker(t)

	found, err := s.SeekExact(nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, s.Term())

	next, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), next)

	status, err := s.SeekCeil([]byte{})
	require.NoError(t, err)
	assert.Equal(t, SeekFound, status)
}

func TestWriter_FloorBlocks(t *testing.T) {
	f := writeField(t, testutil.NewRNG(15).PrefixedKeys([]string{"p"}, 600, 2))
	assert.Positive(t, f.w.numFloorBlocks)
	assert.Positive(t, f.w.numLeafBlocks)
	assert.Equal(t, int64(len(f.terms)), f.meta.NumTerms)
	assert.Equal(t, f.terms[0], f.meta.MinTerm)
	assert.Equal(t, f.terms[len(f.terms)-1], f.meta.MaxTerm)
}

func TestWriter_Meta(t *testing.T) {
	f := writeField(t, [][]byte{[]byte("a"), []byte("b")})
	var sum int64
	for _, st := range f.stats {
		sum += int64(st.DocFreq)
	}
	assert.Equal(t, sum, f.meta.SumDocFreq)
	assert.Equal(t, int64(len(fileHeader)), f.meta.BlocksFP)
	assert.Equal(t, f.meta.BlocksFP+f.meta.BlocksLen, f.meta.IndexFP)
	assert.Equal(t, int64(len(f.data)), f.meta.IndexFP+f.meta.IndexLen)
	assert.True(t, f.meta.HasIndex())
}

func TestWriter_EmptyField(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 0)
	require.NoError(t, err)
	meta, err := w.Finish()
	require.NoError(t, err)
	assert.Zero(t, meta.NumTerms)
	assert.False(t, meta.HasIndex())
	assert.Zero(t, buf.Len())

	fr, err := NewFieldReader("empty", *meta, nil, NewBytesSource(nil, 0))
	require.NoError(t, err)
	_, err = fr.Seeker()
	require.ErrorIs(t, err, ErrIndexNotLoaded)

	_, err = w.Finish()
	require.ErrorIs(t, err, ErrWriterClosed)
	require.ErrorIs(t, w.Add([]byte("x"), TermStats{}), ErrWriterClosed)
}

func TestWriter_OutOfOrder(t *testing.T) {
	for _, terms := range [][]string{{"b", "a"}, {"a", "a"}, {"ab", "a"}} {
		var buf bytes.Buffer
		w, err := NewWriter(&buf, 0)
		require.NoError(t, err)
		require.NoError(t, w.Add([]byte(terms[0]), TermStats{DocFreq: 1}))

		err = w.Add([]byte(terms[1]), TermStats{DocFreq: 1})
		var orderErr *TermOrderError
		require.ErrorAs(t, err, &orderErr)
		assert.ErrorIs(t, err, fst.ErrConstructionContract)
		assert.Equal(t, []byte(terms[0]), orderErr.Previous)

		// Poisoned.
		assert.ErrorIs(t, w.Add([]byte("z"), TermStats{DocFreq: 1}), fst.ErrConstructionContract)
		_, err = w.Finish()
		assert.ErrorIs(t, err, fst.ErrConstructionContract)
	}
}

func TestWriter_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []WriterOption
	}{
		{"min too small", []WriterOption{WithMinItemsInBlock(1)}},
		{"max below min", []WriterOption{WithMinItemsInBlock(10), WithMaxItemsInBlock(12)}},
		{"unknown codec", []WriterOption{WithCompression(compress.Type(9))}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWriter(&bytes.Buffer{}, 0, tc.opts...)
			require.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestSeeker_CorruptBlock(t *testing.T) {
	f := writeField(t, testutil.NewRNG(16).SortedKeys(500, 2, 5, "abc"))
	data := bytes.Clone(f.data)
	// Flip a byte in the body of the first block.
	bodyLen, n := binary.Uvarint(data[f.meta.BlocksFP:])
	require.Positive(t, n)
	data[f.meta.BlocksFP+int64(n)+int64(bodyLen/2)] ^= 0xff

	fr, err := NewFieldReader("body", *f.meta, data[f.meta.IndexFP:], NewBytesSource(data, 0))
	require.NoError(t, err)
	s, err := fr.Seeker()
	require.NoError(t, err)

	var firstErr error
	for _, term := range f.terms {
		if _, err := s.SeekExact(term); err != nil {
			firstErr = err
			break
		}
	}
	require.Error(t, firstErr)
	assert.ErrorIs(t, firstErr, ErrCorrupt)
	var crcErr *ChecksumMismatchError
	assert.True(t, errors.As(firstErr, &crcErr))

	// Poisoned.
	_, err = s.SeekExact(f.terms[0])
	assert.Equal(t, firstErr, err)
	_, err = s.Next()
	assert.Equal(t, firstErr, err)
}

func TestFieldReader_CorruptIndex(t *testing.T) {
	f := writeField(t, testutil.NewRNG(17).SortedKeys(100, 2, 5, "abc"))
	data := bytes.Clone(f.data)
	data[f.meta.IndexFP+f.meta.IndexLen/2] ^= 0x01

	_, err := NewFieldReader("body", *f.meta, data[f.meta.IndexFP:], NewBytesSource(data, 0))
	require.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, err, fst.ErrCorrupt)

	meta := *f.meta
	meta.RootCode = []byte{0x01}
	_, err = NewFieldReader("body", meta, f.data[f.meta.IndexFP:], NewBytesSource(f.data, 0))
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestReaderAtSource_Cache(t *testing.T) {
	f := writeField(t, testutil.NewRNG(18).SortedKeys(2000, 1, 6, "abcdef"), WithCompression(compress.LZ4))
	c := cache.NewLRUBlockCache(1<<20, nil)
	src := NewReaderAtSource(bytes.NewReader(f.data), int64(len(f.data)),
		WithBlockCache(c, "seg-1", "body"), WithReadAhead(64))

	fr, err := NewFieldReader("body", *f.meta, f.data[f.meta.IndexFP:], src)
	require.NoError(t, err)

	for range 2 {
		s, err := fr.Seeker()
		require.NoError(t, err)
		for i, term := range f.terms {
			found, err := s.SeekExact(term)
			require.NoError(t, err)
			require.True(t, found)
			st, err := s.TermState()
			require.NoError(t, err)
			require.Equal(t, f.stats[i], st.TermStats)
		}
	}
	hits, misses := c.Stats()
	assert.Positive(t, hits)
	assert.Positive(t, misses)
	assert.Positive(t, c.Len())
}

// compressibleTerms repeats a long tail in every term so that block suffixes
// always compress.
func compressibleTerms(n int) [][]byte {
	terms := make([][]byte, n)
	for i := range terms {
		terms[i] = []byte(fmt.Sprintf("doc%05d.segment-payload.segment-payload", i))
	}
	return terms
}

// suffixCountingSource records suffix cache traffic.
type suffixCountingSource struct {
	*BytesSource
	cached map[int64][]byte
	stores map[int64]int
	hits   int
}

func (s *suffixCountingSource) CachedSuffixes(fp int64) ([]byte, bool) {
	b, ok := s.cached[fp]
	if ok {
		s.hits++
	}
	return b, ok
}

func (s *suffixCountingSource) StoreSuffixes(fp int64, b []byte) {
	s.cached[fp] = b
	s.stores[fp]++
}

func seekAll(t *testing.T, fr *FieldReader, f *testField) {
	t.Helper()
	s, err := fr.Seeker()
	require.NoError(t, err)
	for i, term := range f.terms {
		found, err := s.SeekExact(term)
		require.NoError(t, err)
		require.True(t, found)
		st, err := s.TermState()
		require.NoError(t, err)
		require.Equal(t, f.stats[i], st.TermStats)
	}
	// Reverse order reloads blocks the frames already left.
	for i := len(f.terms) - 1; i >= 0; i-- {
		status, err := s.SeekCeil(f.terms[i])
		require.NoError(t, err)
		require.Equal(t, SeekFound, status)
	}
}

func TestSeeker_SuffixCache(t *testing.T) {
	f := writeField(t, compressibleTerms(1500), WithCompression(compress.LZ4))
	src := &suffixCountingSource{
		BytesSource: NewBytesSource(f.data, 0),
		cached:      map[int64][]byte{},
		stores:      map[int64]int{},
	}
	fr, err := NewFieldReader("body", *f.meta, f.data[f.meta.IndexFP:], src)
	require.NoError(t, err)

	seekAll(t, fr, f)
	require.NotEmpty(t, src.stores)
	for fp, n := range src.stores {
		assert.Equal(t, 1, n, "block at %d decompressed more than once", fp)
	}
	stored := len(src.stores)

	// A fresh seeker is served from the cache.
	seekAll(t, fr, f)
	assert.Len(t, src.stores, stored)
	for _, n := range src.stores {
		assert.Equal(t, 1, n)
	}
	assert.Positive(t, src.hits)
}

func TestSeeker_SuffixCacheUncompressed(t *testing.T) {
	f := writeField(t, testutil.NewRNG(20).SortedKeys(500, 1, 6, "abcdef"))
	src := &suffixCountingSource{
		BytesSource: NewBytesSource(f.data, 0),
		cached:      map[int64][]byte{},
		stores:      map[int64]int{},
	}
	fr, err := NewFieldReader("body", *f.meta, f.data[f.meta.IndexFP:], src)
	require.NoError(t, err)

	seekAll(t, fr, f)
	assert.Empty(t, src.stores, "uncompressed suffixes are not cached")
	assert.Zero(t, src.hits)
}

// kindCountingCache counts Set calls per kind.
type kindCountingCache struct {
	cache.BlockCache
	sets map[cache.CacheKind]int
}

func (c *kindCountingCache) Set(ctx context.Context, key cache.CacheKey, b []byte) {
	c.sets[key.Kind]++
	c.BlockCache.Set(ctx, key, b)
}

func TestReaderAtSource_SuffixCache(t *testing.T) {
	f := writeField(t, compressibleTerms(2000), WithCompression(compress.ZSTD))
	c := &kindCountingCache{BlockCache: cache.NewLRUBlockCache(1<<22, nil), sets: map[cache.CacheKind]int{}}
	src := NewReaderAtSource(bytes.NewReader(f.data), int64(len(f.data)), WithBlockCache(c, "seg-1", "body"))

	fr, err := NewFieldReader("body", *f.meta, f.data[f.meta.IndexFP:], src)
	require.NoError(t, err)

	seekAll(t, fr, f)
	suffixSets := c.sets[cache.CacheKindSuffixes]
	blockSets := c.sets[cache.CacheKindTermBlocks]
	require.Positive(t, suffixSets)
	require.Positive(t, blockSets)

	seekAll(t, fr, f)
	assert.Equal(t, suffixSets, c.sets[cache.CacheKindSuffixes])
	assert.Equal(t, blockSets, c.sets[cache.CacheKindTermBlocks])
}

func TestReaderAtSource_OutOfRange(t *testing.T) {
	src := NewReaderAtSource(bytes.NewReader([]byte{0x05, 1, 2}), 3)
	_, err := src.ReadBlock(0)
	require.ErrorIs(t, err, ErrCorrupt)
	_, err = src.ReadBlock(10)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestReaderAtSource_CorruptLength(t *testing.T) {
	tests := []struct {
		name    string
		bodyLen uint64
	}{
		{"overflowing", 1 << 63},
		{"max uint64", ^uint64(0)},
		{"one past end", 64 - checksumSize + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := binary.AppendUvarint(nil, tt.bodyLen)
			data = append(data, make([]byte, 64)...)
			src := NewReaderAtSource(bytes.NewReader(data), int64(len(data)), WithReadAhead(16))
			_, err := src.ReadBlock(0)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
