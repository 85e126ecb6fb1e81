package termdict

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/termdict/blobstore"
	"github.com/hupe1980/termdict/blocktree"
	"github.com/hupe1980/termdict/codec"
	"github.com/hupe1980/termdict/internal/cache"
	"github.com/hupe1980/termdict/internal/hash"
)

// maxHeaderSize bounds the header read on open.
const maxHeaderSize = headerSize + codec.MaxNameLen

// Reader gives read access to a segment. It is safe for concurrent use;
// Close must not race with other calls.
type Reader struct {
	name     string
	blob     blobstore.Blob
	mappable bool
	meta     segmentMeta
	codec    codec.Codec
	opts     options
	memCache cache.BlockCache
	cache    cache.BlockCache
	fields   map[string]*field
	closed   atomic.Bool
}

type field struct {
	info    fieldInfo
	reader  *blocktree.FieldReader
	seekers sync.Pool
}

func (f *field) seeker() (*blocktree.Seeker, error) {
	if s, ok := f.seekers.Get().(*blocktree.Seeker); ok {
		return s, nil
	}
	return f.reader.Seeker()
}

// SegmentInfo summarizes an open segment.
type SegmentInfo struct {
	Name      string
	ID        string
	CreatedAt time.Time
	Codec     string
	Size      int64
	Fields    []FieldInfo
}

// FieldInfo summarizes one field of a segment.
type FieldInfo struct {
	Name        string
	NumTerms    int64
	SumDocFreq  int64
	MinTerm     []byte
	MaxTerm     []byte
	PostingsLen int64
	BlocksLen   int64
	IndexLen    int64
}

// Open opens the segment called name in store. The footer, header and
// metadata are verified and every field's terms index is loaded.
func Open(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Reader, error) {
	o := applyOptions(optFns)
	blob, err := store.Open(ctx, name)
	if err != nil {
		err = translateError(fmt.Errorf("termdict: open %q: %w", name, err))
		o.logger.LogOpen(ctx, 0, err)
		return nil, err
	}
	r, err := newReader(ctx, name, blob, o)
	if err != nil {
		_ = blob.Close()
		err = translateError(fmt.Errorf("termdict: open %q: %w", name, err))
		o.logger.LogOpen(ctx, 0, err)
		return nil, err
	}
	r.opts.logger = o.logger.WithSegment(name, r.meta.SegmentID)
	r.opts.logger.LogOpen(ctx, len(r.fields), nil)
	return r, nil
}

func newReader(ctx context.Context, name string, blob blobstore.Blob, o options) (*Reader, error) {
	size := blob.Size()
	if size < headerSize+footerSize {
		return nil, fmt.Errorf("%w: %d bytes is too small for a segment", ErrCorrupt, size)
	}
	tail, err := readSection(ctx, blob, size-footerSize, footerSize)
	if err != nil {
		return nil, err
	}
	ft, err := decodeFooter(tail, size)
	if err != nil {
		return nil, err
	}
	head, err := readSection(ctx, blob, 0, int(min(maxHeaderSize, int64(ft.metaOffset))))
	if err != nil {
		return nil, err
	}
	codecName, _, err := decodeHeader(head)
	if err != nil {
		return nil, err
	}
	c, err := codec.Lookup(codecName)
	if err != nil {
		return nil, &ErrUnknownCodec{Name: codecName}
	}

	metaBytes, err := readSection(ctx, blob, int64(ft.metaOffset), int(ft.metaLen))
	if err != nil {
		return nil, err
	}
	if computed := hash.CRC32C(metaBytes); computed != ft.checksum {
		return nil, fmt.Errorf("%w: metadata checksum mismatch: stored %08x, computed %08x", ErrCorrupt, ft.checksum, computed)
	}
	var meta segmentMeta
	if err := c.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %w", ErrCorrupt, err)
	}
	if err := meta.validate(int64(ft.metaOffset)); err != nil {
		return nil, err
	}

	_, mappable := blob.(blobstore.Mappable)
	r := &Reader{
		name:     name,
		blob:     blob,
		mappable: mappable,
		meta:     meta,
		codec:    c,
		opts:     o,
		fields:   make(map[string]*field, len(meta.Fields)),
	}
	if !mappable {
		r.memCache = o.blockCache(o.controller())
		r.cache = o.readCache(r.memCache)
	}
	for _, info := range meta.Fields {
		f, err := r.loadField(ctx, info)
		if err != nil {
			if r.memCache != nil {
				_ = r.memCache.Close()
			}
			return nil, err
		}
		r.fields[info.Name] = f
	}
	return r, nil
}

func (r *Reader) loadField(ctx context.Context, info fieldInfo) (*field, error) {
	var indexData []byte
	if info.Terms.HasIndex() {
		var err error
		indexData, err = readSection(ctx, r.blob, info.TermsOffset+info.Terms.IndexFP, int(info.Terms.IndexLen))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", info.Name, err)
		}
	}

	var src blocktree.BlockSource
	if r.mappable {
		section, err := readSection(ctx, r.blob, info.TermsOffset, int(info.TermsLen))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", info.Name, err)
		}
		src = blocktree.NewBytesSource(section, 0)
	} else {
		ra := io.NewSectionReader(blobstore.ReaderAt(context.WithoutCancel(ctx), r.blob), info.TermsOffset, info.TermsLen)
		srcOpts := []blocktree.SourceOption{blocktree.WithReadAhead(r.opts.readAhead)}
		if r.cache != nil {
			srcOpts = append(srcOpts, blocktree.WithBlockCache(r.cache, r.meta.SegmentID, info.Name))
		}
		src = &meteredSource{
			inner:   blocktree.NewReaderAtSource(ra, info.TermsLen, srcOpts...),
			metrics: r.opts.metricsCollector,
		}
	}

	fr, err := blocktree.NewFieldReader(info.Name, info.Terms, indexData, src)
	if err != nil {
		return nil, err
	}
	return &field{info: info, reader: fr}, nil
}

// Name returns the name the segment was opened with.
func (r *Reader) Name() string { return r.name }

// SegmentID returns the id recorded when the segment was written.
func (r *Reader) SegmentID() string { return r.meta.SegmentID }

// Fields returns the field names in ascending order.
func (r *Reader) Fields() []string {
	names := make([]string, 0, len(r.meta.Fields))
	for _, f := range r.meta.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Field returns the term dictionary of a field.
func (r *Reader) Field(name string) (*blocktree.FieldReader, error) {
	f, err := r.field(name)
	if err != nil {
		return nil, err
	}
	return f.reader, nil
}

func (r *Reader) field(name string) (*field, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	f, ok := r.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	return f, nil
}

// Info summarizes the segment and its fields.
func (r *Reader) Info() SegmentInfo {
	info := SegmentInfo{
		Name:      r.name,
		ID:        r.meta.SegmentID,
		CreatedAt: r.meta.CreatedAt,
		Codec:     r.codec.Name(),
		Size:      r.blob.Size(),
		Fields:    make([]FieldInfo, 0, len(r.meta.Fields)),
	}
	for _, f := range r.meta.Fields {
		info.Fields = append(info.Fields, FieldInfo{
			Name:        f.Name,
			NumTerms:    f.Terms.NumTerms,
			SumDocFreq:  f.Terms.SumDocFreq,
			MinTerm:     slices.Clone(f.Terms.MinTerm),
			MaxTerm:     slices.Clone(f.Terms.MaxTerm),
			PostingsLen: f.PostingsLen,
			BlocksLen:   f.Terms.BlocksLen,
			IndexLen:    f.Terms.IndexLen,
		})
	}
	return info
}

// Postings returns the documents of the term described by state, as
// returned by a Seeker of the same field.
func (r *Reader) Postings(ctx context.Context, fieldName string, state blocktree.TermState) (*roaring.Bitmap, error) {
	f, err := r.field(fieldName)
	if err != nil {
		return nil, err
	}
	docs, err := r.postings(ctx, f, state)
	return docs, translateError(err)
}

func (r *Reader) postings(ctx context.Context, f *field, state blocktree.TermState) (*roaring.Bitmap, error) {
	if state.PostingsLen < postingChecksumSize || !inRange(state.PostingsFP, state.PostingsLen, f.info.PostingsLen) {
		return nil, fmt.Errorf("%w: field %q: postings [%d,+%d) out of range", ErrCorrupt, f.info.Name, state.PostingsFP, state.PostingsLen)
	}
	off := f.info.PostingsOffset + state.PostingsFP

	key := cache.CacheKey{Kind: cache.CacheKindPostings, SegmentID: r.meta.SegmentID, Field: f.info.Name, Offset: uint64(off)}
	if r.cache != nil {
		if b, ok := r.cache.Get(ctx, key); ok {
			return decodePosting(b, off)
		}
	}
	b, err := readSection(ctx, r.blob, off, int(state.PostingsLen))
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.info.Name, err)
	}
	docs, err := decodePosting(b, off)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, key, b)
	}
	return docs, nil
}

// Lookup returns the documents containing term in field. found is false
// when the field has no such term.
func (r *Reader) Lookup(ctx context.Context, fieldName string, term []byte) (docs *roaring.Bitmap, found bool, err error) {
	start := time.Now()
	defer func() {
		r.opts.metricsCollector.RecordSeek(found, time.Since(start), err)
		r.opts.logger.LogSeek(ctx, fieldName, term, found, err)
	}()

	f, err := r.field(fieldName)
	if err != nil {
		return nil, false, err
	}
	if f.reader.NumTerms() == 0 {
		return nil, false, nil
	}
	s, err := f.seeker()
	if err != nil {
		return nil, false, translateError(err)
	}
	ok, err := s.SeekExact(term)
	if err != nil {
		return nil, false, translateError(err)
	}
	if !ok {
		f.seekers.Put(s)
		return nil, false, nil
	}
	state, err := s.TermState()
	if err != nil {
		return nil, false, translateError(err)
	}
	f.seekers.Put(s)

	docs, err = r.postings(ctx, f, state)
	if err != nil {
		return nil, false, translateError(err)
	}
	return docs, true, nil
}

// Scan yields every term of field in order with its documents.
func (r *Reader) Scan(ctx context.Context, fieldName string) iter.Seq2[Posting, error] {
	return func(yield func(Posting, error) bool) {
		f, err := r.field(fieldName)
		if err != nil {
			yield(Posting{}, err)
			return
		}
		if f.reader.NumTerms() == 0 {
			return
		}
		s, err := f.reader.Seeker()
		if err != nil {
			yield(Posting{}, translateError(err))
			return
		}
		for {
			if err := ctx.Err(); err != nil {
				yield(Posting{}, err)
				return
			}
			term, err := s.Next()
			if err != nil {
				yield(Posting{}, translateError(err))
				return
			}
			if term == nil {
				return
			}
			state, err := s.TermState()
			if err != nil {
				yield(Posting{}, translateError(err))
				return
			}
			docs, err := r.postings(ctx, f, state)
			if err != nil {
				yield(Posting{}, translateError(err))
				return
			}
			if !yield(Posting{Term: bytes.Clone(term), Docs: docs}, nil) {
				return
			}
		}
	}
}

// Close releases the segment. Field readers and seekers obtained from the
// Reader must not be used afterwards.
func (r *Reader) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	var errs []error
	// The disk cache is shared and owned by the caller.
	if r.memCache != nil {
		errs = append(errs, r.memCache.Close())
	}
	errs = append(errs, r.blob.Close())
	return errors.Join(errs...)
}

// readSection maps short reads to ErrCorrupt.
func readSection(ctx context.Context, b blobstore.Blob, off int64, n int) ([]byte, error) {
	data, err := blobstore.ReadSection(ctx, b, off, n)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: section [%d,+%d) is truncated", ErrCorrupt, off, n)
	}
	return data, err
}

// meteredSource reports block reads to a MetricsCollector.
type meteredSource struct {
	inner   *blocktree.ReaderAtSource
	metrics MetricsCollector
}

var _ blocktree.SuffixCache = (*meteredSource)(nil)

func (s *meteredSource) CachedSuffixes(fp int64) ([]byte, bool) {
	return s.inner.CachedSuffixes(fp)
}

func (s *meteredSource) StoreSuffixes(fp int64, suffixes []byte) {
	s.inner.StoreSuffixes(fp, suffixes)
}

func (s *meteredSource) ReadBlock(fp int64) ([]byte, error) {
	start := time.Now()
	b, err := s.inner.ReadBlock(fp)
	s.metrics.RecordBlockLoad(len(b), time.Since(start), err)
	return b, err
}
