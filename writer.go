package termdict

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/termdict/blobstore"
	"github.com/hupe1980/termdict/blocktree"
	"github.com/hupe1980/termdict/internal/conv"
	"github.com/hupe1980/termdict/internal/hash"
	"github.com/hupe1980/termdict/internal/resource"
)

// Posting is a term and the documents that contain it.
type Posting struct {
	Term []byte
	Docs *roaring.Bitmap
}

// SortedPostings yields the entries of m in ascending term order.
func SortedPostings(m map[string]*roaring.Bitmap) iter.Seq2[Posting, error] {
	return func(yield func(Posting, error) bool) {
		for _, term := range slices.Sorted(maps.Keys(m)) {
			if !yield(Posting{Term: []byte(term), Docs: m[term]}, nil) {
				return
			}
		}
	}
}

// Writer writes one segment. Terms are added per field in strictly
// ascending byte order; fields may interleave. The segment becomes visible
// in the store when Close returns without error.
//
// A Writer is not safe for concurrent use. Any error other than a rejected
// empty posting poisons it, and Close then discards the segment.
type Writer struct {
	opts   options
	rc     *resource.Controller
	blob   blobstore.WritableBlob
	id     string
	logger *Logger

	fields   map[string]*fieldWriter
	numTerms int64
	start    time.Time

	err    error
	closed bool
}

// NewWriter starts a segment called name in store.
func NewWriter(ctx context.Context, store blobstore.WritableStore, name string, optFns ...Option) (*Writer, error) {
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	blob, err := store.Create(ctx, name)
	if err != nil {
		return nil, translateError(fmt.Errorf("termdict: create %q: %w", name, err))
	}
	id := uuid.NewString()
	return &Writer{
		opts:   o,
		rc:     o.controller(),
		blob:   blob,
		id:     id,
		logger: o.logger.WithSegment(name, id),
		fields: make(map[string]*fieldWriter),
		start:  time.Now(),
	}, nil
}

// SegmentID returns the unique id recorded in the segment metadata.
func (w *Writer) SegmentID() string { return w.id }

// NumTerms returns the number of terms added so far across all fields.
func (w *Writer) NumTerms() int64 { return w.numTerms }

// Add appends term with its documents to field.
func (w *Writer) Add(field string, term []byte, docs *roaring.Bitmap) error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if docs == nil || docs.IsEmpty() {
		return fmt.Errorf("%w: field %q: term %q has no documents", ErrConstructionContract, field, term)
	}

	fw, ok := w.fields[field]
	if !ok {
		var err error
		if fw, err = newFieldWriter(field, &w.opts); err != nil {
			return w.fail(err)
		}
		w.fields[field] = fw
	}
	if err := fw.add(term, docs); err != nil {
		return w.fail(err)
	}
	if err := fw.account(w.rc); err != nil {
		return w.fail(err)
	}
	w.numTerms++
	return nil
}

// Close finishes every field and publishes the segment. On error nothing
// is published.
func (w *Writer) Close(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	defer func() {
		for _, fw := range w.fields {
			fw.release(w.rc)
		}
	}()

	fields := make([]*fieldWriter, 0, len(w.fields))
	for _, name := range slices.Sorted(maps.Keys(w.fields)) {
		fields = append(fields, w.fields[name])
	}

	err := w.err
	if err == nil {
		for _, fw := range fields {
			if err = fw.finish(); err != nil {
				break
			}
		}
	}
	w.opts.metricsCollector.RecordBuild(len(fields), w.numTerms, time.Since(w.start), err)
	w.logger.LogBuild(ctx, len(fields), w.numTerms, err)
	if err != nil {
		_ = blobstore.Abort(context.WithoutCancel(ctx), w.blob)
		return err
	}
	return publish(ctx, w.blob, fields, w.id, &w.opts, w.rc, w.logger)
}

func (w *Writer) fail(err error) error {
	w.err = err
	return err
}

// BuildFields writes a segment from one sorted posting sequence per field.
// Fields are built concurrently, bounded by WithMaxConcurrentBuilds, and the
// segment is only created in the store once every field has been built. It
// returns the segment id.
func BuildFields(ctx context.Context, store blobstore.WritableStore, name string, fields map[string]iter.Seq2[Posting, error], optFns ...Option) (string, error) {
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return "", err
	}
	rc := o.controller()
	id := uuid.NewString()
	logger := o.logger.WithSegment(name, id)
	start := time.Now()

	names := slices.Sorted(maps.Keys(fields))
	fws := make([]*fieldWriter, len(names))
	defer func() {
		for _, fw := range fws {
			if fw != nil {
				fw.release(rc)
			}
		}
	}()

	var numTerms atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i, field := range names {
		g.Go(func() error {
			if err := rc.AcquireBuild(gctx); err != nil {
				return err
			}
			defer rc.ReleaseBuild()

			fw, err := newFieldWriter(field, &o)
			if err != nil {
				return err
			}
			fws[i] = fw
			for p, err := range fields[field] {
				if err != nil {
					return fmt.Errorf("termdict: field %q: %w", field, err)
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				if p.Docs == nil || p.Docs.IsEmpty() {
					return fmt.Errorf("%w: field %q: term %q has no documents", ErrConstructionContract, field, p.Term)
				}
				if err := fw.add(p.Term, p.Docs); err != nil {
					return err
				}
				if err := fw.account(rc); err != nil {
					return err
				}
				numTerms.Add(1)
			}
			return fw.finish()
		})
	}
	err := g.Wait()
	o.metricsCollector.RecordBuild(len(names), numTerms.Load(), time.Since(start), err)
	logger.LogBuild(ctx, len(names), numTerms.Load(), err)
	if err != nil {
		return "", err
	}

	blob, err := store.Create(ctx, name)
	if err != nil {
		return "", translateError(fmt.Errorf("termdict: create %q: %w", name, err))
	}
	if err := publish(ctx, blob, fws, id, &o, rc, logger); err != nil {
		return "", err
	}
	return id, nil
}

// publish writes the segment to blob and closes it, or aborts it on error.
func publish(ctx context.Context, blob blobstore.WritableBlob, fields []*fieldWriter, id string, o *options, rc *resource.Controller, logger *Logger) error {
	start := time.Now()
	n, err := writeSegment(ctx, blob, fields, id, o, rc)
	if err != nil {
		if aerr := blobstore.Abort(context.WithoutCancel(ctx), blob); aerr != nil {
			err = errors.Join(err, aerr)
		}
	} else if err = blob.Close(); err != nil {
		err = fmt.Errorf("termdict: publish segment: %w", err)
	}
	err = translateError(err)
	o.metricsCollector.RecordFlush(n, time.Since(start), err)
	logger.LogFlush(ctx, n, err)
	return err
}

func writeSegment(ctx context.Context, blob io.Writer, fields []*fieldWriter, id string, o *options, rc *resource.Controller) (int64, error) {
	cw := hash.NewChecksumWriter(resource.NewRateLimitedWriter(ctx, blob, rc))

	hdr, err := encodeHeader(o.codec.Name())
	if err != nil {
		return 0, err
	}
	if _, err := cw.Write(hdr); err != nil {
		return cw.Count(), fmt.Errorf("termdict: write header: %w", err)
	}

	meta := segmentMeta{
		Version:   formatVersion,
		SegmentID: id,
		CreatedAt: time.Now().UTC(),
		Fields:    make([]fieldInfo, 0, len(fields)),
	}
	for _, fw := range fields {
		info := fieldInfo{
			Name:           fw.name,
			PostingsOffset: cw.Count(),
			PostingsLen:    int64(len(fw.postings)),
			Terms:          *fw.meta,
		}
		if _, err := cw.Write(fw.postings); err != nil {
			return cw.Count(), fmt.Errorf("termdict: field %q: write postings: %w", fw.name, err)
		}
		info.TermsOffset = cw.Count()
		info.TermsLen = int64(fw.terms.Len())
		if _, err := fw.terms.WriteTo(cw); err != nil {
			return cw.Count(), fmt.Errorf("termdict: field %q: write terms: %w", fw.name, err)
		}
		meta.Fields = append(meta.Fields, info)
	}

	metaBytes, err := o.codec.Marshal(&meta)
	if err != nil {
		return cw.Count(), fmt.Errorf("termdict: encode metadata: %w", err)
	}
	metaLen, err := conv.IntToUint32(len(metaBytes))
	if err != nil {
		return cw.Count(), fmt.Errorf("termdict: metadata too large: %w", err)
	}
	ft := footer{
		metaOffset: uint64(cw.Count()),
		metaLen:    metaLen,
		checksum:   hash.CRC32C(metaBytes),
	}
	if _, err := cw.Write(metaBytes); err != nil {
		return cw.Count(), fmt.Errorf("termdict: write metadata: %w", err)
	}
	if _, err := cw.Write(ft.encode()); err != nil {
		return cw.Count(), fmt.Errorf("termdict: write footer: %w", err)
	}
	return cw.Count(), nil
}

// fieldWriter buffers the postings and term blocks of one field.
type fieldWriter struct {
	name     string
	postings []byte
	terms    bytes.Buffer
	bt       *blocktree.Writer
	meta     *blocktree.FieldMeta
	reserved int64
}

func newFieldWriter(name string, o *options) (*fieldWriter, error) {
	fw := &fieldWriter{name: name}
	bt, err := blocktree.NewWriter(&fw.terms, 0, o.writerOptions()...)
	if err != nil {
		return nil, translateError(err)
	}
	fw.bt = bt
	return fw, nil
}

func (fw *fieldWriter) add(term []byte, docs *roaring.Bitmap) error {
	docFreq, err := conv.Uint64ToInt(docs.GetCardinality())
	if err != nil {
		return fmt.Errorf("termdict: field %q: %w", fw.name, err)
	}
	start := len(fw.postings)
	buf, err := appendPosting(fw.postings, docs)
	if err != nil {
		return err
	}
	stats := blocktree.TermStats{
		DocFreq:     docFreq,
		PostingsFP:  int64(start),
		PostingsLen: int64(len(buf) - start),
	}
	if err := fw.bt.Add(term, stats); err != nil {
		err = translateError(err)
		var ooo *ErrOutOfOrder
		if errors.As(err, &ooo) {
			ooo.Field = fw.name
		}
		return err
	}
	fw.postings = buf
	return nil
}

func (fw *fieldWriter) finish() error {
	meta, err := fw.bt.Finish()
	if err != nil {
		return fmt.Errorf("termdict: field %q: %w", fw.name, translateError(err))
	}
	fw.meta = meta
	return nil
}

func (fw *fieldWriter) size() int64 {
	return int64(len(fw.postings) + fw.terms.Len())
}

// account reserves the buffer growth since the last call.
func (fw *fieldWriter) account(rc *resource.Controller) error {
	delta := fw.size() - fw.reserved
	if err := rc.AcquireMemory(delta); err != nil {
		return fmt.Errorf("termdict: field %q: %w", fw.name, err)
	}
	fw.reserved += delta
	return nil
}

func (fw *fieldWriter) release(rc *resource.Controller) {
	rc.ReleaseMemory(fw.reserved)
	fw.reserved = 0
}
