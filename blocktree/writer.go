package blocktree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hupe1980/termdict/fst"
	"github.com/hupe1980/termdict/internal/compress"
	"github.com/hupe1980/termdict/internal/encoding"
)

// ErrInvalidOptions is returned by NewWriter for inconsistent block sizes.
var ErrInvalidOptions = errors.New("blocktree: invalid writer options")

// Writer writes the terms of one field as a block tree. Terms must be added
// in strictly ascending byte order.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	w    io.Writer
	fp   int64
	opts writerOptions

	indexOpts []fst.BuilderOption

	pending   []pendingEntry
	newBlocks []*pendingBlock
	// prefixStarts[i] is the index in pending of the first entry that shares
	// the first i+1 bytes of lastTerm.
	prefixStarts []int
	lastTerm     []byte

	suffixBuf []byte
	statsBuf  []byte
	metaBuf   []byte
	bodyBuf   []byte
	frameBuf  []byte
	zipBuf    []byte

	blocksFP   int64
	numTerms   int64
	sumDocFreq int64
	minTerm    []byte

	numBlocks      int64
	numLeafBlocks  int64
	numFloorBlocks int64

	finished bool
	err      error
}

type pendingEntry interface {
	isTerm() bool
}

type pendingTerm struct {
	term  []byte
	stats TermStats
}

func (*pendingTerm) isTerm() bool { return true }

type pendingBlock struct {
	prefix        []byte
	fp            int64
	index         *fst.FST[[]byte]
	subIndices    []*fst.FST[[]byte]
	hasTerms      bool
	isFloor       bool
	floorLeadByte int
}

func (*pendingBlock) isTerm() bool { return false }

// NewWriter creates a Writer that appends blocks to w. baseFP is the file
// offset w is positioned at; all recorded pointers are absolute.
func NewWriter(w io.Writer, baseFP int64, opts ...WriterOption) (*Writer, error) {
	o := defaultWriterOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.minItemsInBlock < 2 {
		return nil, fmt.Errorf("%w: minItemsInBlock must be >= 2, got %d", ErrInvalidOptions, o.minItemsInBlock)
	}
	if o.maxItemsInBlock < 2*(o.minItemsInBlock-1) {
		return nil, fmt.Errorf("%w: maxItemsInBlock must be >= 2*(minItemsInBlock-1), got min=%d max=%d",
			ErrInvalidOptions, o.minItemsInBlock, o.maxItemsInBlock)
	}
	if !o.compression.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, compress.ErrUnknownType)
	}

	indexOpts := make([]fst.BuilderOption, 0, len(o.indexOptions)+1)
	indexOpts = append(indexOpts, fst.WithShareNonSingletonNodes(false))
	indexOpts = append(indexOpts, o.indexOptions...)

	return &Writer{
		w:         w,
		fp:        baseFP,
		blocksFP:  baseFP,
		opts:      o,
		indexOpts: indexOpts,
	}, nil
}

// FilePointer returns the absolute offset of the next byte to be written.
func (w *Writer) FilePointer() int64 { return w.fp }

// NumTerms returns the number of terms added so far.
func (w *Writer) NumTerms() int64 { return w.numTerms }

// Add appends a term. An out-of-order or duplicate term returns a
// *TermOrderError and poisons the writer.
func (w *Writer) Add(term []byte, stats TermStats) error {
	if w.err != nil {
		return w.err
	}
	if w.finished {
		return ErrWriterClosed
	}
	if w.numTerms > 0 && bytes.Compare(term, w.lastTerm) <= 0 {
		w.err = &TermOrderError{Previous: bytes.Clone(w.lastTerm), Current: bytes.Clone(term)}
		return w.err
	}
	if stats.DocFreq < 0 || stats.PostingsFP < 0 || stats.PostingsLen < 0 {
		return fmt.Errorf("blocktree: negative stats for term %q: %+v", term, stats)
	}

	if err := w.pushTerm(term); err != nil {
		w.err = err
		return err
	}
	w.pending = append(w.pending, &pendingTerm{term: bytes.Clone(term), stats: stats})
	if w.numTerms == 0 {
		w.minTerm = bytes.Clone(term)
	}
	w.numTerms++
	w.sumDocFreq += int64(stats.DocFreq)
	return nil
}

// Finish writes the remaining blocks and the terms index and returns the
// field metadata. A field without terms has no index.
func (w *Writer) Finish() (*FieldMeta, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.finished {
		return nil, ErrWriterClosed
	}
	w.finished = true

	meta := &FieldMeta{BlocksFP: w.blocksFP}
	if w.numTerms == 0 {
		meta.IndexFP = w.fp
		return meta, nil
	}

	maxTerm := bytes.Clone(w.lastTerm)

	// The empty term closes every open prefix.
	if err := w.pushTerm(nil); err != nil {
		return nil, w.fail(err)
	}
	if err := w.writeBlocks(0, len(w.pending)); err != nil {
		return nil, w.fail(err)
	}
	if len(w.pending) != 1 || w.pending[0].isTerm() {
		return nil, w.fail(fmt.Errorf("blocktree: %d entries left after writing the root block", len(w.pending)))
	}
	root := w.pending[0].(*pendingBlock)
	rootCode, ok := root.index.EmptyOutput()
	if !ok {
		return nil, w.fail(errors.New("blocktree: root index has no empty output"))
	}

	meta.BlocksLen = w.fp - w.blocksFP
	meta.IndexFP = w.fp
	n, err := root.index.WriteTo(w.w)
	w.fp += n
	if err != nil {
		return nil, w.fail(fmt.Errorf("blocktree: write index: %w", err))
	}
	meta.IndexLen = n
	meta.NumTerms = w.numTerms
	meta.SumDocFreq = w.sumDocFreq
	meta.MinTerm = w.minTerm
	meta.MaxTerm = maxTerm
	meta.RootCode = bytes.Clone(rootCode)

	if w.opts.logger.Enabled(context.Background(), slog.LevelDebug) {
		st := root.index.Stats()
		w.opts.logger.Debug("block tree written",
			slog.Int64("terms", w.numTerms),
			slog.Int64("blocks", w.numBlocks),
			slog.Int64("leaf_blocks", w.numLeafBlocks),
			slog.Int64("floor_blocks", w.numFloorBlocks),
			slog.Int64("blocks_bytes", meta.BlocksLen),
			slog.Int64("index_bytes", meta.IndexLen),
			slog.Int64("index_nodes", st.Nodes),
			slog.String("compression", w.opts.compression.String()),
		)
	}
	w.pending = nil
	return meta, nil
}

func (w *Writer) fail(err error) error {
	w.err = err
	return err
}

// pushTerm closes the blocks for every prefix of the previous term that the
// new term abandons.
func (w *Writer) pushTerm(text []byte) error {
	prefixLength := commonPrefix(w.lastTerm, text)

	for i := len(w.lastTerm) - 1; i >= prefixLength; i-- {
		// Entries on top of the stack that share the prefix being closed.
		prefixTopSize := len(w.pending) - w.prefixStarts[i]
		if prefixTopSize >= w.opts.minItemsInBlock {
			if err := w.writeBlocks(i+1, prefixTopSize); err != nil {
				return err
			}
			w.prefixStarts[i] -= prefixTopSize - 1
		}
	}

	for len(w.prefixStarts) < len(text) {
		w.prefixStarts = append(w.prefixStarts, 0)
	}
	for i := prefixLength; i < len(text); i++ {
		w.prefixStarts[i] = len(w.pending)
	}
	w.lastTerm = append(w.lastTerm[:0], text...)
	return nil
}

// writeBlocks writes the top count pending entries, which share the first
// prefixLength bytes of lastTerm, as one block or a run of floor blocks and
// replaces them with a single pending block.
func (w *Writer) writeBlocks(prefixLength, count int) error {
	lastSuffixLeadLabel := -1
	hasTerms := false
	hasSubBlocks := false

	start := len(w.pending) - count
	end := len(w.pending)
	nextBlockStart := start
	nextFloorLeadLabel := -1

	for i := start; i < end; i++ {
		var suffixLeadLabel int
		switch ent := w.pending[i].(type) {
		case *pendingTerm:
			if len(ent.term) == prefixLength {
				// Only the first entry can equal the prefix.
				suffixLeadLabel = -1
			} else {
				suffixLeadLabel = int(ent.term[prefixLength])
			}
		case *pendingBlock:
			suffixLeadLabel = int(ent.prefix[prefixLength])
		}

		if suffixLeadLabel != lastSuffixLeadLabel {
			itemsInBlock := i - nextBlockStart
			if itemsInBlock >= w.opts.minItemsInBlock && end-nextBlockStart > w.opts.maxItemsInBlock {
				// Too many entries for one block: cut a floor block as soon as
				// it reaches the minimum size.
				isFloor := itemsInBlock < count
				b, err := w.writeBlock(prefixLength, isFloor, nextFloorLeadLabel, nextBlockStart, i, hasTerms, hasSubBlocks)
				if err != nil {
					return err
				}
				w.newBlocks = append(w.newBlocks, b)
				hasTerms = false
				hasSubBlocks = false
				nextFloorLeadLabel = suffixLeadLabel
				nextBlockStart = i
			}
			lastSuffixLeadLabel = suffixLeadLabel
		}

		if w.pending[i].isTerm() {
			hasTerms = true
		} else {
			hasSubBlocks = true
		}
	}

	if nextBlockStart < end {
		isFloor := end-nextBlockStart < count
		b, err := w.writeBlock(prefixLength, isFloor, nextFloorLeadLabel, nextBlockStart, end, hasTerms, hasSubBlocks)
		if err != nil {
			return err
		}
		w.newBlocks = append(w.newBlocks, b)
	}

	first := w.newBlocks[0]
	if err := w.compileIndex(first, w.newBlocks); err != nil {
		return err
	}

	clear(w.pending[start:])
	w.pending = append(w.pending[:start], first)
	clear(w.newBlocks)
	w.newBlocks = w.newBlocks[:0]
	return nil
}

// writeBlock writes pending[start:end] as one block.
func (w *Writer) writeBlock(prefixLength int, isFloor bool, floorLeadLabel, start, end int, hasTerms, hasSubBlocks bool) (*pendingBlock, error) {
	startFP := w.fp
	prefix := make([]byte, prefixLength, prefixLength+1)
	copy(prefix, w.lastTerm[:prefixLength])

	code := uint64(end-start) << 1
	if end == len(w.pending) {
		code |= 1
	}

	isLeaf := !hasSubBlocks
	suffixes := w.suffixBuf[:0]
	stats := w.statsBuf[:0]
	meta := w.metaBuf[:0]
	var lastPostingsFP int64
	var subIndices []*fst.FST[[]byte]

	for i := start; i < end; i++ {
		switch ent := w.pending[i].(type) {
		case *pendingTerm:
			suffix := ent.term[prefixLength:]
			if isLeaf {
				suffixes = encoding.AppendUvarint(suffixes, uint64(len(suffix)))
			} else {
				suffixes = encoding.AppendUvarint(suffixes, uint64(len(suffix))<<1)
			}
			suffixes = append(suffixes, suffix...)
			stats = encoding.AppendUvarint(stats, uint64(ent.stats.DocFreq))
			meta = encoding.AppendVarint(meta, ent.stats.PostingsFP-lastPostingsFP)
			meta = encoding.AppendUvarint(meta, uint64(ent.stats.PostingsLen))
			lastPostingsFP = ent.stats.PostingsFP
		case *pendingBlock:
			suffix := ent.prefix[prefixLength:]
			suffixes = encoding.AppendUvarint(suffixes, uint64(len(suffix))<<1|1)
			suffixes = append(suffixes, suffix...)
			suffixes = encoding.AppendUvarint(suffixes, uint64(startFP-ent.fp))
			subIndices = append(subIndices, ent.index)
		}
	}

	stored, codec, err := compress.Compress(w.zipBuf[:0], suffixes, w.opts.compression)
	if err != nil {
		return nil, fmt.Errorf("blocktree: compress block: %w", err)
	}
	header := uint64(len(suffixes))<<suffixLenShift | uint64(codec)
	if isLeaf {
		header |= suffixLeafFlag
	}

	body := w.bodyBuf[:0]
	body = encoding.AppendUvarint(body, code)
	body = encoding.AppendUvarint(body, header)
	if codec != compress.None {
		body = encoding.AppendUvarint(body, uint64(len(stored)))
	}
	body = append(body, stored...)
	body = encoding.AppendBytes(body, stats)
	body = encoding.AppendBytes(body, meta)

	framed := appendFramedBlock(w.frameBuf[:0], body)
	n, err := w.w.Write(framed)
	w.fp += int64(n)
	if err != nil {
		return nil, fmt.Errorf("blocktree: write block: %w", err)
	}

	w.suffixBuf, w.statsBuf, w.metaBuf = suffixes, stats, meta
	w.bodyBuf, w.frameBuf, w.zipBuf = body, framed, stored
	w.numBlocks++
	if isLeaf {
		w.numLeafBlocks++
	}
	if isFloor {
		w.numFloorBlocks++
	}

	if isFloor && floorLeadLabel != -1 {
		prefix = append(prefix, byte(floorLeadLabel))
	}
	return &pendingBlock{
		prefix:        prefix,
		fp:            startFP,
		hasTerms:      hasTerms,
		isFloor:       isFloor,
		floorLeadByte: floorLeadLabel,
		subIndices:    subIndices,
	}, nil
}

// compileIndex builds the index of first, which heads blocks: its own
// prefix plus every entry of the sub-block indexes.
func (w *Writer) compileIndex(first *pendingBlock, blocks []*pendingBlock) error {
	out := encoding.AppendUvarint(nil, encodeOutput(first.fp, first.hasTerms, first.isFloor))
	if first.isFloor {
		out = encoding.AppendUvarint(out, uint64(len(blocks)-1))
		for _, sub := range blocks[1:] {
			out = append(out, byte(sub.floorLeadByte))
			code := uint64(sub.fp-first.fp) << 1
			if sub.hasTerms {
				code |= 1
			}
			out = encoding.AppendUvarint(out, code)
		}
	}

	b, err := fst.NewBuilder[[]byte](fst.ByteSequenceOutputs{}, w.indexOpts...)
	if err != nil {
		return err
	}
	if err := b.Add(first.prefix, out); err != nil {
		return err
	}
	for _, block := range blocks {
		for _, sub := range block.subIndices {
			if err := appendIndex(b, sub); err != nil {
				return err
			}
		}
		block.subIndices = nil
	}

	index, err := b.Compile()
	if err != nil {
		return err
	}
	if index == nil {
		return errors.New("blocktree: block index compiled to nothing")
	}
	first.index = index
	return nil
}

func appendIndex(b *fst.Builder[[]byte], sub *fst.FST[[]byte]) error {
	e := fst.NewEnum(sub)
	for {
		ok, err := e.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := b.Add(e.Key(), e.Output()); err != nil {
			return err
		}
	}
}

func commonPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
