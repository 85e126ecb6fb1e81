package blocktree

import (
	"bytes"
	"errors"

	"github.com/hupe1980/termdict/fst"
	"github.com/hupe1980/termdict/internal/encoding"
)

// Seeker positions on terms of one field: exact and ceiling seeks, in-order
// iteration and access to term metadata.
//
// A Seeker reuses the index arcs and block frames of its previous position
// for the prefix the next target shares with the current term. Seeking in
// ascending order is therefore much cheaper than seeking from scratch.
//
// A Seeker is not safe for concurrent use. After a read or decode error all
// later calls return that error.
type Seeker struct {
	fr        *FieldReader
	index     *fst.FST[[]byte]
	blocks    BlockSource
	suffixes  SuffixCache // nil unless blocks implements it
	fstReader *encoding.Reader
	outputs   fst.ByteSequenceOutputs
	scratch   encoding.Reader

	// arcs[i] is the index arc reached after the first i bytes of term.
	arcs []fst.Arc[[]byte]
	// stack[i] is the frame of the i-th final arc on the index path.
	stack        []*frame
	staticFrame  *frame
	currentFrame *frame

	// term[:termLen] is the current term; bytes past termLen may be
	// scratch from the index walk.
	term       []byte
	termLen    int
	termExists bool

	// validIndexPrefix is how many bytes of term the arcs and frames
	// still describe.
	validIndexPrefix          int
	targetBeforeCurrentLength int

	positioned bool
	restored   bool
	eof        bool
	err        error
}

func newSeeker(fr *FieldReader) *Seeker {
	s := &Seeker{
		fr:        fr,
		index:     fr.index,
		blocks:    fr.blocks,
		fstReader: fr.index.BytesReader(),
		arcs:      make([]fst.Arc[[]byte], 1, 16),
		term:      make([]byte, 32),
	}
	s.suffixes, _ = fr.blocks.(SuffixCache)
	s.staticFrame = newFrame(s, -1)
	s.currentFrame = s.staticFrame
	return s
}

// Term returns the current term, or nil if the seeker is not on a term. The
// slice is only valid until the next call that moves the seeker.
func (s *Seeker) Term() []byte {
	if !s.positioned {
		return nil
	}
	return s.term[:s.termLen]
}

// TermState returns the metadata of the current term.
func (s *Seeker) TermState() (TermState, error) {
	if s.err != nil {
		return TermState{}, s.err
	}
	if !s.positioned {
		return TermState{}, ErrNotPositioned
	}
	if err := s.currentFrame.decodeMetaData(); err != nil {
		return TermState{}, s.fail(err)
	}
	return s.currentFrame.state, nil
}

// DocFreq returns the document frequency of the current term.
func (s *Seeker) DocFreq() (int, error) {
	st, err := s.TermState()
	if err != nil {
		return 0, err
	}
	return st.DocFreq, nil
}

// SeekExactState positions on term using a state previously returned by
// TermState, without reading the index or any block. Next re-seeks term
// before advancing.
func (s *Seeker) SeekExactState(term []byte, state TermState) {
	if s.err != nil {
		return
	}
	if s.positioned && s.termExists && bytes.Equal(term, s.term[:s.termLen]) {
		return
	}
	ord := max(state.termBlockOrd, 1)
	s.currentFrame = s.staticFrame
	s.staticFrame.state = state
	s.staticFrame.state.termBlockOrd = ord
	s.staticFrame.metaDataUpto = ord
	s.setTerm(0, term)
	s.validIndexPrefix = 0
	s.termExists = true
	s.positioned = true
	s.restored = true
	s.eof = false
}

// SeekExact reports whether target is a term of the field. On success the
// seeker is positioned on it; otherwise it is unpositioned and Next returns
// ErrNotPositioned until the next seek.
func (s *Seeker) SeekExact(target []byte) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	found, err := s.seekExact(target)
	if err != nil {
		return false, s.fail(err)
	}
	s.positioned = found
	return found, nil
}

// SeekCeil positions on the smallest term >= target.
func (s *Seeker) SeekCeil(target []byte) (SeekStatus, error) {
	if s.err != nil {
		return SeekEnd, s.err
	}
	meta := &s.fr.meta
	if meta.NumTerms > 0 {
		if bytes.Compare(target, meta.MaxTerm) > 0 {
			return SeekEnd, s.failIf(s.setEOF())
		}
		if bytes.Compare(target, meta.MinTerm) < 0 {
			status, err := s.seekCeil(meta.MinTerm)
			if err != nil {
				return SeekEnd, s.fail(err)
			}
			if status != SeekFound {
				return SeekEnd, s.fail(corruptf("minimum term %q not found", meta.MinTerm))
			}
			s.positioned = true
			return SeekNotFound, nil
		}
	}
	status, err := s.seekCeil(target)
	if err != nil {
		return SeekEnd, s.fail(err)
	}
	s.positioned = status != SeekEnd
	return status, nil
}

// Next advances to the next term and returns it, or nil after the last
// term. A new seeker starts at the first term.
func (s *Seeker) Next() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	term, err := s.next()
	if err != nil {
		if errors.Is(err, ErrNotPositioned) {
			return nil, err
		}
		return nil, s.fail(err)
	}
	s.positioned = term != nil
	return term, nil
}

func (s *Seeker) fail(err error) error {
	s.err = err
	s.positioned = false
	return err
}

func (s *Seeker) failIf(err error) error {
	if err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *Seeker) seekExact(target []byte) (bool, error) {
	meta := &s.fr.meta
	if meta.NumTerms > 0 && (bytes.Compare(target, meta.MinTerm) < 0 || bytes.Compare(target, meta.MaxTerm) > 0) {
		return false, nil
	}

	s.prepare(len(target))

	var (
		arc        *fst.Arc[[]byte]
		output     []byte
		targetUpto int
	)
	s.targetBeforeCurrentLength = s.currentFrame.ord

	if s.currentFrame != s.staticFrame {
		var (
			lastFrame *frame
			cmp       int
		)
		arc, output, targetUpto, lastFrame, cmp = s.reusePrefix(target)
		switch {
		case cmp < 0:
			// Target sorts after the current term.
			s.currentFrame = lastFrame
		case cmp > 0:
			// Target sorts before the current term: rescan the frame.
			s.targetBeforeCurrentLength = lastFrame.ord
			s.currentFrame = lastFrame
			if err := s.currentFrame.rewind(); err != nil {
				return false, err
			}
		default:
			if s.termExists {
				return true, nil
			}
		}
	} else {
		var err error
		if arc, output, err = s.pushRoot(); err != nil {
			return false, err
		}
	}

	for targetUpto < len(target) {
		targetLabel := target[targetUpto]
		nextArc, err := s.index.FindTargetArc(int(targetLabel), arc, &s.arcs[1+targetUpto], s.fstReader)
		if err != nil {
			return false, wrapCorrupt("terms index", err)
		}

		if nextArc == nil {
			// The index is exhausted; the term can only be in the current
			// frame's block.
			s.validIndexPrefix = s.currentFrame.prefix
			if err := s.currentFrame.scanToFloorFrame(target); err != nil {
				return false, err
			}
			if !s.currentFrame.hasTerms {
				s.termExists = false
				s.setTermByte(targetUpto, targetLabel)
				s.termLen = targetUpto + 1
				return false, nil
			}
			if err := s.currentFrame.loadBlock(); err != nil {
				return false, err
			}
			status, err := s.currentFrame.scanToTerm(target, true)
			return status == SeekFound, err
		}

		arc = nextArc
		s.setTermByte(targetUpto, targetLabel)
		if !s.outputs.IsNoOutput(arc.Output()) {
			output = s.outputs.Add(output, arc.Output())
		}
		targetUpto++
		if arc.IsFinal() {
			if err := s.pushFrameData(s.outputs.Add(output, arc.NextFinalOutput()), targetUpto); err != nil {
				return false, err
			}
		}
	}

	s.validIndexPrefix = s.currentFrame.prefix
	if err := s.currentFrame.scanToFloorFrame(target); err != nil {
		return false, err
	}
	// The target is entirely contained in the index.
	if !s.currentFrame.hasTerms {
		s.termExists = false
		s.termLen = targetUpto
		return false, nil
	}
	if err := s.currentFrame.loadBlock(); err != nil {
		return false, err
	}
	status, err := s.currentFrame.scanToTerm(target, true)
	return status == SeekFound, err
}

func (s *Seeker) seekCeil(target []byte) (SeekStatus, error) {
	s.prepare(len(target))

	var (
		arc        *fst.Arc[[]byte]
		output     []byte
		targetUpto int
	)
	s.targetBeforeCurrentLength = s.currentFrame.ord

	if s.currentFrame != s.staticFrame {
		var (
			lastFrame *frame
			cmp       int
		)
		arc, output, targetUpto, lastFrame, cmp = s.reusePrefix(target)
		switch {
		case cmp < 0:
			s.currentFrame = lastFrame
		case cmp > 0:
			s.targetBeforeCurrentLength = 0
			s.currentFrame = lastFrame
			if err := s.currentFrame.rewind(); err != nil {
				return SeekEnd, err
			}
		default:
			if s.termExists {
				return SeekFound, nil
			}
		}
	} else {
		var err error
		if arc, output, err = s.pushRoot(); err != nil {
			return SeekEnd, err
		}
	}

	for targetUpto < len(target) {
		targetLabel := target[targetUpto]
		nextArc, err := s.index.FindTargetArc(int(targetLabel), arc, &s.arcs[1+targetUpto], s.fstReader)
		if err != nil {
			return SeekEnd, wrapCorrupt("terms index", err)
		}

		if nextArc == nil {
			s.validIndexPrefix = s.currentFrame.prefix
			if err := s.currentFrame.scanToFloorFrame(target); err != nil {
				return SeekEnd, err
			}
			if err := s.currentFrame.loadBlock(); err != nil {
				return SeekEnd, err
			}
			return s.finishSeekCeil(target)
		}

		s.setTermByte(targetUpto, targetLabel)
		arc = nextArc
		if !s.outputs.IsNoOutput(arc.Output()) {
			output = s.outputs.Add(output, arc.Output())
		}
		targetUpto++
		if arc.IsFinal() {
			if err := s.pushFrameData(s.outputs.Add(output, arc.NextFinalOutput()), targetUpto); err != nil {
				return SeekEnd, err
			}
		}
	}

	s.validIndexPrefix = s.currentFrame.prefix
	if err := s.currentFrame.scanToFloorFrame(target); err != nil {
		return SeekEnd, err
	}
	if err := s.currentFrame.loadBlock(); err != nil {
		return SeekEnd, err
	}
	return s.finishSeekCeil(target)
}

// finishSeekCeil scans the loaded frame and, when the target sorts after
// every entry of the block, moves on to the next term.
func (s *Seeker) finishSeekCeil(target []byte) (SeekStatus, error) {
	status, err := s.currentFrame.scanToTerm(target, false)
	if err != nil || status != SeekEnd {
		return status, err
	}
	s.setTerm(0, target)
	s.termExists = false
	s.positioned = true
	term, err := s.next()
	if err != nil {
		return SeekEnd, err
	}
	if term == nil {
		return SeekEnd, nil
	}
	return SeekNotFound, nil
}

// reusePrefix walks the cached arcs for the bytes target shares with the
// current term (up to validIndexPrefix). It returns the last shared arc,
// the accumulated output, the number of shared bytes, the deepest frame
// on that path and how the current term compares to target.
func (s *Seeker) reusePrefix(target []byte) (*fst.Arc[[]byte], []byte, int, *frame, int) {
	arc := &s.arcs[0]
	output := arc.Output()
	lastFrame := s.stack[0]
	targetUpto := 0
	targetLimit := min(len(target), s.validIndexPrefix)

	cmp := 0
	for targetUpto < targetLimit {
		cmp = int(s.term[targetUpto]) - int(target[targetUpto])
		if cmp != 0 {
			break
		}
		arc = &s.arcs[1+targetUpto]
		if !s.outputs.IsNoOutput(arc.Output()) {
			output = s.outputs.Add(output, arc.Output())
		}
		if arc.IsFinal() {
			lastFrame = s.stack[1+lastFrame.ord]
		}
		targetUpto++
	}

	if cmp == 0 {
		// Compare the rest of the term without keeping arcs or frames.
		upto := targetUpto
		limit := min(len(target), s.termLen)
		for upto < limit {
			cmp = int(s.term[upto]) - int(target[upto])
			if cmp != 0 {
				break
			}
			upto++
		}
		if cmp == 0 {
			cmp = s.termLen - len(target)
		}
	}
	return arc, output, targetUpto, lastFrame, cmp
}

// pushRoot starts a seek from the index root.
func (s *Seeker) pushRoot() (*fst.Arc[[]byte], []byte, error) {
	s.targetBeforeCurrentLength = -1
	s.restored = false
	arc := s.index.FirstArc(&s.arcs[0])
	if !arc.IsFinal() {
		return nil, nil, corruptf("terms index has no root block")
	}
	output := arc.Output()
	s.currentFrame = s.staticFrame
	if err := s.pushFrameData(s.outputs.Add(output, arc.NextFinalOutput()), 0); err != nil {
		return nil, nil, err
	}
	return arc, output, nil
}

func (s *Seeker) next() ([]byte, error) {
	if s.eof {
		return nil, nil
	}
	if s.currentFrame == s.staticFrame {
		if s.restored {
			// Positioned by SeekExactState: rebuild the frames first.
			target := bytes.Clone(s.term[:s.termLen])
			found, err := s.seekExact(target)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, corruptf("term %q of restored state not found", target)
			}
		} else {
			if _, _, err := s.pushRoot(); err != nil {
				return nil, err
			}
			if err := s.currentFrame.loadBlock(); err != nil {
				return nil, err
			}
		}
	} else if !s.positioned {
		return nil, ErrNotPositioned
	}

	s.targetBeforeCurrentLength = s.currentFrame.ord

	// Pop finished blocks.
	for s.currentFrame.nextEnt == s.currentFrame.entCount {
		if !s.currentFrame.isLastInFloor {
			if err := s.currentFrame.loadNextFloorBlock(); err != nil {
				return nil, err
			}
			break
		}
		if s.currentFrame.ord == 0 {
			return nil, s.setEOF()
		}
		lastFP := s.currentFrame.fpOrig
		s.currentFrame = s.stack[s.currentFrame.ord-1]
		if s.currentFrame.nextEnt == -1 || s.currentFrame.lastSubFP != lastFP {
			// The parent is not loaded or not on the sub-block we came from.
			if err := s.currentFrame.scanToFloorFrame(s.term[:s.termLen]); err != nil {
				return nil, err
			}
			if err := s.currentFrame.loadBlock(); err != nil {
				return nil, err
			}
			if err := s.currentFrame.scanToSubBlock(lastFP); err != nil {
				return nil, err
			}
		}
		// Arcs beyond this frame no longer describe the term.
		s.validIndexPrefix = min(s.validIndexPrefix, s.currentFrame.prefix)
	}

	for {
		isSub, err := s.currentFrame.next()
		if err != nil {
			return nil, err
		}
		if !isSub {
			return s.term[:s.termLen], nil
		}
		if err := s.pushNextFrame(s.currentFrame.lastSubFP, s.termLen); err != nil {
			return nil, err
		}
	}
}

// setEOF leaves the seeker past the last term, ready for a new seek.
func (s *Seeker) setEOF() error {
	s.eof = true
	s.positioned = false
	s.termExists = false
	s.termLen = 0
	s.validIndexPrefix = 0
	if s.currentFrame == s.staticFrame {
		return nil
	}
	s.currentFrame = s.stack[0]
	return s.currentFrame.rewind()
}

// prepare readies buffers for a seek to a target of n bytes.
func (s *Seeker) prepare(n int) {
	s.eof = false
	s.positioned = false
	s.growTerm(n + 1)
	for len(s.arcs) < n+1 {
		s.arcs = append(s.arcs, fst.Arc[[]byte]{})
	}
}

// pushFrameData pushes the frame described by an index output.
func (s *Seeker) pushFrameData(frameData []byte, length int) error {
	s.scratch.Reset(frameData)
	code, err := s.scratch.ReadUvarint()
	if err != nil {
		return wrapCorrupt("index output", err)
	}
	f := s.getFrame(1 + s.currentFrame.ord)
	f.hasTerms = code&outputFlagHasTerms != 0
	f.hasTermsOrig = f.hasTerms
	f.isFloor = code&outputFlagIsFloor != 0
	if f.isFloor {
		if err := f.setFloorData(frameData[s.scratch.Position():]); err != nil {
			return err
		}
	}
	return s.pushFrame(f, int64(code>>outputFlagsNumBits), length)
}

// pushNextFrame pushes and loads a sub-block reached by iteration. Such a
// frame is never treated as floor: its followers are read in sequence.
func (s *Seeker) pushNextFrame(fp int64, length int) error {
	f := s.getFrame(1 + s.currentFrame.ord)
	if f.fpOrig != fp || f.nextEnt == -1 {
		f.isFloor = false
		f.hasTerms = true
		f.hasTermsOrig = true
	}
	if err := s.pushFrame(f, fp, length); err != nil {
		return err
	}
	return s.currentFrame.loadBlock()
}

// pushFrame makes f the current frame for the block at fp. A frame that is
// already loaded with that block is kept, rewound only if it lies deeper
// than the previous position.
func (s *Seeker) pushFrame(f *frame, fp int64, length int) error {
	if f.fpOrig == fp && f.nextEnt != -1 {
		if f.ord > s.targetBeforeCurrentLength {
			if err := f.rewind(); err != nil {
				return err
			}
		}
	} else {
		f.nextEnt = -1
		f.prefix = length
		f.state.termBlockOrd = 0
		f.fpOrig = fp
		f.fp = fp
		f.lastSubFP = -1
	}
	s.currentFrame = f
	return nil
}

func (s *Seeker) getFrame(ord int) *frame {
	for len(s.stack) <= ord {
		s.stack = append(s.stack, newFrame(s, len(s.stack)))
	}
	return s.stack[ord]
}

func (s *Seeker) growTerm(n int) {
	if len(s.term) >= n {
		return
	}
	buf := make([]byte, max(n, 2*len(s.term)))
	copy(buf, s.term)
	s.term = buf
}

func (s *Seeker) setTermByte(i int, b byte) {
	s.growTerm(i + 1)
	s.term[i] = b
}

// setTerm replaces everything after the first prefix bytes of the term.
func (s *Seeker) setTerm(prefix int, suffix []byte) {
	s.growTerm(prefix + len(suffix))
	copy(s.term[prefix:], suffix)
	s.termLen = prefix + len(suffix)
}
