package blocktree

import (
	"bytes"

	"github.com/hupe1980/termdict/internal/compress"
	"github.com/hupe1980/termdict/internal/encoding"
)

// frame is the decoding state of one block on the seeker's path.
type frame struct {
	s *Seeker
	// ord is the depth of the frame in the seeker stack; -1 for the static
	// frame.
	ord int

	hasTerms     bool
	hasTermsOrig bool
	isFloor      bool

	// fp is the block currently loaded, fpOrig the first block of its
	// floor run, fpEnd the pointer just after the loaded block.
	fp     int64
	fpOrig int64
	fpEnd  int64

	// Floor data of the index output: follower lead bytes and pointers.
	floorData            []byte
	floorReader          encoding.Reader
	numFollowFloorBlocks int
	nextFloorLabel       int

	// prefix is the length of the block prefix.
	prefix int

	entCount      int
	nextEnt       int // -1 until the block is loaded
	isLastInFloor bool
	isLeafBlock   bool
	lastSubFP     int64

	suffixes encoding.Reader
	stats    encoding.Reader
	meta     encoding.Reader

	// Decompressed suffixes of the block at suffixFP.
	suffixFP  int64
	suffixBuf []byte

	metaDataUpto int
	state        TermState

	startBytePos int
	suffix       int
	subCode      int64
}

func newFrame(s *Seeker, ord int) *frame {
	return &frame{s: s, ord: ord, nextEnt: -1, fpOrig: -1, lastSubFP: -1, suffixFP: -1}
}

func (f *frame) setFloorData(data []byte) error {
	f.floorData = append(f.floorData[:0], data...)
	f.floorReader.Reset(f.floorData)
	return f.readFloorHeader()
}

func (f *frame) readFloorHeader() error {
	n, err := f.floorReader.ReadUvarintInt()
	if err != nil {
		return wrapCorrupt("floor data", err)
	}
	if n == 0 {
		return corruptf("floor block at %d has no followers", f.fpOrig)
	}
	label, err := f.floorReader.ReadByte()
	if err != nil {
		return wrapCorrupt("floor data", err)
	}
	f.numFollowFloorBlocks = n
	f.nextFloorLabel = int(label)
	return nil
}

// decompressSuffixes returns the suffix bytes of the current block. Results
// for compressed blocks are kept on the frame and in the source's suffix
// cache.
func (f *frame) decompressSuffixes(stored []byte, codec compress.Type, rawLen int) ([]byte, error) {
	if codec == compress.None {
		return compress.Decompress(stored, codec, rawLen)
	}
	if f.suffixFP == f.fp && len(f.suffixBuf) == rawLen {
		return f.suffixBuf, nil
	}
	if sc := f.s.suffixes; sc != nil {
		if b, ok := sc.CachedSuffixes(f.fp); ok && len(b) == rawLen {
			f.suffixFP, f.suffixBuf = f.fp, b
			return b, nil
		}
	}
	b, err := compress.Decompress(stored, codec, rawLen)
	if err != nil {
		return nil, err
	}
	if sc := f.s.suffixes; sc != nil {
		sc.StoreSuffixes(f.fp, b)
	}
	f.suffixFP, f.suffixBuf = f.fp, b
	return b, nil
}

func (f *frame) termBlockOrd() int {
	if f.isLeafBlock {
		return f.nextEnt
	}
	return f.state.termBlockOrd
}

func (f *frame) loadNextFloorBlock() error {
	f.fp = f.fpEnd
	f.nextEnt = -1
	return f.loadBlock()
}

// loadBlock reads the block at fp unless it is already loaded. Stats and
// postings metadata are only decoded on demand.
func (f *frame) loadBlock() error {
	if f.nextEnt != -1 {
		return nil
	}
	body, err := f.s.blocks.ReadBlock(f.fp)
	if err != nil {
		return err
	}
	r := encoding.NewReader(body)

	code, err := r.ReadUvarint()
	if err != nil {
		return wrapCorrupt("block header", err)
	}
	entCount := int(code >> 1)
	if entCount == 0 {
		return corruptf("block at %d is empty", f.fp)
	}

	header, err := r.ReadUvarint()
	if err != nil {
		return wrapCorrupt("suffix header", err)
	}
	rawLen := header >> suffixLenShift
	codec := compress.Type(header & suffixCodecMask)
	if !codec.Valid() || rawLen > uint64(1<<31) {
		return corruptf("block at %d: bad suffix header %d", f.fp, header)
	}
	storedLen := rawLen
	if codec != compress.None {
		if storedLen, err = r.ReadUvarint(); err != nil {
			return wrapCorrupt("suffix length", err)
		}
	}
	if storedLen > uint64(r.Remaining()) {
		return corruptf("block at %d: suffix length %d exceeds block", f.fp, storedLen)
	}
	stored, _ := r.ReadBytes(int(storedLen))
	suffixes, err := f.decompressSuffixes(stored, codec, int(rawLen))
	if err != nil {
		return wrapCorrupt("suffixes", err)
	}

	stats, err := readSection(r)
	if err != nil {
		return wrapCorrupt("stats", err)
	}
	meta, err := readSection(r)
	if err != nil {
		return wrapCorrupt("metadata", err)
	}
	if r.Remaining() != 0 {
		return corruptf("block at %d: %d trailing bytes", f.fp, r.Remaining())
	}

	f.entCount = entCount
	f.isLastInFloor = code&1 != 0
	f.isLeafBlock = header&suffixLeafFlag != 0
	f.suffixes.Reset(suffixes)
	f.stats.Reset(stats)
	f.meta.Reset(meta)
	f.metaDataUpto = 0
	f.state.termBlockOrd = 0
	f.nextEnt = 0
	f.lastSubFP = -1
	// Floor followers are written back to back.
	f.fpEnd = f.fp + framedLen(len(body))
	return nil
}

func readSection(r *encoding.Reader) ([]byte, error) {
	n, err := r.ReadUvarintInt()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(n)
}

// rewind forces a reload of the first block of the floor run.
func (f *frame) rewind() error {
	f.fp = f.fpOrig
	f.nextEnt = -1
	f.hasTerms = f.hasTermsOrig
	if f.isFloor {
		if err := f.floorReader.SetPosition(0); err != nil {
			return wrapCorrupt("floor data", err)
		}
		return f.readFloorHeader()
	}
	return nil
}

// next decodes the next entry into the seeker term. It reports whether the
// entry is a sub-block.
func (f *frame) next() (bool, error) {
	if f.isLeafBlock {
		return false, f.nextLeaf()
	}
	return f.nextNonLeaf()
}

func (f *frame) nextLeaf() error {
	if f.nextEnt < 0 || f.nextEnt >= f.entCount {
		return corruptf("block at %d: read past entry %d of %d", f.fp, f.nextEnt, f.entCount)
	}
	f.nextEnt++
	suffix, err := f.suffixes.ReadUvarintInt()
	if err != nil {
		return wrapCorrupt("suffix length", err)
	}
	return f.readSuffix(suffix, true)
}

func (f *frame) nextNonLeaf() (bool, error) {
	for {
		if f.nextEnt == f.entCount {
			if f.isLastInFloor {
				return false, corruptf("block at %d: read past last entry", f.fp)
			}
			if err := f.loadNextFloorBlock(); err != nil {
				return false, err
			}
			if f.isLeafBlock {
				return false, f.nextLeaf()
			}
			continue
		}

		f.nextEnt++
		code, err := f.suffixes.ReadUvarint()
		if err != nil {
			return false, wrapCorrupt("suffix length", err)
		}
		if err := f.readSuffix(int(code>>1), code&1 == 0); err != nil {
			return false, err
		}
		if code&1 == 0 {
			f.subCode = 0
			f.state.termBlockOrd++
			return false, nil
		}
		if err := f.readSubCode(); err != nil {
			return false, err
		}
		return true, nil
	}
}

// readSuffix copies the next suffix of n bytes into the seeker term after
// the block prefix.
func (f *frame) readSuffix(n int, isTerm bool) error {
	f.startBytePos = f.suffixes.Position()
	b, err := f.suffixes.ReadBytes(n)
	if err != nil {
		return wrapCorrupt("suffix", err)
	}
	f.suffix = n
	f.s.setTerm(f.prefix, b)
	f.s.termExists = isTerm
	return nil
}

func (f *frame) readSubCode() error {
	code, err := f.suffixes.ReadUvarint()
	if err != nil {
		return wrapCorrupt("sub-block pointer", err)
	}
	if code == 0 || int64(code) > f.fp {
		return corruptf("block at %d: bad sub-block delta %d", f.fp, code)
	}
	f.subCode = int64(code)
	f.lastSubFP = f.fp - f.subCode
	return nil
}

// scanToFloorFrame moves to the floor block that may hold target.
func (f *frame) scanToFloorFrame(target []byte) error {
	if !f.isFloor || len(target) <= f.prefix {
		return nil
	}
	targetLabel := int(target[f.prefix])
	if targetLabel < f.nextFloorLabel {
		return nil
	}

	newFP := f.fpOrig
	for {
		code, err := f.floorReader.ReadUvarint()
		if err != nil {
			return wrapCorrupt("floor data", err)
		}
		newFP = f.fpOrig + int64(code>>1)
		f.hasTerms = code&1 != 0
		f.isLastInFloor = f.numFollowFloorBlocks == 1
		f.numFollowFloorBlocks--

		if f.isLastInFloor {
			f.nextFloorLabel = 256
			break
		}
		label, err := f.floorReader.ReadByte()
		if err != nil {
			return wrapCorrupt("floor data", err)
		}
		f.nextFloorLabel = int(label)
		if targetLabel < f.nextFloorLabel {
			break
		}
	}

	if newFP != f.fp {
		f.nextEnt = -1
		f.fp = newFP
	}
	return nil
}

// decodeMetaData catches the term state up to the current term.
func (f *frame) decodeMetaData() error {
	limit := f.termBlockOrd()
	if limit <= 0 {
		return ErrNotPositioned
	}
	for f.metaDataUpto < limit {
		if f.metaDataUpto == 0 {
			f.state.PostingsFP = 0
		}
		docFreq, err := f.stats.ReadUvarintInt()
		if err != nil {
			return wrapCorrupt("term stats", err)
		}
		delta, err := f.meta.ReadVarint()
		if err != nil {
			return wrapCorrupt("term metadata", err)
		}
		postingsLen, err := f.meta.ReadUvarint()
		if err != nil {
			return wrapCorrupt("term metadata", err)
		}
		f.state.DocFreq = docFreq
		f.state.PostingsFP += delta
		f.state.PostingsLen = int64(postingsLen)
		f.metaDataUpto++
	}
	f.state.termBlockOrd = f.metaDataUpto
	return nil
}

// scanToSubBlock advances to the sub-block entry pointing at subFP.
func (f *frame) scanToSubBlock(subFP int64) error {
	if f.lastSubFP == subFP {
		return nil
	}
	targetSubCode := f.fp - subFP
	for {
		if f.nextEnt >= f.entCount {
			return corruptf("block at %d: sub-block %d not found", f.fp, subFP)
		}
		f.nextEnt++
		code, err := f.suffixes.ReadUvarint()
		if err != nil {
			return wrapCorrupt("suffix length", err)
		}
		if err := f.suffixes.Skip(int(code >> 1)); err != nil {
			return wrapCorrupt("suffix", err)
		}
		if code&1 == 0 {
			f.state.termBlockOrd++
			continue
		}
		subCode, err := f.suffixes.ReadUvarint()
		if err != nil {
			return wrapCorrupt("sub-block pointer", err)
		}
		if int64(subCode) == targetSubCode {
			f.lastSubFP = subFP
			return nil
		}
	}
}

// scanToTerm scans the loaded block for target, whose first prefix bytes
// match the block prefix.
func (f *frame) scanToTerm(target []byte, exactOnly bool) (SeekStatus, error) {
	if f.isLeafBlock {
		return f.scanToTermLeaf(target, exactOnly)
	}
	return f.scanToTermNonLeaf(target, exactOnly)
}

func (f *frame) scanToTermLeaf(target []byte, exactOnly bool) (SeekStatus, error) {
	f.s.termExists = true
	f.subCode = 0

	if f.nextEnt == f.entCount {
		if exactOnly {
			f.fillTerm()
		}
		return SeekEnd, nil
	}

	for f.nextEnt < f.entCount {
		f.nextEnt++
		suffix, err := f.suffixes.ReadUvarintInt()
		if err != nil {
			return 0, wrapCorrupt("suffix length", err)
		}
		f.suffix = suffix
		f.startBytePos = f.suffixes.Position()
		b, err := f.suffixes.ReadBytes(suffix)
		if err != nil {
			return 0, wrapCorrupt("suffix", err)
		}

		switch cmp := bytes.Compare(b, target[f.prefix:]); {
		case cmp < 0:
			continue
		case cmp > 0:
			f.fillTerm()
			return SeekNotFound, nil
		default:
			f.fillTerm()
			return SeekFound, nil
		}
	}

	// The index can point at a block whose last term sorts before the
	// target while the next block starts after it.
	if exactOnly {
		f.fillTerm()
	}
	return SeekEnd, nil
}

func (f *frame) scanToTermNonLeaf(target []byte, exactOnly bool) (SeekStatus, error) {
	s := f.s
	if f.nextEnt == f.entCount {
		if exactOnly {
			f.fillTerm()
			s.termExists = f.subCode == 0
		}
		return SeekEnd, nil
	}

	for f.nextEnt < f.entCount {
		f.nextEnt++
		code, err := f.suffixes.ReadUvarint()
		if err != nil {
			return 0, wrapCorrupt("suffix length", err)
		}
		f.suffix = int(code >> 1)
		termLen := f.prefix + f.suffix
		f.startBytePos = f.suffixes.Position()
		b, err := f.suffixes.ReadBytes(f.suffix)
		if err != nil {
			return 0, wrapCorrupt("suffix", err)
		}
		s.termExists = code&1 == 0
		if s.termExists {
			f.state.termBlockOrd++
			f.subCode = 0
		} else if err := f.readSubCode(); err != nil {
			return 0, err
		}

		switch cmp := bytes.Compare(b, target[f.prefix:]); {
		case cmp < 0:
			continue
		case cmp > 0:
			f.fillTerm()
			if !exactOnly && !s.termExists {
				// Positioned on a sub-block: descend to its first term.
				if err := s.pushNextFrame(f.lastSubFP, termLen); err != nil {
					return 0, err
				}
				for {
					isSub, err := s.currentFrame.next()
					if err != nil {
						return 0, err
					}
					if !isSub {
						break
					}
					if err := s.pushNextFrame(s.currentFrame.lastSubFP, s.termLen); err != nil {
						return 0, err
					}
				}
			}
			return SeekNotFound, nil
		default:
			f.fillTerm()
			if !s.termExists {
				// The index leads to a sub-block whose prefix equals the
				// target, so the target cannot be a sub-block entry here.
				return 0, corruptf("block at %d: sub-block entry matches target", f.fp)
			}
			return SeekFound, nil
		}
	}

	if exactOnly {
		f.fillTerm()
	}
	return SeekEnd, nil
}

// fillTerm copies the current suffix into the seeker term.
func (f *frame) fillTerm() {
	data := f.suffixes.Data()
	f.s.setTerm(f.prefix, data[f.startBytePos:f.startBytePos+f.suffix])
}
