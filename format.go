package termdict

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/termdict/blocktree"
	"github.com/hupe1980/termdict/codec"
	"github.com/hupe1980/termdict/internal/conv"
	"github.com/hupe1980/termdict/internal/hash"
)

// Segment file layout:
//
//	header   16 bytes + codec name
//	fields   per field, in name order: postings section, terms section
//	metadata codec-encoded segmentMeta
//	footer   24 bytes
//
// Every posting is a portable roaring bitmap followed by its CRC32C. A terms
// section is the block-tree output of one field; its pointers are relative to
// the start of the section.
const (
	formatVersion = 1

	headerSize = 16
	footerSize = 24

	postingChecksumSize = 4
)

var (
	segmentMagic = [4]byte{'T', 'D', 'C', 'T'}
	footerMagic  = [4]byte{'T', 'D', 'F', '1'}
)

type segmentMeta struct {
	Version   int         `json:"version"`
	SegmentID string      `json:"segment_id"`
	CreatedAt time.Time   `json:"created_at"`
	Fields    []fieldInfo `json:"fields"`
}

type fieldInfo struct {
	Name           string              `json:"name"`
	PostingsOffset int64               `json:"postings_offset"`
	PostingsLen    int64               `json:"postings_len"`
	TermsOffset    int64               `json:"terms_offset"`
	TermsLen       int64               `json:"terms_len"`
	Terms          blocktree.FieldMeta `json:"terms"`
}

type footer struct {
	metaOffset uint64
	metaLen    uint32
	checksum   uint32
}

func encodeHeader(codecName string) ([]byte, error) {
	if !codec.ValidName(codecName) {
		return nil, fmt.Errorf("termdict: invalid codec name %q", codecName)
	}
	// [0:4]  magic
	// [4:6]  version
	// [6:8]  reserved
	// [8:10] codec name len
	// [10:16] reserved
	b := make([]byte, headerSize, headerSize+len(codecName))
	copy(b[0:4], segmentMagic[:])
	binary.LittleEndian.PutUint16(b[4:6], formatVersion)
	binary.LittleEndian.PutUint16(b[8:10], uint16(len(codecName)))
	return append(b, codecName...), nil
}

// decodeHeader returns the codec name and the header length.
func decodeHeader(b []byte) (string, int, error) {
	if len(b) < headerSize {
		return "", 0, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	if [4]byte(b[0:4]) != segmentMagic {
		return "", 0, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint16(b[4:6]); v != formatVersion {
		return "", 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	n := int(binary.LittleEndian.Uint16(b[8:10]))
	if n == 0 || headerSize+n > len(b) {
		return "", 0, fmt.Errorf("%w: bad codec name length %d", ErrCorrupt, n)
	}
	return string(b[headerSize : headerSize+n]), headerSize + n, nil
}

func (f footer) encode() []byte {
	// [0:4]   magic
	// [4:6]   version
	// [6:8]   reserved
	// [8:16]  metadata offset
	// [16:20] metadata length
	// [20:24] metadata CRC32C
	var b [footerSize]byte
	copy(b[0:4], footerMagic[:])
	binary.LittleEndian.PutUint16(b[4:6], formatVersion)
	binary.LittleEndian.PutUint64(b[8:16], f.metaOffset)
	binary.LittleEndian.PutUint32(b[16:20], f.metaLen)
	binary.LittleEndian.PutUint32(b[20:24], f.checksum)
	return b[:]
}

func decodeFooter(b []byte, size int64) (footer, error) {
	if len(b) != footerSize {
		return footer{}, fmt.Errorf("%w: truncated footer", ErrCorrupt)
	}
	if [4]byte(b[0:4]) != footerMagic {
		return footer{}, fmt.Errorf("%w: missing footer", ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint16(b[4:6]); v != formatVersion {
		return footer{}, fmt.Errorf("%w: footer version %d", ErrUnsupportedVersion, v)
	}
	f := footer{
		metaOffset: binary.LittleEndian.Uint64(b[8:16]),
		metaLen:    binary.LittleEndian.Uint32(b[16:20]),
		checksum:   binary.LittleEndian.Uint32(b[20:24]),
	}
	off, err := conv.Uint64ToInt64(f.metaOffset)
	if err != nil || off < headerSize || !inRange(off, int64(f.metaLen), size-footerSize) {
		return footer{}, fmt.Errorf("%w: metadata [%d,+%d) out of range", ErrCorrupt, f.metaOffset, f.metaLen)
	}
	return f, nil
}

func (m *segmentMeta) validate(dataEnd int64) error {
	if m.Version != formatVersion {
		return fmt.Errorf("%w: metadata version %d", ErrUnsupportedVersion, m.Version)
	}
	for i := range m.Fields {
		f := &m.Fields[i]
		if i > 0 && m.Fields[i-1].Name >= f.Name {
			return fmt.Errorf("%w: fields out of order at %q", ErrCorrupt, f.Name)
		}
		if !inRange(f.PostingsOffset, f.PostingsLen, dataEnd) || !inRange(f.TermsOffset, f.TermsLen, dataEnd) {
			return fmt.Errorf("%w: field %q: section out of range", ErrCorrupt, f.Name)
		}
		t := &f.Terms
		if !inRange(t.BlocksFP, t.BlocksLen, f.TermsLen) || !inRange(t.IndexFP, t.IndexLen, f.TermsLen) {
			return fmt.Errorf("%w: field %q: terms metadata out of range", ErrCorrupt, f.Name)
		}
	}
	return nil
}

func inRange(off, n, limit int64) bool {
	return off >= 0 && n >= 0 && off <= limit && n <= limit-off
}

// appendPosting appends the serialized bitmap and its checksum.
func appendPosting(dst []byte, docs *roaring.Bitmap) ([]byte, error) {
	data, err := docs.ToBytes()
	if err != nil {
		return dst, fmt.Errorf("termdict: encode postings: %w", err)
	}
	dst = append(dst, data...)
	return binary.LittleEndian.AppendUint32(dst, hash.CRC32C(data)), nil
}

func decodePosting(b []byte, off int64) (*roaring.Bitmap, error) {
	if len(b) < postingChecksumSize {
		return nil, fmt.Errorf("%w: postings at %d: truncated", ErrCorrupt, off)
	}
	data := b[:len(b)-postingChecksumSize]
	stored := binary.LittleEndian.Uint32(b[len(data):])
	if computed := hash.CRC32C(data); computed != stored {
		return nil, fmt.Errorf("%w: postings at %d: checksum mismatch: stored %08x, computed %08x", ErrCorrupt, off, stored, computed)
	}
	docs := roaring.New()
	if err := docs.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: postings at %d: %w", ErrCorrupt, off, err)
	}
	return docs, nil
}
