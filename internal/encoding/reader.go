package encoding

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrShortBuffer is returned when a read runs past the end of the input.
	ErrShortBuffer = errors.New("encoding: short buffer")
	// ErrOverflow is returned when a varint does not fit in 64 bits.
	ErrOverflow = errors.New("encoding: varint overflows 64 bits")
	// ErrInvalidPosition is returned when seeking outside of the input.
	ErrInvalidPosition = errors.New("encoding: invalid position")
)

// Reader is a forward cursor over an immutable byte slice.
// It is not safe for concurrent use; create one Reader per goroutine.
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Reset repositions the reader over new data.
func (r *Reader) Reset(data []byte) {
	r.data = data
	r.pos = 0
}

// Data returns the underlying slice.
func (r *Reader) Data() []byte { return r.data }

// Len returns the total length of the underlying slice.
func (r *Reader) Len() int { return len(r.data) }

// Position returns the current read offset.
func (r *Reader) Position() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// SetPosition moves the cursor to an absolute offset.
func (r *Reader) SetPosition(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return ErrInvalidPosition
	}
	r.pos = pos
	return nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrShortBuffer
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUvarint reads an unsigned varint.
func (r *Reader) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n == 0 {
		return 0, ErrShortBuffer
	}
	if n < 0 {
		return 0, ErrOverflow
	}
	r.pos += n
	return v, nil
}

// ReadVarint reads a zig-zag encoded signed varint.
func (r *Reader) ReadVarint() (int64, error) {
	v, n := binary.Varint(r.data[r.pos:])
	if n == 0 {
		return 0, ErrShortBuffer
	}
	if n < 0 {
		return 0, ErrOverflow
	}
	r.pos += n
	return v, nil
}

// ReadUvarintInt reads an unsigned varint that must fit in a non-negative int.
func (r *Reader) ReadUvarintInt() (int, error) {
	v, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(maxInt) {
		return 0, ErrOverflow
	}
	return int(v), nil
}

// ReadBytes returns the next n bytes without copying.
// The returned slice aliases the reader's input.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, ErrShortBuffer
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || n > len(r.data)-r.pos {
		return ErrShortBuffer
	}
	r.pos += n
	return nil
}

const maxInt = int(^uint(0) >> 1)
