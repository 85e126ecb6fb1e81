package fst

import (
	"fmt"
	"math"

	"github.com/hupe1980/termdict/internal/encoding"
)

// InputType is the label alphabet of an automaton.
type InputType byte

const (
	// InputByte1 labels are bytes (0..255), stored as one byte.
	InputByte1 InputType = iota + 1
	// InputByte4 labels are code points (0..MaxInt32), stored as uvarints.
	InputByte4
)

// EndLabel is the label of the pseudo-arc that marks a final state while
// enumerating arcs.
const EndLabel = -1

func (t InputType) String() string {
	switch t {
	case InputByte1:
		return "byte1"
	case InputByte4:
		return "byte4"
	default:
		return fmt.Sprintf("InputType(%d)", byte(t))
	}
}

func (t InputType) valid() bool { return t == InputByte1 || t == InputByte4 }

func (t InputType) maxLabel() int {
	if t == InputByte1 {
		return math.MaxUint8
	}
	return math.MaxInt32
}

func (t InputType) appendLabel(dst []byte, label int) []byte {
	if t == InputByte1 {
		return append(dst, byte(label))
	}
	return encoding.AppendUvarint(dst, uint64(label))
}

func (t InputType) readLabel(r *encoding.Reader) (int, error) {
	if t == InputByte1 {
		b, err := r.ReadByte()
		return int(b), err
	}
	v, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, corruptf("label %d out of range", v)
	}
	return int(v), nil
}
