package fst

import (
	"math"
	"strconv"

	"github.com/hupe1980/termdict/internal/encoding"
)

// PositiveIntOutputs maps keys to non-negative integers. Common is min, so the
// output of a key is the sum of the outputs along its path.
type PositiveIntOutputs struct{}

var _ Outputs[uint64] = PositiveIntOutputs{}

func (PositiveIntOutputs) NoOutput() uint64 { return 0 }

func (PositiveIntOutputs) IsNoOutput(v uint64) bool { return v == 0 }

func (PositiveIntOutputs) Common(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	return min(a, b)
}

func (PositiveIntOutputs) Subtract(whole, prefix uint64) uint64 {
	if prefix > whole {
		panic("fst: PositiveIntOutputs.Subtract: prefix larger than output")
	}
	return whole - prefix
}

func (PositiveIntOutputs) Add(prefix, suffix uint64) uint64 {
	if suffix > math.MaxUint64-prefix {
		panic("fst: PositiveIntOutputs.Add: overflow")
	}
	return prefix + suffix
}

func (PositiveIntOutputs) Merge(_, _ uint64) (uint64, error) {
	return 0, ErrMergeNotSupported
}

func (PositiveIntOutputs) Equal(a, b uint64) bool { return a == b }

func (PositiveIntOutputs) Append(dst []byte, v uint64) []byte {
	return encoding.AppendUvarint(dst, v)
}

func (PositiveIntOutputs) Read(r *encoding.Reader) (uint64, error) {
	return r.ReadUvarint()
}

func (PositiveIntOutputs) Skip(r *encoding.Reader) error {
	_, err := r.ReadUvarint()
	return err
}

func (PositiveIntOutputs) String(v uint64) string { return strconv.FormatUint(v, 10) }
