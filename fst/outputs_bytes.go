package fst

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/termdict/internal/encoding"
)

// ByteSequenceOutputs maps keys to byte strings. Common is the longest shared
// prefix; the output of a key is the concatenation along its path.
//
// Returned slices may alias inputs and must be treated as read-only.
type ByteSequenceOutputs struct{}

var _ Outputs[[]byte] = ByteSequenceOutputs{}

func (ByteSequenceOutputs) NoOutput() []byte { return nil }

func (ByteSequenceOutputs) IsNoOutput(v []byte) bool { return len(v) == 0 }

func (ByteSequenceOutputs) Common(a, b []byte) []byte {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	if i == 0 {
		return nil
	}
	return a[:i:i]
}

func (ByteSequenceOutputs) Subtract(whole, prefix []byte) []byte {
	if len(prefix) == 0 {
		return whole
	}
	if !bytes.HasPrefix(whole, prefix) {
		panic("fst: ByteSequenceOutputs.Subtract: not a prefix")
	}
	if len(prefix) == len(whole) {
		return nil
	}
	return whole[len(prefix):]
}

func (ByteSequenceOutputs) Add(prefix, suffix []byte) []byte {
	if len(prefix) == 0 {
		return suffix
	}
	if len(suffix) == 0 {
		return prefix
	}
	out := make([]byte, 0, len(prefix)+len(suffix))
	out = append(out, prefix...)
	return append(out, suffix...)
}

func (ByteSequenceOutputs) Merge(_, _ []byte) ([]byte, error) {
	return nil, ErrMergeNotSupported
}

func (ByteSequenceOutputs) Equal(a, b []byte) bool { return bytes.Equal(a, b) }

func (ByteSequenceOutputs) Append(dst []byte, v []byte) []byte {
	return encoding.AppendBytes(dst, v)
}

func (ByteSequenceOutputs) Read(r *encoding.Reader) ([]byte, error) {
	n, err := r.ReadUvarintInt()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return r.ReadBytes(n)
}

func (ByteSequenceOutputs) Skip(r *encoding.Reader) error {
	n, err := r.ReadUvarintInt()
	if err != nil {
		return err
	}
	return r.Skip(n)
}

func (ByteSequenceOutputs) String(v []byte) string { return fmt.Sprintf("%x", v) }
