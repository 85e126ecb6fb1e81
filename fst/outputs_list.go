package fst

import (
	"strings"

	"github.com/hupe1980/termdict/internal/encoding"
)

// ListOutputs wraps an algebra so that a key added several times in a row
// keeps every output, in insertion order.
//
// Only final outputs ever hold more than one element; arc outputs are always
// single values, so Common and Subtract operate on the first element.
type ListOutputs[T any] struct {
	Inner Outputs[T]
}

var _ Outputs[[]int] = ListOutputs[int]{}

// NewListOutputs wraps inner.
func NewListOutputs[T any](inner Outputs[T]) ListOutputs[T] {
	return ListOutputs[T]{Inner: inner}
}

func (l ListOutputs[T]) NoOutput() []T { return nil }

func (l ListOutputs[T]) IsNoOutput(v []T) bool {
	return len(v) == 0 || (len(v) == 1 && l.Inner.IsNoOutput(v[0]))
}

func (l ListOutputs[T]) single(v []T) T {
	if len(v) == 0 {
		return l.Inner.NoOutput()
	}
	if len(v) > 1 {
		panic("fst: ListOutputs: list output used where a single output is required")
	}
	return v[0]
}

func (l ListOutputs[T]) wrap(v T) []T {
	if l.Inner.IsNoOutput(v) {
		return nil
	}
	return []T{v}
}

func (l ListOutputs[T]) Common(a, b []T) []T {
	return l.wrap(l.Inner.Common(l.single(a), l.single(b)))
}

func (l ListOutputs[T]) Subtract(whole, prefix []T) []T {
	return l.wrap(l.Inner.Subtract(l.single(whole), l.single(prefix)))
}

func (l ListOutputs[T]) Add(prefix, suffix []T) []T {
	p := l.single(prefix)
	if len(suffix) <= 1 {
		return l.wrap(l.Inner.Add(p, l.single(suffix)))
	}
	out := make([]T, len(suffix))
	for i, s := range suffix {
		out[i] = l.Inner.Add(p, s)
	}
	return out
}

func (l ListOutputs[T]) Merge(a, b []T) ([]T, error) {
	out := make([]T, 0, len(a)+len(b)+2)
	out = append(out, l.expand(a)...)
	return append(out, l.expand(b)...), nil
}

func (l ListOutputs[T]) expand(v []T) []T {
	if len(v) == 0 {
		return []T{l.Inner.NoOutput()}
	}
	return v
}

func (l ListOutputs[T]) Equal(a, b []T) bool {
	if l.IsNoOutput(a) || l.IsNoOutput(b) {
		return l.IsNoOutput(a) == l.IsNoOutput(b)
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !l.Inner.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (l ListOutputs[T]) Append(dst []byte, v []T) []byte {
	dst = encoding.AppendUvarint(dst, uint64(len(v)))
	for _, e := range v {
		dst = l.Inner.Append(dst, e)
	}
	return dst
}

func (l ListOutputs[T]) Read(r *encoding.Reader) ([]T, error) {
	n, err := r.ReadUvarintInt()
	if err != nil {
		return nil, err
	}
	if n > r.Remaining()+1 {
		return nil, encoding.ErrShortBuffer
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]T, n)
	for i := range out {
		if out[i], err = l.Inner.Read(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l ListOutputs[T]) Skip(r *encoding.Reader) error {
	n, err := r.ReadUvarintInt()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := l.Inner.Skip(r); err != nil {
			return err
		}
	}
	return nil
}

func (l ListOutputs[T]) String(v []T) string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = l.Inner.String(e)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
