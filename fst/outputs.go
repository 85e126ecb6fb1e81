package fst

import (
	"fmt"

	"github.com/hupe1980/termdict/internal/encoding"
)

// Outputs is the algebra of values attached to keys.
//
// Implementations must satisfy, for all a and b:
//
//	Add(Common(a, b), Subtract(a, Common(a, b))) == a
//
// and treat NoOutput as the identity of Add. The builder only ever stores
// outputs that IsNoOutput rejects; anything IsNoOutput accepts is replaced by
// NoOutput() before it is kept.
type Outputs[T any] interface {
	// NoOutput returns the identity value.
	NoOutput() T
	// IsNoOutput reports whether v is the identity value.
	IsNoOutput(v T) bool
	// Common returns the largest shared prefix of a and b.
	Common(a, b T) T
	// Subtract removes prefix from whole.
	Subtract(whole, prefix T) T
	// Add concatenates prefix and suffix.
	Add(prefix, suffix T) T
	// Merge combines the outputs of a key added twice in a row.
	// Algebras that cannot merge return ErrMergeNotSupported.
	Merge(a, b T) (T, error)
	// Equal reports value equality.
	Equal(a, b T) bool
	// Append serializes v onto dst.
	Append(dst []byte, v T) []byte
	// Read decodes one value.
	Read(r *encoding.Reader) (T, error)
	// Skip advances past one encoded value.
	Skip(r *encoding.Reader) error
	// String formats v for debugging.
	String(v T) string
}

// validateOutputs checks the identity contract of an algebra once, so the
// builder can rely on IsNoOutput for the sentinel checks it performs per key.
func validateOutputs[T any](o Outputs[T]) error {
	if o == nil {
		return fmt.Errorf("%w: nil outputs", ErrInvalidOutputs)
	}
	no := o.NoOutput()
	if !o.IsNoOutput(no) {
		return fmt.Errorf("%w: NoOutput() is not recognised by IsNoOutput", ErrInvalidOutputs)
	}
	if !o.IsNoOutput(o.Add(no, no)) {
		return fmt.Errorf("%w: Add(NoOutput, NoOutput) is not NoOutput", ErrInvalidOutputs)
	}
	if !o.IsNoOutput(o.Common(no, no)) {
		return fmt.Errorf("%w: Common(NoOutput, NoOutput) is not NoOutput", ErrInvalidOutputs)
	}
	return nil
}

// canonical replaces any value equal to the identity by NoOutput().
func canonical[T any](o Outputs[T], v T) T {
	if o.IsNoOutput(v) {
		return o.NoOutput()
	}
	return v
}
