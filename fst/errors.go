package fst

import (
	"errors"
	"fmt"
)

var (
	// ErrConstructionContract is returned when the builder is used in a way
	// that breaks its input contract (e.g. keys out of order).
	ErrConstructionContract = errors.New("fst: construction contract violation")

	// ErrMergeNotSupported is returned when the same key is added twice and the
	// output algebra cannot merge outputs.
	ErrMergeNotSupported = errors.New("fst: outputs do not support merging duplicate keys")

	// ErrInvalidOutputs is returned when an output algebra does not satisfy the
	// identity contract (NoOutput must be recognised by IsNoOutput).
	ErrInvalidOutputs = errors.New("fst: invalid output algebra")

	// ErrInvalidLabel is returned for labels outside the configured input type.
	ErrInvalidLabel = errors.New("fst: label out of range for input type")

	// ErrCorrupt is returned when serialized FST bytes cannot be decoded.
	ErrCorrupt = errors.New("fst: corrupt automaton")

	// ErrBuilderClosed is returned when Add is called after Compile.
	ErrBuilderClosed = errors.New("fst: builder already compiled")
)

// OutOfOrderError reports a key that sorts before the previously added key.
type OutOfOrderError struct {
	Previous []int
	Current  []int
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("fst: keys added out of order: %v after %v", e.Current, e.Previous)
}

func (e *OutOfOrderError) Unwrap() error { return ErrConstructionContract }

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

func wrapCorrupt(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCorrupt) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrCorrupt, what, err)
}
