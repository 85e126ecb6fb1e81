package blocktree

import (
	"errors"
	"fmt"

	"github.com/hupe1980/termdict/fst"
)

var (
	// ErrCorrupt is returned when block or index bytes cannot be decoded.
	ErrCorrupt = errors.New("blocktree: corrupt term dictionary")

	// ErrIndexNotLoaded is returned when a seeker is requested for a field
	// without a terms index.
	ErrIndexNotLoaded = errors.New("blocktree: terms index not loaded")

	// ErrWriterClosed is returned by Add after Finish.
	ErrWriterClosed = errors.New("blocktree: writer already finished")

	// ErrNotPositioned is returned when term metadata is requested from a
	// seeker that is not on a term.
	ErrNotPositioned = errors.New("blocktree: seeker is not positioned on a term")
)

// TermOrderError reports a term that does not sort strictly after the
// previous one. It matches fst.ErrConstructionContract with errors.Is.
type TermOrderError struct {
	Previous []byte
	Current  []byte
}

func (e *TermOrderError) Error() string {
	return fmt.Sprintf("blocktree: term %q added after %q", e.Current, e.Previous)
}

func (e *TermOrderError) Unwrap() error { return fst.ErrConstructionContract }

// ChecksumMismatchError reports a block whose CRC does not match its body.
type ChecksumMismatchError struct {
	FP       int64
	Stored   uint32
	Computed uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("blocktree: block at %d: checksum mismatch: stored %08x, computed %08x", e.FP, e.Stored, e.Computed)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrCorrupt }

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
