package termdict

import (
	"errors"
	"fmt"

	"github.com/hupe1980/termdict/blobstore"
	"github.com/hupe1980/termdict/blocktree"
	"github.com/hupe1980/termdict/fst"
	"github.com/hupe1980/termdict/internal/resource"
)

var (
	// ErrCorrupt is returned when a segment fails a checksum or structural
	// check.
	ErrCorrupt = errors.New("termdict: corrupt segment")

	// ErrNotFound is returned when a segment blob does not exist.
	ErrNotFound = errors.New("termdict: not found")

	// ErrFieldNotFound is returned for a field the segment does not contain.
	ErrFieldNotFound = errors.New("termdict: field not found")

	// ErrClosed is returned by a Writer or Reader after Close.
	ErrClosed = errors.New("termdict: closed")

	// ErrConstructionContract is returned when terms are added out of
	// order, duplicated, or with invalid postings.
	ErrConstructionContract = errors.New("termdict: construction contract violation")

	// ErrUnsupportedVersion is returned for segments written by a newer
	// format version.
	ErrUnsupportedVersion = errors.New("termdict: unsupported segment version")

	// ErrInvalidOptions is returned for inconsistent block sizes or an
	// unknown compression.
	ErrInvalidOptions = errors.New("termdict: invalid options")

	// ErrExists is returned when publishing a segment to a create-only
	// store under a name that is already taken.
	ErrExists = blobstore.ErrExists

	// ErrMemoryLimitExceeded is returned when build buffers would exceed the
	// configured memory limit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// ErrUnknownCodec indicates a segment whose metadata codec is not built in.
type ErrUnknownCodec struct {
	Name string
}

func (e *ErrUnknownCodec) Error() string {
	return fmt.Sprintf("termdict: unknown metadata codec %q", e.Name)
}

func (e *ErrUnknownCodec) Unwrap() error { return ErrCorrupt }

// ErrOutOfOrder indicates a term that is not greater than its predecessor
// in the same field.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrOutOfOrder struct {
	Field    string
	Previous []byte
	Current  []byte
	cause    error
}

func (e *ErrOutOfOrder) Error() string {
	return fmt.Sprintf("termdict: field %q: term %q added after %q", e.Field, e.Current, e.Previous)
}

func (e *ErrOutOfOrder) Unwrap() []error { return []error{ErrConstructionContract, e.cause} }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var toe *blocktree.TermOrderError
	if errors.As(err, &toe) {
		var ooo *ErrOutOfOrder
		if errors.As(err, &ooo) {
			return err
		}
		return &ErrOutOfOrder{Previous: toe.Previous, Current: toe.Current, cause: err}
	}

	switch {
	case errors.Is(err, ErrCorrupt), errors.Is(err, ErrConstructionContract),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrFieldNotFound),
		errors.Is(err, ErrInvalidOptions), errors.Is(err, ErrClosed):
		return err
	case errors.Is(err, blocktree.ErrInvalidOptions):
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	case errors.Is(err, fst.ErrConstructionContract):
		return fmt.Errorf("%w: %w", ErrConstructionContract, err)
	case errors.Is(err, blocktree.ErrCorrupt), errors.Is(err, fst.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	case errors.Is(err, blobstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, blocktree.ErrWriterClosed), errors.Is(err, blobstore.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}
