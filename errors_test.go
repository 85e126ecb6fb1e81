package termdict

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/termdict/blobstore"
	"github.com/hupe1980/termdict/blocktree"
	"github.com/hupe1980/termdict/fst"
)

func TestTranslateError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"fst contract", fmt.Errorf("wrapped: %w", fst.ErrConstructionContract), ErrConstructionContract},
		{"fst corrupt", fst.ErrCorrupt, ErrCorrupt},
		{"blocktree corrupt", &blocktree.ChecksumMismatchError{FP: 10}, ErrCorrupt},
		{"blocktree options", blocktree.ErrInvalidOptions, ErrInvalidOptions},
		{"blocktree closed", blocktree.ErrWriterClosed, ErrClosed},
		{"blob not found", fmt.Errorf("open: %w", blobstore.ErrNotFound), ErrNotFound},
		{"blob closed", blobstore.ErrClosed, ErrClosed},
		{"blob exists", fmt.Errorf("publish: %w", blobstore.ErrExists), ErrExists},
		{"passthrough", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			require.ErrorIs(t, got, tt.want)
			require.ErrorIs(t, got, tt.in)
		})
	}

	assert.NoError(t, translateError(nil))
}

func TestTranslateError_TermOrder(t *testing.T) {
	in := &blocktree.TermOrderError{Previous: []byte("b"), Current: []byte("a")}
	err := translateError(in)

	var ooo *ErrOutOfOrder
	require.ErrorAs(t, err, &ooo)
	assert.Equal(t, []byte("b"), ooo.Previous)
	assert.Equal(t, []byte("a"), ooo.Current)
	assert.ErrorIs(t, err, ErrConstructionContract)
	assert.ErrorIs(t, err, fst.ErrConstructionContract)
	assert.ErrorAs(t, err, &in)

	// Already translated errors are returned unchanged.
	assert.Same(t, ooo, translateError(err))
}

func TestErrUnknownCodec(t *testing.T) {
	err := &ErrUnknownCodec{Name: "xml"}
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Contains(t, err.Error(), `"xml"`)
}
