package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	src := []byte("abcdef")
	require.NoError(t, store.Put(ctx, "a", src))
	src[0] = 'X'

	blob, err := store.Open(ctx, "a")
	require.NoError(t, err)
	all, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(all))

	sec, err := ReadSection(ctx, blob, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "cde", string(sec))

	_, err = ReadSection(ctx, blob, 4, 3)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	n, err := ReaderAt(ctx, blob).ReadAt(make([]byte, 4), 4)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	w, err := store.Create(ctx, "b")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	_, err = store.Open(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), ErrClosed)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Open(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Empty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "empty")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	blob, err := store.Open(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, int64(0), blob.Size())

	_, err = blob.ReadRange(ctx, 0, 1)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadSection_NonMappable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "a", []byte("0123456789")))
	inner, err := store.Open(ctx, "a")
	require.NoError(t, err)

	blob := &countingBlob{Blob: inner}
	sec, err := ReadSection(ctx, blob, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, "789", string(sec))
	assert.Equal(t, 1, blob.reads)

	all, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(all))
}
