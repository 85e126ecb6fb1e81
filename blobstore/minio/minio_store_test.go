package minio

import (
	"context"
	"io"
	"testing"

	"github.com/hupe1980/termdict/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore_Integration needs a MinIO server on localhost:9000 and is
// skipped otherwise.
func TestStore_Integration(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	const bucket = "termdict-test"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "a.tdct", data))

	blob, err := store.Open(ctx, "a.tdct")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := blob.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "a.tdct")

	require.NoError(t, store.Delete(ctx, "a.tdct"))
	_, err = store.Open(ctx, "a.tdct")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	wb, err := store.Create(ctx, "stream.tdct")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	streamed, err := store.Open(ctx, "stream.tdct")
	require.NoError(t, err)
	assert.Equal(t, int64(13), streamed.Size())

	aborted, err := store.Create(ctx, "aborted.tdct")
	require.NoError(t, err)
	_, err = aborted.Write([]byte("never published"))
	require.NoError(t, err)
	require.NoError(t, blobstore.Abort(ctx, aborted))
	_, err = store.Open(ctx, "aborted.tdct")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	_ = store.Delete(ctx, "stream.tdct")
}
