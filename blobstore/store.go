package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// ErrExists is returned by create-only stores when a blob with the same
// name has already been published.
var ErrExists = errors.New("blobstore: blob already exists")

// ErrClosed is returned by writes to a WritableBlob after Close.
var ErrClosed = errors.New("blobstore: blob is closed")

// BlobStore opens immutable blobs for reading.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
}

// WritableStore is a BlobStore that can also publish blobs.
type WritableStore interface {
	BlobStore
	// Create starts a streaming write. The blob becomes visible when the
	// returned WritableBlob is closed without error.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a whole blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs with the prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes at off. It follows io.ReaderAt semantics.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange returns a reader for length bytes at off, clamped to the
	// blob size. Offsets at or past the end return io.EOF.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.WriteCloser
	// Sync flushes buffered data to durable storage where supported.
	Sync() error
}

// Aborter is implemented by writable blobs that can discard an unfinished
// write instead of publishing it.
type Aborter interface {
	Abort(ctx context.Context) error
}

// Abort discards w if it supports Aborter. Other blobs are left unclosed.
func Abort(ctx context.Context, w WritableBlob) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort(ctx)
	}
	return nil
}

// Mappable is implemented by blobs whose contents are already in memory.
type Mappable interface {
	// Bytes returns the blob contents without copying. The slice is valid
	// until the Blob is closed.
	Bytes() ([]byte, error)
}

// ReaderAt binds a Blob to ctx so it can be used as an io.ReaderAt.
func ReaderAt(ctx context.Context, b Blob) io.ReaderAt {
	return &readerAt{ctx: ctx, b: b}
}

type readerAt struct {
	ctx context.Context
	b   Blob
}

func (r *readerAt) ReadAt(p []byte, off int64) (int, error) {
	return r.b.ReadAt(r.ctx, p, off)
}

// ReadAll returns the blob contents, without copying for Mappable blobs.
func ReadAll(ctx context.Context, b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Bytes()
	}
	buf := make([]byte, b.Size())
	n, err := b.ReadAt(ctx, buf, 0)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == b.Size()) {
		return nil, err
	}
	return buf[:n], nil
}

// ReadSection reads n bytes at off, without copying for Mappable blobs.
func ReadSection(ctx context.Context, b Blob, off int64, n int) ([]byte, error) {
	if off < 0 || n < 0 || off > b.Size()-int64(n) {
		return nil, io.ErrUnexpectedEOF
	}
	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		return data[off : off+int64(n) : off+int64(n)], nil
	}
	buf := make([]byte, n)
	read, err := b.ReadAt(ctx, buf, off)
	if read == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

// sectionReader turns ReadAt calls on a Blob into an io.Reader over
// [off, limit).
type sectionReader struct {
	ctx   context.Context
	blob  Blob
	off   int64
	limit int64
}

func newSectionReader(ctx context.Context, b Blob, off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, io.ErrUnexpectedEOF
	}
	if off >= b.Size() {
		return nil, io.EOF
	}
	return io.NopCloser(&sectionReader{ctx: ctx, blob: b, off: off, limit: min(off+length, b.Size())}), nil
}

func (r *sectionReader) Read(p []byte) (int, error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}
	return n, err
}
