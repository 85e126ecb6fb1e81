// Package blobstore abstracts where segment files live.
//
// A segment is written once through a WritableStore and read many times
// through a BlobStore. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, reads through read-only mmap
//   - MemoryStore: in-process map, for tests and the CLI's dry runs
//   - CachingStore: page cache in front of any remote store
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// Blobs that live in memory (local mmap, MemoryStore) also implement
// Mappable, which lets readers decode term blocks without copying.
package blobstore
