package s3

import "strings"

// ExpressStore stores segments in an S3 Express One Zone directory bucket.
//
// Directory buckets (names ending in --x-s3) live in a single Availability
// Zone and answer ranged GETs in single-digit milliseconds, which suits
// seek-heavy dictionary lookups. They also support conditional writes, so
// ExpressStore publishes create-only: a Put or Create on a name that already
// exists fails with blobstore.ErrExists instead of replacing a segment that
// readers may have open.
type ExpressStore struct {
	*Store
}

// NewExpressStore creates a store for a directory bucket. The SDK handles
// CreateSession authentication for directory buckets transparently.
func NewExpressStore(client Client, bucket, rootPrefix string, opts ...Option) *ExpressStore {
	s := NewStore(client, bucket, rootPrefix, opts...)
	s.createOnly = true
	return &ExpressStore{Store: s}
}

// IsDirectoryBucket reports whether bucket follows the S3 Express naming
// scheme bucket-base-name--zone-id--x-s3.
func IsDirectoryBucket(bucket string) bool {
	return strings.HasSuffix(bucket, "--x-s3")
}
