// Package s3 stores term dictionary segments in Amazon S3.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := awss3.NewFromConfig(cfg)
//	store := s3.NewStore(client, "my-bucket", "dicts/")
//
//	w, err := termdict.NewWriter(ctx, store, "seg-0001.tdct")
//
// Reads are ranged GETs, so a seek only downloads the blocks it touches.
// Wrap the store in blobstore.NewCachingStore to keep hot pages in memory.
// Writes stream through the multipart uploader and are only visible once
// the blob is closed.
//
// # S3 Express One Zone
//
// ExpressStore targets directory buckets. It behaves like Store but writes
// with If-None-Match, so publishing a segment name twice fails with
// blobstore.ErrExists:
//
//	store := s3.NewExpressStore(client, "dicts--use1-az4--x-s3", "segments/")
package s3
