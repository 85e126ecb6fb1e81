// Package termdict stores term dictionaries as immutable segments in a blob
// store.
//
// A segment holds one or more fields. Each field maps byte-string terms to
// roaring bitmaps of document ids. Terms are grouped into prefix-sharing
// blocks and indexed by a minimal acyclic FST (see packages blocktree and
// fst), so a lookup reads the in-memory index and then a single block.
//
// # Writing
//
// Terms must be added in strictly ascending byte order per field:
//
//	store := blobstore.NewMemoryStore()
//	w, _ := termdict.NewWriter(ctx, store, "seg-1")
//	_ = w.Add("title", []byte("apple"), roaring.BitmapOf(1, 4))
//	_ = w.Add("title", []byte("banana"), roaring.BitmapOf(2))
//	_ = w.Close(ctx) // publishes the segment
//
// BuildFields builds independent fields concurrently from iterators.
//
// # Reading
//
//	r, _ := termdict.Open(ctx, store, "seg-1")
//	defer r.Close()
//	docs, found, _ := r.Lookup(ctx, "title", []byte("apple"))
//
// For range scans and prefix iteration, take a Seeker from Field and resolve
// documents with Postings.
//
// # Stores
//
// Local segments are memory-mapped. Remote stores (blobstore/s3,
// blobstore/minio) read term blocks on demand; WithBlockCacheSize keeps
// verified blocks and postings in an LRU cache.
//
// # Integrity
//
// Segment metadata, every term block and every posting carry a CRC32C.
// Failures surface as errors matching ErrCorrupt.
package termdict
