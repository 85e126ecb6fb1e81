// Package compress wraps the block codecs used for term-block suffix data.
//
// Suffix bytes of a term block are highly repetitive (shared stems,
// numbering schemes), so blocks can optionally be compressed with LZ4 for
// fast lookups or ZSTD for a better ratio. Compress falls back to storing
// data uncompressed when the codec does not save at least 10%, and reports
// the codec it actually used so the reader can record it per block.
package compress
