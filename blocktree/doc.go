// Package blocktree implements a block-tree term dictionary on top of the
// fst package.
//
// Terms are written in ascending order. The Writer groups runs of terms that
// share a prefix into on-disk blocks of between MinItemsInBlock and
// MaxItemsInBlock entries; a prefix with too many entries is split into
// several "floor" blocks by the lead byte of the remaining suffix. Blocks
// nest: a block may point at sub-blocks for longer prefixes. Only block
// prefixes are indexed, in an FST whose output for a prefix encodes the
// file pointer of its block (and, for floor blocks, the lead bytes and
// pointers of the followers).
//
// A Seeker walks the index FST as far as the target allows, loads the block
// of the deepest matching prefix and scans it. It keeps the frames and arcs
// of the previous seek and reuses them for the prefix the new target shares
// with the current term, so seeking sorted targets costs little more than
// scanning forward.
//
// Block layout:
//
//	uvarint bodyLen | body | crc32c(body) u32 LE
//	body := uvarint(entCount<<1 | isLastInFloor)
//	        uvarint(rawSuffixLen<<3 | isLeaf<<2 | codec) [uvarint storedLen] suffixes
//	        uvarint statsLen stats
//	        uvarint metaLen  meta
package blocktree
