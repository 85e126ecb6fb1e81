// Package mmap maps segment files read-only into memory.
//
// Term dictionaries are read with a random access pattern: a seek touches
// the root block, a handful of inner blocks and one postings list. Mapping
// the file lets readers hand those byte ranges to the block-tree decoder
// without copying them.
//
//	m, err := mmap.Open("segment.tdct")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessRandom)
//	data := m.Bytes()
//
// On Unix the mapping uses mmap(2) and madvise(2). On Windows it uses
// CreateFileMapping/MapViewOfFile and access hints are ignored.
//
// A Mapping is safe for concurrent reads. Close is idempotent; callers
// must not touch slices returned by Bytes or Slice after Close.
package mmap
