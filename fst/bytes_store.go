package fst

import (
	"bytes"
	"io"
)

const defaultBytesPageBits = 15

// BytesStore is the append-only paged buffer compiled nodes are written to.
//
// Offset 0 holds a single pad byte so that address 0 can stand for the end
// node: no real node ever starts there.
type BytesStore struct {
	pageBits int
	pageSize int
	pages    [][]byte
	size     int64
}

// NewBytesStore creates a store with pages of 1<<pageBits bytes.
func NewBytesStore(pageBits int) *BytesStore {
	if pageBits <= 0 || pageBits > 30 {
		pageBits = defaultBytesPageBits
	}
	s := &BytesStore{
		pageBits: pageBits,
		pageSize: 1 << pageBits,
	}
	s.WriteByte(0)
	return s
}

// Position returns the offset the next byte will be written at.
func (s *BytesStore) Position() int64 { return s.size }

// WriteByte appends one byte. It never fails.
func (s *BytesStore) WriteByte(c byte) error {
	s.grow()
	last := len(s.pages) - 1
	s.pages[last] = append(s.pages[last], c)
	s.size++
	return nil
}

// Write appends p. It never fails.
func (s *BytesStore) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		s.grow()
		last := len(s.pages) - 1
		page := s.pages[last]
		k := min(s.pageSize-len(page), len(p))
		s.pages[last] = append(page, p[:k]...)
		p = p[k:]
		s.size += int64(k)
	}
	return n, nil
}

func (s *BytesStore) grow() {
	if len(s.pages) == 0 || len(s.pages[len(s.pages)-1]) == s.pageSize {
		s.pages = append(s.pages, make([]byte, 0, s.pageSize))
	}
}

// Equal reports whether the len(b) bytes stored at addr equal b.
func (s *BytesStore) Equal(addr int64, b []byte) bool {
	if addr < 0 || addr+int64(len(b)) > s.size {
		return false
	}
	for len(b) > 0 {
		page := s.pages[addr>>s.pageBits]
		off := int(addr & int64(s.pageSize-1))
		k := min(len(page)-off, len(b))
		if !bytes.Equal(page[off:off+k], b[:k]) {
			return false
		}
		b = b[k:]
		addr += int64(k)
	}
	return true
}

// Bytes returns the stored bytes as one contiguous slice. With a single page
// no copy is made.
func (s *BytesStore) Bytes() []byte {
	if len(s.pages) == 1 {
		return s.pages[0]
	}
	out := make([]byte, 0, s.size)
	for _, p := range s.pages {
		out = append(out, p...)
	}
	return out
}

// WriteTo writes the stored bytes to w.
func (s *BytesStore) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, p := range s.pages {
		n, err := w.Write(p)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
