package fst

import "github.com/cespare/xxhash/v2"

type nodeEntry struct {
	addr int64
	size int
}

// nodeHash is the content-addressed index of compiled nodes. Keys are the
// xxhash64 fingerprints of serialized node bytes; collisions are resolved by
// comparing against the store.
type nodeHash struct {
	store *BytesStore
	table map[uint64][]nodeEntry
}

func newNodeHash(store *BytesStore) *nodeHash {
	return &nodeHash{
		store: store,
		table: make(map[uint64][]nodeEntry),
	}
}

// add returns the address of a node whose bytes equal node, writing it to the
// store first if no such node exists yet.
func (h *nodeHash) add(node []byte) (addr int64, shared bool) {
	fp := xxhash.Sum64(node)
	for _, e := range h.table[fp] {
		if e.size == len(node) && h.store.Equal(e.addr, node) {
			return e.addr, true
		}
	}
	addr = h.store.Position()
	_, _ = h.store.Write(node)
	h.table[fp] = append(h.table[fp], nodeEntry{addr: addr, size: len(node)})
	return addr, false
}

func (h *nodeHash) len() int {
	n := 0
	for _, es := range h.table {
		n += len(es)
	}
	return n
}
