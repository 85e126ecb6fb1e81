// Package fst implements a minimal, acyclic finite state transducer over
// ordered label sequences.
//
// An FST maps byte (or code point) keys to outputs drawn from an output
// algebra (see Outputs). It is built in a single pass from keys added in
// ascending order:
//
//	b, _ := fst.NewBuilder[uint64](fst.PositiveIntOutputs{})
//	_ = b.Add([]byte("cat"), 5)
//	_ = b.Add([]byte("dog"), 7)
//	f, _ := b.Compile() // nil if nothing was added
//
//	v, ok, _ := fst.Get(f, []byte("dog")) // 7, true
//
// # Construction
//
// The builder keeps only the frontier: the uncompiled nodes on the path of
// the last key. When a new key shares a shorter prefix with the previous one,
// every frontier node below that prefix can no longer change and is frozen
// into the byte store. Before a node is written, its serialized bytes are
// fingerprinted and looked up in a content-addressed index so that identical
// suffixes share one compiled node. Outputs are pushed as close to the root as
// possible by factoring out their common prefix at every shared depth.
//
// # Layout
//
// Compiled nodes live in one immutable byte slice and are referenced by their
// byte offset. Each node starts with a uvarint header `numArcs<<2 | layout`.
// Small nodes use a variable-length arc list; nodes with many arcs are
// written as fixed-size slots that are either binary searched or, when
// labels are dense, addressed directly by label.
//
// # Concurrency
//
// A Builder is single-goroutine. A compiled FST is immutable and safe for
// concurrent use; each reader needs its own BytesReader and Arc values.
package fst
