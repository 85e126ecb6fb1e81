package fst

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Builder compiles an FST from keys added in ascending order.
//
// A Builder is not safe for concurrent use. Once Add or Compile returns an
// error the builder is unusable and every later call returns that error.
type Builder[T any] struct {
	outputs Outputs[T]
	opts    builderOptions
	store   *BytesStore
	dedup   *nodeHash
	enc     nodeEncoder[T]
	scratch []byte

	// frontier[i] is the uncompiled node at depth i on the path of lastInput.
	frontier  []*uncompiledNode[T]
	lastInput []int
	labels    []int

	emptyOutput T
	hasEmpty    bool

	nodeCount        int64
	arcCount         int64
	mappedStateCount int64
	termCount        int64

	compiled bool
	err      error
}

// NewBuilder creates a builder over the given output algebra.
func NewBuilder[T any](outputs Outputs[T], opts ...BuilderOption) (*Builder[T], error) {
	if err := validateOutputs(outputs); err != nil {
		return nil, err
	}
	o := defaultBuilderOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !o.inputType.valid() {
		return nil, fmt.Errorf("fst: invalid input type %v", o.inputType)
	}

	store := NewBytesStore(o.bytesPageBits)
	b := &Builder[T]{
		outputs: outputs,
		opts:    o,
		store:   store,
		enc: nodeEncoder[T]{
			outputs:       outputs,
			inputType:     o.inputType,
			fixedLength:   o.fixedLengthArcs,
			direct:        o.directAddressing,
			maxOversizing: o.maxOversizing,
		},
		frontier:    make([]*uncompiledNode[T], 0, 16),
		emptyOutput: outputs.NoOutput(),
	}
	if o.suffixSharing {
		b.dedup = newNodeHash(store)
	}
	for i := 0; i < 10; i++ {
		b.frontier = append(b.frontier, newUncompiledNode(outputs, i))
	}
	return b, nil
}

// Add adds a byte key. Keys must be added in ascending order.
func (b *Builder[T]) Add(key []byte, out T) error {
	b.labels = b.labels[:0]
	for _, c := range key {
		b.labels = append(b.labels, int(c))
	}
	return b.AddLabels(b.labels, out)
}

// AddLabels adds a key given as labels. Keys must be added in ascending order;
// an equal key is merged with the previous one through Outputs.Merge.
func (b *Builder[T]) AddLabels(input []int, out T) error {
	if b.err != nil {
		return b.err
	}
	if b.compiled {
		return ErrBuilderClosed
	}
	if err := b.add(input, out); err != nil {
		b.err = err
		return err
	}
	b.termCount++
	return nil
}

func (b *Builder[T]) add(input []int, out T) error {
	maxLabel := b.opts.inputType.maxLabel()
	for _, l := range input {
		if l < 0 || l > maxLabel {
			return fmt.Errorf("%w: %d (%v)", ErrInvalidLabel, l, b.opts.inputType)
		}
	}
	if (b.termCount > 0 || b.hasEmpty) && slices.Compare(input, b.lastInput) < 0 {
		return &OutOfOrderError{Previous: slices.Clone(b.lastInput), Current: slices.Clone(input)}
	}

	out = canonical(b.outputs, out)

	if len(input) == 0 {
		// Finality lives on incoming arcs, so the empty key is kept on the
		// automaton rather than on the root.
		b.frontier[0].inputCount++
		b.frontier[0].isFinal = true
		if b.hasEmpty {
			merged, err := b.outputs.Merge(b.emptyOutput, out)
			if err != nil {
				return fmt.Errorf("%w: duplicate empty key: %w", ErrConstructionContract, err)
			}
			b.emptyOutput = canonical(b.outputs, merged)
		} else {
			b.emptyOutput = out
			b.hasEmpty = true
		}
		return nil
	}

	// Shared prefix with the previous key; every node on it sees one more key.
	pos := 0
	stop := min(len(b.lastInput), len(input))
	for {
		b.frontier[pos].inputCount++
		if pos >= stop || b.lastInput[pos] != input[pos] {
			break
		}
		pos++
	}
	prefixLenPlus1 := pos + 1

	for len(b.frontier) < len(input)+1 {
		b.frontier = append(b.frontier, newUncompiledNode(b.outputs, len(b.frontier)))
	}

	b.freezeTail(prefixLenPlus1)

	for idx := prefixLenPlus1; idx <= len(input); idx++ {
		b.frontier[idx-1].addArc(b.outputs, input[idx-1], b.frontier[idx])
		b.frontier[idx].inputCount++
	}

	lastNode := b.frontier[len(input)]
	duplicate := len(b.lastInput) == len(input) && prefixLenPlus1 == len(input)+1
	if !duplicate {
		lastNode.isFinal = true
		lastNode.output = b.outputs.NoOutput()
	}

	// Push conflicting outputs forward, only as far as needed.
	for idx := 1; idx < prefixLenPlus1; idx++ {
		node := b.frontier[idx]
		parent := b.frontier[idx-1]
		arc := parent.last()
		if b.outputs.IsNoOutput(arc.output) {
			continue
		}
		common := canonical(b.outputs, b.outputs.Common(out, arc.output))
		suffix := canonical(b.outputs, b.outputs.Subtract(arc.output, common))
		arc.output = common
		if !b.outputs.IsNoOutput(suffix) {
			node.prependOutput(b.outputs, suffix)
		}
		out = canonical(b.outputs, b.outputs.Subtract(out, common))
	}

	if duplicate {
		merged, err := b.outputs.Merge(lastNode.output, out)
		if err != nil {
			return fmt.Errorf("%w: duplicate key %v: %w", ErrConstructionContract, input, err)
		}
		lastNode.output = canonical(b.outputs, merged)
	} else {
		b.frontier[prefixLenPlus1-1].last().output = out
	}

	b.lastInput = append(b.lastInput[:0], input...)
	return nil
}

// freezeTail compiles or prunes every frontier node deeper than
// prefixLenPlus1-1, deepest first.
func (b *Builder[T]) freezeTail(prefixLenPlus1 int) {
	minCount1, minCount2 := b.opts.minSuffixCount1, b.opts.minSuffixCount2
	downTo := max(1, prefixLenPlus1)
	for idx := len(b.lastInput); idx >= downTo; idx-- {
		node := b.frontier[idx]
		parent := b.frontier[idx-1]
		label := b.lastInput[idx-1]

		doPrune, doCompile := false, false
		switch {
		case node.inputCount < minCount1:
			doPrune, doCompile = true, true
		case idx > prefixLenPlus1:
			// The parent is about to be frozen too; if it does not make the
			// cut neither does this node. With minCount2 == 1 only the part
			// up to the distinguishing arc is kept.
			doPrune = parent.inputCount < minCount2 || (minCount2 == 1 && parent.inputCount == 1 && idx > 1)
			doCompile = true
		default:
			doCompile = minCount2 == 0
		}

		if node.inputCount < minCount2 || (minCount2 == 1 && node.inputCount == 1 && idx > 1) {
			for i := range node.arcs {
				if t := node.arcs[i].node; t != nil {
					t.clear(b.outputs)
				}
			}
			clear(node.arcs)
			node.arcs = node.arcs[:0]
		}

		if doPrune {
			node.clear(b.outputs)
			parent.deleteLast(label)
			continue
		}

		if minCount2 != 0 {
			b.compileAllTargets(node, len(b.lastInput)-idx)
		}
		nextFinalOutput := node.output
		// A node without arcs is made final; dead-end non-final states are
		// never written.
		isFinal := node.isFinal || len(node.arcs) == 0

		if doCompile {
			addr := b.compileNode(node, 1+len(b.lastInput)-idx)
			parent.replaceLast(label, addr, nextFinalOutput, isFinal)
		} else {
			// Undecided: keep the node alive behind the arc and give the
			// frontier a fresh one.
			parent.keepUndecided(label, node, nextFinalOutput, isFinal)
			b.frontier[idx] = newUncompiledNode(b.outputs, idx)
		}
	}
}

func (b *Builder[T]) compileAllTargets(node *uncompiledNode[T], tailLength int) {
	for i := range node.arcs {
		a := &node.arcs[i]
		if a.node == nil {
			continue
		}
		t := a.node
		if len(t.arcs) == 0 {
			a.isFinal = true
			t.isFinal = true
		}
		a.target = b.compileNode(t, tailLength-1)
		a.node = nil
	}
}

// compileNode writes n (or finds an identical node already written) and
// returns its address. n is cleared for reuse.
func (b *Builder[T]) compileNode(n *uncompiledNode[T], tailLength int) int64 {
	if len(n.arcs) == 0 {
		n.clear(b.outputs)
		return endNode
	}

	b.scratch = b.enc.encode(b.scratch[:0], n)
	numArcs := int64(len(n.arcs))

	var addr int64
	if b.dedup != nil &&
		(b.opts.shareNonSingleton || numArcs <= 1) &&
		tailLength <= b.opts.shareMaxTailLength {
		var shared bool
		addr, shared = b.dedup.add(b.scratch)
		if shared {
			b.mappedStateCount++
		} else {
			b.nodeCount++
			b.arcCount += numArcs
		}
	} else {
		addr = b.store.Position()
		_, _ = b.store.Write(b.scratch)
		b.nodeCount++
		b.arcCount += numArcs
	}

	n.clear(b.outputs)
	return addr
}

// Compile freezes the remaining frontier and returns the automaton. It
// returns (nil, nil) when nothing was accepted: no key survived and there is
// no empty key, or the empty key was pruned.
func (b *Builder[T]) Compile() (*FST[T], error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.compiled {
		return nil, ErrBuilderClosed
	}
	b.compiled = true

	root := b.frontier[0]
	b.freezeTail(0)

	minCount1, minCount2 := b.opts.minSuffixCount1, b.opts.minSuffixCount2
	if root.inputCount < minCount1 || root.inputCount < minCount2 || len(root.arcs) == 0 {
		if !b.hasEmpty || minCount1 > 0 || minCount2 > 0 {
			b.logDone(nil)
			return nil, nil
		}
	} else if minCount2 != 0 {
		b.compileAllTargets(root, len(b.lastInput))
	}

	start := b.compileNode(root, len(b.lastInput))
	f := &FST[T]{
		outputs:     b.outputs,
		inputType:   b.opts.inputType,
		bytes:       b.store.Bytes(),
		startNode:   start,
		emptyOutput: b.emptyOutput,
		hasEmpty:    b.hasEmpty,
		nodeCount:   b.nodeCount,
		arcCount:    b.arcCount,
	}
	b.logDone(f)
	return f, nil
}

func (b *Builder[T]) logDone(f *FST[T]) {
	if !b.opts.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{
		slog.Int64("terms", b.termCount),
		slog.Int64("nodes", b.nodeCount),
		slog.Int64("arcs", b.arcCount),
		slog.Int64("mapped_states", b.mappedStateCount),
		slog.Int64("list_nodes", b.enc.listNodes),
		slog.Int64("binary_search_nodes", b.enc.binarySearchNodes),
		slog.Int64("direct_nodes", b.enc.directNodes),
	}
	if b.dedup != nil {
		attrs = append(attrs, slog.Int("dedup_entries", b.dedup.len()))
	}
	if f == nil {
		b.opts.logger.Debug("fst compiled to empty automaton", attrs...)
		return
	}
	attrs = append(attrs, slog.Int("bytes", len(f.bytes)))
	b.opts.logger.Debug("fst compiled", attrs...)
}

// NodeCount returns the number of distinct nodes written so far.
func (b *Builder[T]) NodeCount() int64 { return b.nodeCount }

// ArcCount returns the number of arcs in the nodes written so far.
func (b *Builder[T]) ArcCount() int64 { return b.arcCount }

// MappedStateCount returns how many compiled nodes were resolved to an
// existing identical node instead of being written.
func (b *Builder[T]) MappedStateCount() int64 { return b.mappedStateCount }

// TermCount returns the number of keys added, duplicates included.
func (b *Builder[T]) TermCount() int64 { return b.termCount }
