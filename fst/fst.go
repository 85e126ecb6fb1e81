package fst

import (
	"fmt"

	"github.com/hupe1980/termdict/internal/encoding"
)

// FST is an immutable compiled automaton. It is safe for concurrent use.
type FST[T any] struct {
	outputs     Outputs[T]
	inputType   InputType
	bytes       []byte
	startNode   int64
	emptyOutput T
	hasEmpty    bool
	nodeCount   int64
	arcCount    int64
}

// Stats describes a compiled automaton.
type Stats struct {
	Nodes     int64
	Arcs      int64
	Bytes     int
	InputType InputType
	HasEmpty  bool
}

// Outputs returns the output algebra of the automaton.
func (f *FST[T]) Outputs() Outputs[T] { return f.outputs }

// InputType returns the label alphabet.
func (f *FST[T]) InputType() InputType { return f.inputType }

// EmptyOutput returns the output of the empty key, if it is accepted.
func (f *FST[T]) EmptyOutput() (T, bool) { return f.emptyOutput, f.hasEmpty }

// Stats returns size statistics.
func (f *FST[T]) Stats() Stats {
	return Stats{
		Nodes:     f.nodeCount,
		Arcs:      f.arcCount,
		Bytes:     len(f.bytes),
		InputType: f.inputType,
		HasEmpty:  f.hasEmpty,
	}
}

func (f *FST[T]) String() string {
	return fmt.Sprintf("FST(input=%v nodes=%d arcs=%d bytes=%d)", f.inputType, f.nodeCount, f.arcCount, len(f.bytes))
}

// BytesReader returns a reader over the node bytes. Readers are cheap and
// must not be shared between goroutines.
func (f *FST[T]) BytesReader() *encoding.Reader {
	return encoding.NewReader(f.bytes)
}

// FirstArc fills arc with the virtual arc leading into the start node.
func (f *FST[T]) FirstArc(arc *Arc[T]) *Arc[T] {
	*arc = Arc[T]{
		output:          f.outputs.NoOutput(),
		nextFinalOutput: f.outputs.NoOutput(),
		target:          f.startNode,
		flags:           flagLastArc,
	}
	if f.hasEmpty {
		arc.flags |= flagFinalArc
		arc.nextFinalOutput = f.emptyOutput
	}
	return arc
}

// TargetHasArcs reports whether the target of arc has outgoing arcs.
func (f *FST[T]) TargetHasArcs(arc *Arc[T]) bool {
	return arc.target > endNode
}

// ReadFirstTargetArc fills arc with the first arc leaving the target of
// follow. If follow is final the first arc is the EndLabel pseudo-arc that
// carries its final output.
func (f *FST[T]) ReadFirstTargetArc(follow, arc *Arc[T], r *encoding.Reader) (*Arc[T], error) {
	if follow.IsFinal() {
		f.endArc(follow, arc)
		return arc, nil
	}
	return f.ReadFirstRealTargetArc(follow.target, arc, r)
}

func (f *FST[T]) endArc(follow, arc *Arc[T]) {
	*arc = Arc[T]{
		label:           EndLabel,
		output:          follow.nextFinalOutput,
		nextFinalOutput: f.outputs.NoOutput(),
		target:          endNode,
		flags:           flagFinalArc,
	}
	if f.TargetHasArcs(follow) {
		arc.nextArc = follow.target
	} else {
		arc.flags |= flagLastArc
	}
}

// ReadFirstRealTargetArc fills arc with the first real arc of the node at
// address node.
func (f *FST[T]) ReadFirstRealTargetArc(node int64, arc *Arc[T], r *encoding.Reader) (*Arc[T], error) {
	if err := f.readNodeHeader(node, arc, r); err != nil {
		return nil, err
	}
	return f.ReadNextRealArc(arc, r)
}

// ReadNextArc advances arc to its next sibling. arc must not be the last.
func (f *FST[T]) ReadNextArc(arc *Arc[T], r *encoding.Reader) (*Arc[T], error) {
	if arc.label == EndLabel {
		if arc.nextArc <= endNode {
			return nil, corruptf("no arcs after final pseudo-arc")
		}
		return f.ReadFirstRealTargetArc(arc.nextArc, arc, r)
	}
	return f.ReadNextRealArc(arc, r)
}

// ReadNextRealArc advances arc to the next real arc of the same node. After
// readNodeHeader it reads the first arc.
func (f *FST[T]) ReadNextRealArc(arc *Arc[T], r *encoding.Reader) (*Arc[T], error) {
	switch arc.layout {
	case layoutBinarySearch:
		arc.arcIdx++
		if arc.arcIdx >= arc.numArcs {
			return nil, corruptf("read past last arc")
		}
		if err := f.seekSlot(arc, r, arc.arcIdx); err != nil {
			return nil, err
		}
		return arc, f.readArc(arc, r, true)
	case layoutDirect:
		idx := arc.arcIdx + 1
		for idx < arc.numArcs && !f.present(arc, idx) {
			idx++
		}
		if idx >= arc.numArcs {
			return nil, corruptf("read past last arc")
		}
		arc.arcIdx = idx
		if err := f.seekSlot(arc, r, idx); err != nil {
			return nil, err
		}
		arc.label = arc.firstLabel + idx
		return arc, f.readArc(arc, r, false)
	default:
		if arc.nextArc <= endNode {
			return nil, corruptf("read past last arc")
		}
		if err := r.SetPosition(int(arc.nextArc)); err != nil {
			return nil, wrapCorrupt("arc position", err)
		}
		return arc, f.readArc(arc, r, true)
	}
}

// FindTargetArc looks up the arc labelled label leaving the target of
// follow. It returns nil when there is none. follow and arc must be
// distinct.
func (f *FST[T]) FindTargetArc(label int, follow, arc *Arc[T], r *encoding.Reader) (*Arc[T], error) {
	if label == EndLabel {
		if !follow.IsFinal() {
			return nil, nil
		}
		f.endArc(follow, arc)
		return arc, nil
	}
	if !f.TargetHasArcs(follow) {
		return nil, nil
	}
	if err := f.readNodeHeader(follow.target, arc, r); err != nil {
		return nil, err
	}

	switch arc.layout {
	case layoutDirect:
		idx := label - arc.firstLabel
		if idx < 0 || idx >= arc.numArcs || !f.present(arc, idx) {
			return nil, nil
		}
		arc.arcIdx = idx
		if err := f.seekSlot(arc, r, idx); err != nil {
			return nil, err
		}
		arc.label = label
		return arc, f.readArc(arc, r, false)

	case layoutBinarySearch:
		lo, hi := 0, arc.numArcs-1
		for lo <= hi {
			mid := int(uint(lo+hi) >> 1)
			// Skip the flags byte; the label follows it.
			if err := r.SetPosition(int(arc.posArcsStart) + mid*arc.bytesPerArc + 1); err != nil {
				return nil, wrapCorrupt("arc slot", err)
			}
			l, err := f.inputType.readLabel(r)
			if err != nil {
				return nil, wrapCorrupt("arc label", err)
			}
			switch {
			case l < label:
				lo = mid + 1
			case l > label:
				hi = mid - 1
			default:
				arc.arcIdx = mid
				if err := f.seekSlot(arc, r, mid); err != nil {
					return nil, err
				}
				return arc, f.readArc(arc, r, true)
			}
		}
		return nil, nil

	default:
		for {
			if _, err := f.ReadNextRealArc(arc, r); err != nil {
				return nil, err
			}
			if arc.label == label {
				return arc, nil
			}
			if arc.label > label || arc.IsLast() {
				return nil, nil
			}
		}
	}
}

// readNodeHeader positions arc before the first arc of node.
func (f *FST[T]) readNodeHeader(node int64, arc *Arc[T], r *encoding.Reader) error {
	if node <= endNode || node >= int64(len(f.bytes)) {
		return corruptf("node address %d out of range", node)
	}
	if err := r.SetPosition(int(node)); err != nil {
		return wrapCorrupt("node address", err)
	}
	header, err := r.ReadUvarint()
	if err != nil {
		return wrapCorrupt("node header", err)
	}
	numArcs := int(header >> 2)
	if numArcs == 0 || uint64(numArcs) > uint64(len(f.bytes)) {
		return corruptf("node %d: bad arc count %d", node, numArcs)
	}
	arc.layout = byte(header & 3)
	arc.arcIdx = -1

	switch arc.layout {
	case layoutList:
		arc.nextArc = int64(r.Position())
		return nil
	case layoutBinarySearch, layoutDirect:
	default:
		return corruptf("node %d: unknown layout %d", node, arc.layout)
	}

	if arc.bytesPerArc, err = r.ReadUvarintInt(); err != nil {
		return wrapCorrupt("bytes per arc", err)
	}
	if arc.bytesPerArc <= 0 {
		return corruptf("node %d: bad bytes per arc %d", node, arc.bytesPerArc)
	}
	arc.numArcs = numArcs
	if arc.layout == layoutDirect {
		if arc.firstLabel, err = r.ReadUvarintInt(); err != nil {
			return wrapCorrupt("first label", err)
		}
		if arc.numArcs, err = r.ReadUvarintInt(); err != nil {
			return wrapCorrupt("label range", err)
		}
		if arc.numArcs < numArcs {
			return corruptf("node %d: label range %d below arc count %d", node, arc.numArcs, numArcs)
		}
		arc.presenceStart = int64(r.Position())
		if err := r.Skip((arc.numArcs + 7) / 8); err != nil {
			return wrapCorrupt("presence bits", err)
		}
	}
	arc.posArcsStart = int64(r.Position())
	if int64(arc.numArcs)*int64(arc.bytesPerArc) > int64(r.Remaining()) {
		return corruptf("node %d: arc table exceeds automaton", node)
	}
	return nil
}

func (f *FST[T]) present(arc *Arc[T], idx int) bool {
	return f.bytes[arc.presenceStart+int64(idx/8)]&(1<<(idx%8)) != 0
}

func (f *FST[T]) seekSlot(arc *Arc[T], r *encoding.Reader, idx int) error {
	if err := r.SetPosition(int(arc.posArcsStart) + idx*arc.bytesPerArc); err != nil {
		return wrapCorrupt("arc slot", err)
	}
	return nil
}

// readArc decodes one arc at the reader position.
func (f *FST[T]) readArc(arc *Arc[T], r *encoding.Reader, withLabel bool) error {
	flags, err := r.ReadByte()
	if err != nil {
		return wrapCorrupt("arc flags", err)
	}
	arc.flags = flags
	if withLabel {
		if arc.label, err = f.inputType.readLabel(r); err != nil {
			return wrapCorrupt("arc label", err)
		}
	}
	if arc.flag(flagArcHasOutput) {
		if arc.output, err = f.outputs.Read(r); err != nil {
			return wrapCorrupt("arc output", err)
		}
	} else {
		arc.output = f.outputs.NoOutput()
	}
	if arc.flag(flagArcHasFinalOutput) {
		if arc.nextFinalOutput, err = f.outputs.Read(r); err != nil {
			return wrapCorrupt("arc final output", err)
		}
	} else {
		arc.nextFinalOutput = f.outputs.NoOutput()
	}
	if arc.flag(flagStopNode) {
		arc.target = endNode
	} else {
		target, err := r.ReadUvarint()
		if err != nil {
			return wrapCorrupt("arc target", err)
		}
		if target == 0 || target >= uint64(len(f.bytes)) {
			return corruptf("arc target %d out of range", target)
		}
		arc.target = int64(target)
	}
	if arc.layout == layoutList {
		arc.nextArc = int64(r.Position())
	}
	return nil
}
