package fst

import (
	"github.com/hupe1980/termdict/internal/encoding"
)

// Node layouts, stored in the low two bits of the node header.
const (
	layoutList         = 0
	layoutBinarySearch = 1
	layoutDirect       = 2
)

// Arc flags.
const (
	flagFinalArc          byte = 1 << 0
	flagLastArc           byte = 1 << 1
	flagStopNode          byte = 1 << 2
	flagArcHasOutput      byte = 1 << 3
	flagArcHasFinalOutput byte = 1 << 4
)

// Fixed-length arc thresholds.
const (
	FixedArrayMinArcs      = 5
	FixedArrayShallowDepth = 3
	FixedArrayMinArcsDeep  = 10
)

// endNode is the address of the node without arcs.
const endNode int64 = 0

// nodeEncoder serializes uncompiled nodes. The scratch slots are reused
// across nodes.
type nodeEncoder[T any] struct {
	outputs       Outputs[T]
	inputType     InputType
	fixedLength   bool
	direct        bool
	maxOversizing float64
	slots         [][]byte

	listNodes, binarySearchNodes, directNodes int64
}

func (e *nodeEncoder[T]) useFixedLength(depth, numArcs int) bool {
	if !e.fixedLength {
		return false
	}
	return (depth <= FixedArrayShallowDepth && numArcs >= FixedArrayMinArcs) ||
		numArcs >= FixedArrayMinArcsDeep
}

// encode appends the serialized form of n to dst. n must have arcs, all of
// them pointing at compiled targets.
func (e *nodeEncoder[T]) encode(dst []byte, n *uncompiledNode[T]) []byte {
	numArcs := len(n.arcs)
	if e.useFixedLength(n.depth, numArcs) {
		return e.encodeFixed(dst, n)
	}
	e.listNodes++
	dst = encoding.AppendUvarint(dst, uint64(numArcs)<<2|layoutList)
	for i := range n.arcs {
		dst = e.appendArc(dst, &n.arcs[i], i == numArcs-1, true)
	}
	return dst
}

func (e *nodeEncoder[T]) encodeFixed(dst []byte, n *uncompiledNode[T]) []byte {
	arcs := n.arcs
	numArcs := len(arcs)
	firstLabel := arcs[0].label
	labelRange := arcs[numArcs-1].label - firstLabel + 1
	direct := e.direct && float64(labelRange-numArcs) <= e.maxOversizing*float64(numArcs)

	for len(e.slots) < numArcs {
		e.slots = append(e.slots, nil)
	}
	bytesPerArc := 0
	for i := range arcs {
		e.slots[i] = e.appendArc(e.slots[i][:0], &arcs[i], i == numArcs-1, !direct)
		bytesPerArc = max(bytesPerArc, len(e.slots[i]))
	}

	if !direct {
		e.binarySearchNodes++
		dst = encoding.AppendUvarint(dst, uint64(numArcs)<<2|layoutBinarySearch)
		dst = encoding.AppendUvarint(dst, uint64(bytesPerArc))
		for i := 0; i < numArcs; i++ {
			dst = append(dst, e.slots[i]...)
			dst = appendZeros(dst, bytesPerArc-len(e.slots[i]))
		}
		return dst
	}

	e.directNodes++
	dst = encoding.AppendUvarint(dst, uint64(numArcs)<<2|layoutDirect)
	dst = encoding.AppendUvarint(dst, uint64(bytesPerArc))
	dst = encoding.AppendUvarint(dst, uint64(firstLabel))
	dst = encoding.AppendUvarint(dst, uint64(labelRange))
	presence := len(dst)
	dst = appendZeros(dst, (labelRange+7)/8)
	for i := range arcs {
		bit := arcs[i].label - firstLabel
		dst[presence+bit/8] |= 1 << (bit % 8)
	}
	next := 0
	for slot := 0; slot < labelRange; slot++ {
		if arcs[next].label-firstLabel != slot {
			dst = appendZeros(dst, bytesPerArc)
			continue
		}
		dst = append(dst, e.slots[next]...)
		dst = appendZeros(dst, bytesPerArc-len(e.slots[next]))
		next++
	}
	return dst
}

func (e *nodeEncoder[T]) appendArc(dst []byte, a *builderArc[T], last, withLabel bool) []byte {
	var flags byte
	if last {
		flags |= flagLastArc
	}
	if a.isFinal {
		flags |= flagFinalArc
	}
	if a.target == endNode {
		flags |= flagStopNode
	}
	hasOutput := !e.outputs.IsNoOutput(a.output)
	hasFinalOutput := !e.outputs.IsNoOutput(a.nextFinalOutput)
	if hasOutput {
		flags |= flagArcHasOutput
	}
	if hasFinalOutput {
		flags |= flagArcHasFinalOutput
	}

	dst = append(dst, flags)
	if withLabel {
		dst = e.inputType.appendLabel(dst, a.label)
	}
	if hasOutput {
		dst = e.outputs.Append(dst, a.output)
	}
	if hasFinalOutput {
		dst = e.outputs.Append(dst, a.nextFinalOutput)
	}
	if a.target != endNode {
		dst = encoding.AppendUvarint(dst, uint64(a.target))
	}
	return dst
}

func appendZeros(dst []byte, n int) []byte {
	for ; n > 0; n-- {
		dst = append(dst, 0)
	}
	return dst
}
