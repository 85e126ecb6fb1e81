package fst

// builderArc is an outgoing transition of an uncompiled node. It points
// either at a compiled address (node == nil) or at a node that has not been
// compiled yet.
type builderArc[T any] struct {
	label           int
	target          int64
	node            *uncompiledNode[T]
	output          T
	nextFinalOutput T
	isFinal         bool
}

// uncompiledNode is a frontier node, mutable until it is frozen.
type uncompiledNode[T any] struct {
	arcs       []builderArc[T]
	output     T
	isFinal    bool
	inputCount int64
	depth      int
}

func newUncompiledNode[T any](outputs Outputs[T], depth int) *uncompiledNode[T] {
	return &uncompiledNode[T]{
		output: outputs.NoOutput(),
		depth:  depth,
	}
}

func (n *uncompiledNode[T]) clear(outputs Outputs[T]) {
	clear(n.arcs)
	n.arcs = n.arcs[:0]
	n.isFinal = false
	n.output = outputs.NoOutput()
	n.inputCount = 0
}

func (n *uncompiledNode[T]) last() *builderArc[T] {
	return &n.arcs[len(n.arcs)-1]
}

func (n *uncompiledNode[T]) addArc(outputs Outputs[T], label int, target *uncompiledNode[T]) {
	n.arcs = append(n.arcs, builderArc[T]{
		label:           label,
		node:            target,
		output:          outputs.NoOutput(),
		nextFinalOutput: outputs.NoOutput(),
	})
}

func (n *uncompiledNode[T]) replaceLast(label int, target int64, nextFinalOutput T, isFinal bool) {
	a := n.last()
	if a.label != label {
		panic("fst: replaceLast label mismatch")
	}
	a.node = nil
	a.target = target
	a.nextFinalOutput = nextFinalOutput
	a.isFinal = isFinal
}

// keepUndecided installs the final state on the last arc while its target
// stays uncompiled.
func (n *uncompiledNode[T]) keepUndecided(label int, target *uncompiledNode[T], nextFinalOutput T, isFinal bool) {
	a := n.last()
	if a.label != label {
		panic("fst: replaceLast label mismatch")
	}
	a.node = target
	a.nextFinalOutput = nextFinalOutput
	a.isFinal = isFinal
}

func (n *uncompiledNode[T]) deleteLast(label int) {
	if n.last().label != label {
		panic("fst: deleteLast label mismatch")
	}
	n.arcs[len(n.arcs)-1] = builderArc[T]{}
	n.arcs = n.arcs[:len(n.arcs)-1]
}

// prependOutput pushes prefix in front of every arc output and, if the node
// is final, in front of its own output.
func (n *uncompiledNode[T]) prependOutput(outputs Outputs[T], prefix T) {
	for i := range n.arcs {
		n.arcs[i].output = outputs.Add(prefix, n.arcs[i].output)
	}
	if n.isFinal {
		n.output = outputs.Add(prefix, n.output)
	}
}
