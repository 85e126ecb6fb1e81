package fst

import "fmt"

// Arc is a decoded transition. Arcs are plain values; readers fill them in
// place so a traversal can keep one Arc per depth without allocating.
type Arc[T any] struct {
	label           int
	output          T
	nextFinalOutput T
	target          int64
	flags           byte

	// nextArc is the position of the following arc in a list node, or the
	// node address of the real arcs behind an EndLabel pseudo-arc.
	nextArc int64

	layout        byte
	bytesPerArc   int
	posArcsStart  int64
	arcIdx        int
	numArcs       int
	firstLabel    int
	presenceStart int64
}

// Label returns the arc label, or EndLabel for the final pseudo-arc.
func (a *Arc[T]) Label() int { return a.label }

// Output returns the output carried by the arc.
func (a *Arc[T]) Output() T { return a.output }

// NextFinalOutput returns the output added when a key ends at the target.
func (a *Arc[T]) NextFinalOutput() T { return a.nextFinalOutput }

// Target returns the address of the target node.
func (a *Arc[T]) Target() int64 { return a.target }

// IsFinal reports whether a key ends at the target of this arc.
func (a *Arc[T]) IsFinal() bool { return a.flags&flagFinalArc != 0 }

// IsLast reports whether this is the last arc of its node.
func (a *Arc[T]) IsLast() bool { return a.flags&flagLastArc != 0 }

func (a *Arc[T]) flag(f byte) bool { return a.flags&f != 0 }

func (a *Arc[T]) String() string {
	label := fmt.Sprintf("%d", a.label)
	if a.label == EndLabel {
		label = "END"
	}
	return fmt.Sprintf("arc(label=%s target=%d final=%t last=%t)", label, a.target, a.IsFinal(), a.IsLast())
}
