package fst

import "github.com/hupe1980/termdict/internal/encoding"

// Enum iterates the keys of an FST in order and seeks within them.
//
// An Enum is not safe for concurrent use. A nil FST yields an empty Enum.
type Enum[T any] struct {
	fst    *FST[T]
	r      *encoding.Reader
	arcs   []Arc[T]
	outs   []T
	labels []int
	key    []byte
	// upto is the index of the EndLabel arc of the current key; 0 means
	// unpositioned.
	upto int
	eof  bool
}

// NewEnum creates an enumerator positioned before the first key.
func NewEnum[T any](f *FST[T]) *Enum[T] {
	e := &Enum[T]{fst: f}
	if f != nil {
		e.r = f.BytesReader()
		e.arcs = make([]Arc[T], 1, 16)
		e.outs = make([]T, 1, 16)
		f.FirstArc(&e.arcs[0])
		e.outs[0] = f.outputs.NoOutput()
	}
	return e
}

// Key returns the current key. Valid until the next call that moves the
// enumerator.
func (e *Enum[T]) Key() []byte {
	e.key = e.key[:0]
	for _, l := range e.Labels() {
		e.key = append(e.key, byte(l))
	}
	return e.key
}

// Labels returns the current key as labels.
func (e *Enum[T]) Labels() []int {
	if e.upto == 0 {
		return nil
	}
	return e.labels[:e.upto-1]
}

// Output returns the output of the current key.
func (e *Enum[T]) Output() T {
	if e.upto == 0 {
		var zero T
		return zero
	}
	return e.outs[e.upto]
}

// Next advances to the next key. It returns false once all keys have been
// visited.
func (e *Enum[T]) Next() (bool, error) {
	if e.fst == nil || e.eof {
		return false, nil
	}
	if e.upto == 0 {
		e.upto = 1
		e.grow(1)
		if _, err := e.fst.ReadFirstTargetArc(&e.arcs[0], &e.arcs[1], e.r); err != nil {
			return false, err
		}
	} else {
		for e.arcs[e.upto].IsLast() {
			e.upto--
			if e.upto == 0 {
				e.eof = true
				return false, nil
			}
		}
		if _, err := e.fst.ReadNextArc(&e.arcs[e.upto], e.r); err != nil {
			return false, err
		}
	}
	return true, e.pushFirst()
}

// SeekCeil positions the enumerator at the smallest key >= target. It
// returns false when no such key exists.
func (e *Enum[T]) SeekCeil(target []byte) (bool, error) {
	return e.SeekCeilLabels(bytesToLabels(target))
}

// SeekCeilLabels is SeekCeil for a key given as labels.
func (e *Enum[T]) SeekCeilLabels(target []int) (bool, error) {
	if e.fst == nil {
		return false, nil
	}
	e.rewind()
	f := e.fst
	for i := 0; ; i++ {
		e.grow(i + 1)
		if i == len(target) {
			e.upto = i + 1
			if _, err := f.ReadFirstTargetArc(&e.arcs[i], &e.arcs[i+1], e.r); err != nil {
				return false, err
			}
			return true, e.pushFirst()
		}
		if !f.TargetHasArcs(&e.arcs[i]) {
			return e.nextAfter(i)
		}
		arc := &e.arcs[i+1]
		if _, err := f.ReadFirstRealTargetArc(e.arcs[i].target, arc, e.r); err != nil {
			return false, err
		}
		for arc.label < target[i] && !arc.IsLast() {
			if _, err := f.ReadNextRealArc(arc, e.r); err != nil {
				return false, err
			}
		}
		switch {
		case arc.label == target[i]:
			e.outs[i+1] = f.outputs.Add(e.outs[i], arc.output)
			e.setLabel(i, arc.label)
		case arc.label > target[i]:
			e.upto = i + 1
			return true, e.pushFirst()
		default:
			return e.nextAfter(i)
		}
	}
}

// SeekExact positions the enumerator at target. When it returns false the
// enumerator is unpositioned and Next starts over from the first key.
func (e *Enum[T]) SeekExact(target []byte) (bool, error) {
	return e.SeekExactLabels(bytesToLabels(target))
}

// SeekExactLabels is SeekExact for a key given as labels.
func (e *Enum[T]) SeekExactLabels(target []int) (bool, error) {
	if e.fst == nil {
		return false, nil
	}
	e.rewind()
	f := e.fst
	for i, l := range target {
		e.grow(i + 1)
		next, err := f.FindTargetArc(l, &e.arcs[i], &e.arcs[i+1], e.r)
		if err != nil || next == nil {
			e.rewind()
			return false, err
		}
		e.outs[i+1] = f.outputs.Add(e.outs[i], next.output)
		e.setLabel(i, l)
	}
	n := len(target)
	if !e.arcs[n].IsFinal() {
		e.rewind()
		return false, nil
	}
	e.grow(n + 1)
	f.endArc(&e.arcs[n], &e.arcs[n+1])
	e.outs[n+1] = f.outputs.Add(e.outs[n], e.arcs[n+1].output)
	e.upto = n + 1
	return true, nil
}

// nextAfter moves to the first key after every key below the arc at depth.
func (e *Enum[T]) nextAfter(depth int) (bool, error) {
	e.upto = depth
	for e.upto > 0 && e.arcs[e.upto].IsLast() {
		e.upto--
	}
	if e.upto == 0 {
		e.eof = true
		return false, nil
	}
	if _, err := e.fst.ReadNextArc(&e.arcs[e.upto], e.r); err != nil {
		return false, err
	}
	return true, e.pushFirst()
}

// pushFirst descends along first arcs from arcs[upto] to the next final
// state.
func (e *Enum[T]) pushFirst() error {
	f := e.fst
	for {
		arc := &e.arcs[e.upto]
		e.outs[e.upto] = f.outputs.Add(e.outs[e.upto-1], arc.output)
		if arc.label == EndLabel {
			return nil
		}
		e.setLabel(e.upto-1, arc.label)
		e.upto++
		e.grow(e.upto)
		if _, err := f.ReadFirstTargetArc(&e.arcs[e.upto-1], &e.arcs[e.upto], e.r); err != nil {
			return err
		}
	}
}

func (e *Enum[T]) rewind() {
	e.upto = 0
	e.eof = false
	e.labels = e.labels[:0]
}

func (e *Enum[T]) grow(n int) {
	for len(e.arcs) <= n {
		e.arcs = append(e.arcs, Arc[T]{})
		e.outs = append(e.outs, e.fst.outputs.NoOutput())
	}
}

func (e *Enum[T]) setLabel(i, label int) {
	e.labels = append(e.labels[:i], label)
}

func bytesToLabels(b []byte) []int {
	labels := make([]int, len(b))
	for i, c := range b {
		labels[i] = int(c)
	}
	return labels
}
