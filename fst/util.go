package fst

// Get returns the output of key.
func Get[T any](f *FST[T], key []byte) (T, bool, error) {
	labels := make([]int, len(key))
	for i, c := range key {
		labels[i] = int(c)
	}
	return GetLabels(f, labels)
}

// GetLabels returns the output of a key given as labels.
func GetLabels[T any](f *FST[T], labels []int) (T, bool, error) {
	var zero T
	if f == nil {
		return zero, false, nil
	}
	r := f.BytesReader()
	var arcs [2]Arc[T]
	follow, arc := &arcs[0], &arcs[1]
	f.FirstArc(follow)
	output := f.outputs.NoOutput()
	for _, label := range labels {
		next, err := f.FindTargetArc(label, follow, arc, r)
		if err != nil {
			return zero, false, err
		}
		if next == nil {
			return zero, false, nil
		}
		output = f.outputs.Add(output, arc.output)
		follow, arc = arc, follow
	}
	if !follow.IsFinal() {
		return zero, false, nil
	}
	return f.outputs.Add(output, follow.nextFinalOutput), true, nil
}
