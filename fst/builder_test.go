package fst

import (
	"errors"
	"testing"

	"github.com/hupe1980/termdict/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// equalOrNoOutputs shares an output only when both sides agree.
type equalOrNoOutputs struct{ PositiveIntOutputs }

func (equalOrNoOutputs) Common(a, b uint64) uint64 {
	if a == b {
		return a
	}
	return 0
}

type entry struct {
	key string
	out uint64
}

func build[T any](t *testing.T, outputs Outputs[T], keys []string, outs []T, opts ...BuilderOption) *FST[T] {
	t.Helper()
	b, err := NewBuilder(outputs, opts...)
	require.NoError(t, err)
	for i, k := range keys {
		require.NoError(t, b.Add([]byte(k), outs[i]))
	}
	f, err := b.Compile()
	require.NoError(t, err)
	return f
}

func buildInts(t *testing.T, entries []entry, opts ...BuilderOption) *FST[uint64] {
	t.Helper()
	keys := make([]string, len(entries))
	outs := make([]uint64, len(entries))
	for i, e := range entries {
		keys[i], outs[i] = e.key, e.out
	}
	return build[uint64](t, PositiveIntOutputs{}, keys, outs, opts...)
}

func TestBuilder_WorkedExample(t *testing.T) {
	f := build[uint64](t, equalOrNoOutputs{}, []string{"ab", "abc", "b"}, []uint64{1, 2, 3})
	require.NotNil(t, f)

	out, ok, err := Get(f, []byte("abc"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), out)

	out, ok, err = Get(f, []byte("ab"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), out)

	e := NewEnum(f)
	found, err := e.SeekCeil([]byte("ac"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b", string(e.Key()))
	assert.Equal(t, uint64(3), e.Output())

	e = NewEnum(f)
	var got []string
	for {
		ok, err := e.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, string(e.Key()))
	}
	assert.Equal(t, []string{"ab", "abc", "b"}, got)
}

func TestBuilder_RoundTrip(t *testing.T) {
	rng := testutil.NewRNG(42)
	keys := rng.SortedKeys(2000, 1, 10, testutil.Lowercase)

	b, err := NewBuilder[uint64](PositiveIntOutputs{})
	require.NoError(t, err)
	want := make(map[string]uint64, len(keys))
	for _, k := range keys {
		out := uint64(rng.Intn(1000))
		want[string(k)] = out
		require.NoError(t, b.Add(k, out))
	}
	f, err := b.Compile()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, int64(len(keys)), b.TermCount())

	for k, out := range want {
		got, ok, err := Get(f, []byte(k))
		require.NoError(t, err)
		require.True(t, ok, "key %q", k)
		assert.Equal(t, out, got, "key %q", k)
	}

	for range 500 {
		k := rng.Key(1, 10, testutil.Lowercase)
		_, ok, err := Get(f, k)
		require.NoError(t, err)
		_, exists := want[string(k)]
		assert.Equal(t, exists, ok, "key %q", k)
	}
}

func TestBuilder_ByteSequenceRoundTrip(t *testing.T) {
	keys := []string{"apple", "applet", "apply", "banana", "band", "bandana"}
	outs := [][]byte{[]byte("fruit"), []byte("frugal"), []byte("f"), []byte("yellow"), []byte("yell"), nil}

	f := build[[]byte](t, ByteSequenceOutputs{}, keys, outs)

	for i, k := range keys {
		got, ok, err := Get(f, []byte(k))
		require.NoError(t, err)
		require.True(t, ok, k)
		assert.Equal(t, string(outs[i]), string(got), k)
	}
}

func TestBuilder_Minimality(t *testing.T) {
	keys := []string{"astation", "bstation", "cstation", "dstation", "estation"}
	outs := make([]struct{}, len(keys))

	newBuilder := func(opts ...BuilderOption) *Builder[struct{}] {
		b, err := NewBuilder[struct{}](NoOutputs{}, opts...)
		require.NoError(t, err)
		for i, k := range keys {
			require.NoError(t, b.Add([]byte(k), outs[i]))
		}
		f, err := b.Compile()
		require.NoError(t, err)
		require.NotNil(t, f)
		return b
	}

	shared := newBuilder()
	trie := newBuilder(WithSuffixSharing(false))

	assert.Positive(t, shared.MappedStateCount())
	assert.Zero(t, trie.MappedStateCount())
	assert.Less(t, shared.NodeCount(), trie.NodeCount())
	assert.Less(t, shared.ArcCount(), trie.ArcCount())
}

func TestBuilder_ShareSingletonOnly(t *testing.T) {
	keys := []string{"axy", "axz", "bxy", "bxz"}
	outs := make([]struct{}, len(keys))

	b, err := NewBuilder[struct{}](NoOutputs{}, WithShareNonSingletonNodes(false))
	require.NoError(t, err)
	for i, k := range keys {
		require.NoError(t, b.Add([]byte(k), outs[i]))
	}
	f, err := b.Compile()
	require.NoError(t, err)

	for _, k := range keys {
		_, ok, err := Get(f, []byte(k))
		require.NoError(t, err)
		assert.True(t, ok, k)
	}
	// The two-arc "x" nodes are written twice, so neither singleton parent
	// can be shared either.
	assert.Equal(t, int64(5), b.NodeCount())
	assert.Zero(t, b.MappedStateCount())
}

func TestBuilder_OutOfOrder(t *testing.T) {
	b, err := NewBuilder[uint64](PositiveIntOutputs{})
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("b"), 1))

	err = b.Add([]byte("a"), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstructionContract)
	var ooo *OutOfOrderError
	require.True(t, errors.As(err, &ooo))
	assert.Equal(t, []int{'b'}, ooo.Previous)
	assert.Equal(t, []int{'a'}, ooo.Current)

	// Poisoned.
	assert.Equal(t, err, b.Add([]byte("c"), 3))
	_, cerr := b.Compile()
	assert.Equal(t, err, cerr)
}

func TestBuilder_EmptyKeyAfterOthers(t *testing.T) {
	b, err := NewBuilder[uint64](PositiveIntOutputs{})
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("a"), 1))

	assert.ErrorIs(t, b.Add(nil, 2), ErrConstructionContract)
}

func TestBuilder_DuplicateKeyWithoutMerge(t *testing.T) {
	b, err := NewBuilder[uint64](PositiveIntOutputs{})
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("a"), 1))

	err = b.Add([]byte("a"), 2)
	assert.ErrorIs(t, err, ErrMergeNotSupported)
	assert.ErrorIs(t, err, ErrConstructionContract)
}

func TestBuilder_DuplicateKeyMerged(t *testing.T) {
	o := NewListOutputs[uint64](PositiveIntOutputs{})
	f := build[[]uint64](t, o,
		[]string{"a", "a", "ab", "b"},
		[][]uint64{{1}, {2}, {7}, {3}},
	)

	got, ok, err := Get(f, []byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint64{1, 2}, got)

	got, ok, err = Get(f, []byte("ab"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint64{7}, got)

	got, ok, err = Get(f, []byte("b"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint64{3}, got)
}

func TestBuilder_EmptyKey(t *testing.T) {
	f := buildInts(t, []entry{{"", 5}, {"a", 3}})
	require.NotNil(t, f)

	out, ok, err := Get(f, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), out)

	out, ok, err = Get(f, []byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), out)

	e := NewEnum(f)
	ok, err = e.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, e.Key())
	assert.Equal(t, uint64(5), e.Output())
}

func TestBuilder_OnlyEmptyKey(t *testing.T) {
	f := buildInts(t, []entry{{"", 9}})
	require.NotNil(t, f)

	out, ok, err := Get(f, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(9), out)

	_, ok, err = Get(f, []byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuilder_NoKeys(t *testing.T) {
	b, err := NewBuilder[uint64](PositiveIntOutputs{})
	require.NoError(t, err)

	f, err := b.Compile()
	require.NoError(t, err)
	assert.Nil(t, f)

	_, ok, err := Get(f, []byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = b.Compile()
	assert.ErrorIs(t, err, ErrBuilderClosed)
	assert.ErrorIs(t, b.Add([]byte("a"), 1), ErrBuilderClosed)
}

func TestBuilder_PruneMinSuffixCount1(t *testing.T) {
	keys := []string{"aa", "ab", "b"}
	f := build[struct{}](t, NoOutputs{}, keys, make([]struct{}, len(keys)), WithMinSuffixCount1(2))
	require.NotNil(t, f)

	for _, k := range keys {
		_, ok, err := Get(f, []byte(k))
		require.NoError(t, err)
		assert.False(t, ok, "key %q should be pruned", k)
	}

	// The shared prefix survives and becomes a final dead end.
	_, ok, err := Get(f, []byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuilder_PruneEverything(t *testing.T) {
	keys := []string{"abc"}
	f := build[struct{}](t, NoOutputs{}, keys, make([]struct{}, len(keys)), WithMinSuffixCount1(2))
	assert.Nil(t, f)
}

func TestBuilder_PruneEmptyKey(t *testing.T) {
	keys := []string{""}
	f := build[struct{}](t, NoOutputs{}, keys, make([]struct{}, len(keys)), WithMinSuffixCount2(1))
	assert.Nil(t, f)
}

func TestBuilder_PruneMinSuffixCount2Distinguishing(t *testing.T) {
	keys := []string{"abcd", "abxy"}
	f := build[struct{}](t, NoOutputs{}, keys, make([]struct{}, len(keys)), WithMinSuffixCount2(1))
	require.NotNil(t, f)

	tests := []struct {
		key  string
		want bool
	}{
		{"abc", true},
		{"abx", true},
		{"abcd", false},
		{"abxy", false},
	}
	for _, tt := range tests {
		_, ok, err := Get(f, []byte(tt.key))
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, tt.key)
	}
}

func TestBuilder_InvalidLabel(t *testing.T) {
	b, err := NewBuilder[uint64](PositiveIntOutputs{})
	require.NoError(t, err)

	assert.ErrorIs(t, b.AddLabels([]int{300}, 1), ErrInvalidLabel)
}

func TestBuilder_SmallPages(t *testing.T) {
	rng := testutil.NewRNG(7)
	keys := rng.SortedKeys(300, 2, 8, testutil.Alphanumeric)

	b, err := NewBuilder[uint64](PositiveIntOutputs{}, WithBytesPageBits(4))
	require.NoError(t, err)
	for i, k := range keys {
		require.NoError(t, b.Add(k, uint64(i)))
	}
	f, err := b.Compile()
	require.NoError(t, err)

	for i, k := range keys {
		out, ok, err := Get(f, k)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(i), out)
	}
}
