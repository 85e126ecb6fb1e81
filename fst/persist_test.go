package fst

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersist_RoundTrip(t *testing.T) {
	keys, f := buildRandom(t, 5, 800)

	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	loaded, err := Load[uint64](buf.Bytes(), PositiveIntOutputs{})
	require.NoError(t, err)
	assert.Equal(t, f.Stats(), loaded.Stats())

	for i, k := range keys {
		out, ok, err := Get(loaded, k)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(i), out)
	}
}

func TestPersist_EmptyOutput(t *testing.T) {
	f := build[[]byte](t, ByteSequenceOutputs{}, []string{"", "x"}, [][]byte{[]byte("root"), []byte("leaf")})

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	loaded, err := Load[[]byte](data, ByteSequenceOutputs{})
	require.NoError(t, err)

	out, ok := loaded.EmptyOutput()
	assert.True(t, ok)
	assert.Equal(t, "root", string(out))

	got, ok, err := Get(loaded, []byte("x"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "leaf", string(got))
}

func TestPersist_Corruption(t *testing.T) {
	_, f := buildRandom(t, 6, 200)
	data, err := f.MarshalBinary()
	require.NoError(t, err)

	t.Run("flipped byte", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)/2] ^= 0xff
		_, err := Load[uint64](bad, PositiveIntOutputs{})
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Load[uint64](data[:len(data)-10], PositiveIntOutputs{})
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := Load[uint64]([]byte("TF"), PositiveIntOutputs{})
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestFST_CorruptNodeBytes(t *testing.T) {
	f := buildInts(t, []entry{{"ab", 1}, {"ac", 2}, {"b", 3}})

	// Point the automaton at a node that does not exist.
	broken := *f
	broken.startNode = int64(len(f.bytes)) + 10

	_, _, err := Get(&broken, []byte("ab"))
	assert.ErrorIs(t, err, ErrCorrupt)
}
