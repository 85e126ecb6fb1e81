package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("application/json;apple;apply;"), 64)

	for _, typ := range []Type{None, LZ4, ZSTD} {
		t.Run(typ.String(), func(t *testing.T) {
			prefix := []byte("hdr")
			out, used, err := Compress(prefix, data, typ)
			require.NoError(t, err)
			assert.Equal(t, "hdr", string(out[:3]))
			assert.Equal(t, typ, used)
			if typ != None {
				assert.Less(t, len(out)-3, len(data))
			}

			raw, err := Decompress(out[3:], used, len(data))
			require.NoError(t, err)
			assert.Equal(t, data, raw)
		})
	}
}

func TestCompress_IncompressibleFallsBack(t *testing.T) {
	data := []byte{0x8f, 0x13, 0x77, 0x02, 0xaa, 0x5c}

	out, used, err := Compress(nil, data, ZSTD)
	require.NoError(t, err)
	assert.Equal(t, None, used)
	assert.Equal(t, data, out)
}

func TestDecompress_SizeMismatch(t *testing.T) {
	data := bytes.Repeat([]byte("abc"), 100)
	out, used, err := Compress(nil, data, LZ4)
	require.NoError(t, err)
	require.Equal(t, LZ4, used)

	_, err = Decompress(out, used, len(data)+1)
	assert.Error(t, err)

	_, err = Decompress([]byte("abc"), None, 4)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestParseType(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Type
	}{{"", None}, {"none", None}, {"lz4", LZ4}, {"zstd", ZSTD}} {
		got, err := ParseType(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseType("snappy")
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.False(t, Type(7).Valid())
}
