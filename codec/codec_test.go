package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// segmentMeta mirrors the shape of the metadata section.
type segmentMeta struct {
	SegmentID string       `json:"segment_id"`
	CreatedAt time.Time    `json:"created_at"`
	Fields    []fieldEntry `json:"fields"`
}

type fieldEntry struct {
	Name     string `json:"name"`
	NumTerms int64  `json:"num_terms"`
	MinTerm  []byte `json:"min_term"`
	MaxTerm  []byte `json:"max_term"`
	RootCode []byte `json:"root_code"`
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		c, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}

	_, err := Lookup("msgpack")
	require.ErrorIs(t, err, ErrUnknown)
	assert.ErrorContains(t, err, "go-json, json")
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"go-json", "json"}, Names())
	assert.Contains(t, Names(), Default.Name())
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("json"))
	assert.True(t, ValidName(strings.Repeat("x", MaxNameLen)))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName(strings.Repeat("x", MaxNameLen+1)))
	for _, name := range Names() {
		assert.True(t, ValidName(name))
	}
}

func TestCodecsAreInterchangeable(t *testing.T) {
	in := segmentMeta{
		SegmentID: "0192b1c4-7d4e-7a51-9d2e-3f1a2b3c4d5e",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Fields: []fieldEntry{
			{Name: "title", NumTerms: 42, MinTerm: []byte{0x00}, MaxTerm: []byte{0xff, 0xfe}, RootCode: []byte{0x81, 0x02}},
			{Name: "body", NumTerms: 1},
		},
	}

	for _, enc := range []Codec{JSON{}, GoJSON{}} {
		for _, dec := range []Codec{JSON{}, GoJSON{}} {
			t.Run(enc.Name()+"->"+dec.Name(), func(t *testing.T) {
				b, err := enc.Marshal(in)
				require.NoError(t, err)
				var out segmentMeta
				require.NoError(t, dec.Unmarshal(b, &out))
				assert.Equal(t, in, out)
			})
		}
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		var out segmentMeta
		assert.Error(t, c.Unmarshal([]byte(`{"segment_id":`), &out), c.Name())
	}
}
