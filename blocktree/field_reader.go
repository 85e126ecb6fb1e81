package blocktree

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/termdict/fst"
)

// FieldReader gives access to the terms of one field. It is safe for
// concurrent use; each goroutine needs its own Seeker.
type FieldReader struct {
	name   string
	meta   FieldMeta
	index  *fst.FST[[]byte]
	blocks BlockSource
}

// NewFieldReader opens a field from its metadata, the serialized terms index
// and a source for its blocks. indexData is retained and must not be
// modified.
func NewFieldReader(name string, meta FieldMeta, indexData []byte, blocks BlockSource) (*FieldReader, error) {
	fr := &FieldReader{name: name, meta: meta, blocks: blocks}
	if !meta.HasIndex() {
		return fr, nil
	}
	if int64(len(indexData)) != meta.IndexLen {
		return nil, corruptf("field %q: index is %d bytes, metadata says %d", name, len(indexData), meta.IndexLen)
	}
	index, err := fst.Load[[]byte](indexData, fst.ByteSequenceOutputs{})
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %w", ErrCorrupt, name, err)
	}
	root, ok := index.EmptyOutput()
	if !ok || !bytes.Equal(root, meta.RootCode) {
		return nil, corruptf("field %q: root block code does not match index", name)
	}
	fr.index = index
	return fr, nil
}

// Name returns the field name.
func (fr *FieldReader) Name() string { return fr.name }

// Meta returns the field metadata.
func (fr *FieldReader) Meta() FieldMeta { return fr.meta }

// NumTerms returns the number of terms.
func (fr *FieldReader) NumTerms() int64 { return fr.meta.NumTerms }

// SumDocFreq returns the sum of the document frequencies of all terms.
func (fr *FieldReader) SumDocFreq() int64 { return fr.meta.SumDocFreq }

// Min returns the smallest term, or nil for an empty field.
func (fr *FieldReader) Min() []byte { return fr.meta.MinTerm }

// Max returns the largest term, or nil for an empty field.
func (fr *FieldReader) Max() []byte { return fr.meta.MaxTerm }

// Index returns the terms index, or nil for an empty field.
func (fr *FieldReader) Index() *fst.FST[[]byte] { return fr.index }

// Seeker returns a new Seeker over the field.
func (fr *FieldReader) Seeker() (*Seeker, error) {
	if fr.index == nil {
		return nil, fmt.Errorf("%w: field %q", ErrIndexNotLoaded, fr.name)
	}
	return newSeeker(fr), nil
}
