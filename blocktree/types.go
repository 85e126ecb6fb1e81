package blocktree

import "fmt"

// TermStats is what the caller records for a term when writing.
type TermStats struct {
	// DocFreq is the number of documents containing the term.
	DocFreq int
	// PostingsFP is the offset of the term's postings in the caller's file.
	PostingsFP int64
	// PostingsLen is the encoded length of the postings.
	PostingsLen int64
}

// TermState is the decoded metadata of a term. It can be handed back to
// Seeker.SeekExactState to reposition without touching the index.
type TermState struct {
	TermStats

	// termBlockOrd is the 1-based ordinal of the term among the terms of its
	// block.
	termBlockOrd int
}

func (s TermState) String() string {
	return fmt.Sprintf("TermState{docFreq=%d postingsFP=%d postingsLen=%d ord=%d}",
		s.DocFreq, s.PostingsFP, s.PostingsLen, s.termBlockOrd)
}

// SeekStatus is the result of Seeker.SeekCeil.
type SeekStatus int

const (
	// SeekFound means the target term exists and the seeker is on it.
	SeekFound SeekStatus = iota
	// SeekNotFound means the seeker is on the smallest term after the target.
	SeekNotFound
	// SeekEnd means no term is greater than or equal to the target.
	SeekEnd
)

func (s SeekStatus) String() string {
	switch s {
	case SeekFound:
		return "found"
	case SeekNotFound:
		return "not_found"
	case SeekEnd:
		return "end"
	default:
		return fmt.Sprintf("SeekStatus(%d)", int(s))
	}
}

// FieldMeta describes one written field. It is returned by Writer.Finish and
// persisted by the caller.
type FieldMeta struct {
	NumTerms   int64  `json:"num_terms"`
	SumDocFreq int64  `json:"sum_doc_freq"`
	MinTerm    []byte `json:"min_term,omitempty"`
	MaxTerm    []byte `json:"max_term,omitempty"`
	// RootCode is the index output of the root block.
	RootCode []byte `json:"root_code,omitempty"`
	// BlocksFP and BlocksLen delimit the term blocks.
	BlocksFP  int64 `json:"blocks_fp"`
	BlocksLen int64 `json:"blocks_len"`
	// IndexFP and IndexLen delimit the serialized index FST.
	IndexFP  int64 `json:"index_fp"`
	IndexLen int64 `json:"index_len"`
}

// HasIndex reports whether the field has a terms index.
func (m *FieldMeta) HasIndex() bool { return m.NumTerms > 0 && m.IndexLen > 0 }
