package fst

import (
	"io"
	"log/slog"
	"math"
)

type builderOptions struct {
	inputType          InputType
	minSuffixCount1    int64
	minSuffixCount2    int64
	suffixSharing      bool
	shareNonSingleton  bool
	shareMaxTailLength int
	fixedLengthArcs    bool
	directAddressing   bool
	maxOversizing      float64
	bytesPageBits      int
	logger             *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*builderOptions)

func defaultBuilderOptions() builderOptions {
	return builderOptions{
		inputType:          InputByte1,
		suffixSharing:      true,
		shareNonSingleton:  true,
		shareMaxTailLength: math.MaxInt,
		fixedLengthArcs:    true,
		directAddressing:   true,
		maxOversizing:      1.0,
		bytesPageBits:      defaultBytesPageBits,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithInputType sets the label alphabet. Default: InputByte1.
func WithInputType(t InputType) BuilderOption {
	return func(o *builderOptions) { o.inputType = t }
}

// WithMinSuffixCount1 drops a node (and the arc into it) when fewer than n
// keys pass through it. 0 disables pruning.
func WithMinSuffixCount1(n int) BuilderOption {
	return func(o *builderOptions) { o.minSuffixCount1 = int64(n) }
}

// WithMinSuffixCount2 drops a node when fewer than n keys pass through its
// parent. With n == 1 only the part of each key up to the arc that
// distinguishes it from its neighbours is kept.
func WithMinSuffixCount2(n int) BuilderOption {
	return func(o *builderOptions) { o.minSuffixCount2 = int64(n) }
}

// WithSuffixSharing toggles minimization. Without it every node is written
// fresh and the automaton is a trie.
func WithSuffixSharing(enabled bool) BuilderOption {
	return func(o *builderOptions) { o.suffixSharing = enabled }
}

// WithShareNonSingletonNodes restricts sharing to nodes with at most one arc
// when false.
func WithShareNonSingletonNodes(enabled bool) BuilderOption {
	return func(o *builderOptions) { o.shareNonSingleton = enabled }
}

// WithShareMaxTailLength only shares nodes whose distance from the end of the
// key is at most n.
func WithShareMaxTailLength(n int) BuilderOption {
	return func(o *builderOptions) { o.shareMaxTailLength = n }
}

// WithFixedLengthArcs allows fixed-size arc slots for nodes with many arcs.
func WithFixedLengthArcs(enabled bool) BuilderOption {
	return func(o *builderOptions) { o.fixedLengthArcs = enabled }
}

// WithDirectAddressing allows label-indexed slots when the number of unused
// slots is at most maxOversizing times the number of arcs.
func WithDirectAddressing(enabled bool, maxOversizing float64) BuilderOption {
	return func(o *builderOptions) {
		o.directAddressing = enabled
		if maxOversizing >= 0 {
			o.maxOversizing = maxOversizing
		}
	}
}

// WithBytesPageBits sets the page size of the byte store to 1<<bits.
func WithBytesPageBits(bits int) BuilderOption {
	return func(o *builderOptions) { o.bytesPageBits = bits }
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(o *builderOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
