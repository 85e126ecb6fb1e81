package blocktree

import (
	"io"
	"log/slog"

	"github.com/hupe1980/termdict/fst"
	"github.com/hupe1980/termdict/internal/compress"
)

const (
	// DefaultMinItemsInBlock is the smallest number of entries a prefix
	// needs before it gets a block of its own.
	DefaultMinItemsInBlock = 25
	// DefaultMaxItemsInBlock is the largest number of entries in a block
	// before it is split into floor blocks.
	DefaultMaxItemsInBlock = 48
)

type writerOptions struct {
	minItemsInBlock int
	maxItemsInBlock int
	compression     compress.Type
	indexOptions    []fst.BuilderOption
	logger          *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*writerOptions)

func defaultWriterOptions() writerOptions {
	return writerOptions{
		minItemsInBlock: DefaultMinItemsInBlock,
		maxItemsInBlock: DefaultMaxItemsInBlock,
		compression:     compress.None,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithMinItemsInBlock sets the minimum block size. Must be at least 2.
func WithMinItemsInBlock(n int) WriterOption {
	return func(o *writerOptions) { o.minItemsInBlock = n }
}

// WithMaxItemsInBlock sets the maximum block size. Must be at least
// 2*(min-1).
func WithMaxItemsInBlock(n int) WriterOption {
	return func(o *writerOptions) { o.maxItemsInBlock = n }
}

// WithCompression compresses the suffix section of each block. Blocks that
// do not shrink by at least 10% are stored uncompressed.
func WithCompression(t compress.Type) WriterOption {
	return func(o *writerOptions) { o.compression = t }
}

// WithIndexBuilderOptions passes options to the FST builders of the terms
// index.
func WithIndexBuilderOptions(opts ...fst.BuilderOption) WriterOption {
	return func(o *writerOptions) { o.indexOptions = append(o.indexOptions, opts...) }
}

// WithLogger sets the logger used for build summaries (Debug level).
func WithLogger(l *slog.Logger) WriterOption {
	return func(o *writerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
