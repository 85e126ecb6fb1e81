package termdict

import (
	"io"
	"log/slog"

	"github.com/hupe1980/termdict/blocktree"
	"github.com/hupe1980/termdict/codec"
	"github.com/hupe1980/termdict/fst"
	"github.com/hupe1980/termdict/internal/cache"
	"github.com/hupe1980/termdict/internal/compress"
	"github.com/hupe1980/termdict/internal/resource"
)

// Compression selects the codec used for term-block suffix data.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	return compress.ParseType(s)
}

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger

	blockCacheSize      int64
	diskCache           *DiskCache
	memoryLimit         int64
	maxConcurrentBuilds int
	writeBytesPerSec    int64

	minItemsInBlock int
	maxItemsInBlock int
	compression     Compression
	indexOptions    []fst.BuilderOption
	readAhead       int
}

// Option configures Writer, BuildFields and Open.
type Option func(*options)

// WithCodec configures the codec used for segment metadata.
//
// If nil is passed, codec.Default is used. Readers detect the codec from the
// segment header, so this only affects writers.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &termdict.BasicMetricsCollector{}
//	r, _ := termdict.Open(ctx, store, "seg-1", termdict.WithMetricsCollector(metrics))
//	// ... use r ...
//	stats := metrics.GetStats()
//	fmt.Printf("Seeks: %d, hits: %d\n", stats.SeekCount, stats.SeekHits)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithBlockCacheSize enables an LRU cache of verified term blocks and
// postings for segments read from stores that cannot be memory-mapped.
// Zero disables the cache.
func WithBlockCacheSize(bytes int64) Option {
	return func(o *options) {
		o.blockCacheSize = bytes
	}
}

// WithDiskCache adds a disk tier below the block cache for segments read
// from stores that cannot be memory-mapped. Blocks found on disk are
// promoted to the memory cache when one is configured.
func WithDiskCache(d *DiskCache) Option {
	return func(o *options) {
		o.diskCache = d
	}
}

// WithMemoryLimit caps the memory held by the block cache and by build
// buffers. Builds that would exceed it fail with ErrMemoryLimitExceeded.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithMaxConcurrentBuilds sets how many fields BuildFields builds at once.
func WithMaxConcurrentBuilds(n int) Option {
	return func(o *options) {
		o.maxConcurrentBuilds = n
	}
}

// WithWriteRateLimit throttles segment uploads to bytesPerSec.
func WithWriteRateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.writeBytesPerSec = bytesPerSec
	}
}

// WithBlockSize sets the minimum and maximum number of entries per term
// block.
func WithBlockSize(minItems, maxItems int) Option {
	return func(o *options) {
		o.minItemsInBlock = minItems
		o.maxItemsInBlock = maxItems
	}
}

// WithCompression sets the codec for term-block suffix data.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithIndexOptions passes options to the builder of each field's terms index.
func WithIndexOptions(opts ...fst.BuilderOption) Option {
	return func(o *options) {
		o.indexOptions = append(o.indexOptions, opts...)
	}
}

// WithReadAhead sets how many bytes are fetched per term-block read from a
// non-mapped store.
func WithReadAhead(n int) Option {
	return func(o *options) {
		o.readAhead = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:               codec.Default,
		metricsCollector:    NoopMetricsCollector{},
		logger:              NoopLogger(),
		maxConcurrentBuilds: 1,
		minItemsInBlock:     blocktree.DefaultMinItemsInBlock,
		maxItemsInBlock:     blocktree.DefaultMaxItemsInBlock,
		compression:         CompressionNone,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o *options) validate() error {
	if _, err := blocktree.NewWriter(io.Discard, 0, o.writerOptions()...); err != nil {
		return translateError(err)
	}
	return nil
}

func (o *options) controller() *resource.Controller {
	return resource.NewController(resource.Config{
		MemoryLimitBytes:    o.memoryLimit,
		MaxConcurrentBuilds: int64(o.maxConcurrentBuilds),
		WriteBytesPerSec:    o.writeBytesPerSec,
	})
}

func (o *options) blockCache(rc *resource.Controller) cache.BlockCache {
	if o.blockCacheSize <= 0 {
		return nil
	}
	return cache.NewShardedLRUBlockCache(o.blockCacheSize, rc)
}

// readCache layers the shared disk cache, if any, below mem. mem may be nil.
func (o *options) readCache(mem cache.BlockCache) cache.BlockCache {
	switch {
	case o.diskCache == nil:
		return mem
	case mem == nil:
		return o.diskCache.c
	default:
		return cache.NewTieredBlockCache(mem, o.diskCache.c)
	}
}

func (o *options) writerOptions() []blocktree.WriterOption {
	return []blocktree.WriterOption{
		blocktree.WithMinItemsInBlock(o.minItemsInBlock),
		blocktree.WithMaxItemsInBlock(o.maxItemsInBlock),
		blocktree.WithCompression(o.compression),
		blocktree.WithIndexBuilderOptions(o.indexOptions...),
		blocktree.WithLogger(o.logger.Logger),
	}
}
