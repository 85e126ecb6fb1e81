package termdict

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prom package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordBuild is called after a segment's fields have been built.
	// fields and terms count what was written, err is nil if successful.
	RecordBuild(fields int, terms int64, duration time.Duration, err error)

	// RecordFlush is called after a segment has been uploaded to its store.
	RecordFlush(bytes int64, duration time.Duration, err error)

	// RecordSeek is called after each Lookup.
	RecordSeek(found bool, duration time.Duration, err error)

	// RecordBlockLoad is called whenever a term block is read from a
	// non-mapped store.
	RecordBlockLoad(bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordFlush(int64, time.Duration, error)      {}
func (NoopMetricsCollector) RecordSeek(bool, time.Duration, error)        {}
func (NoopMetricsCollector) RecordBlockLoad(int, time.Duration, error)    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildFields     atomic.Int64
	BuildTerms      atomic.Int64
	FlushCount      atomic.Int64
	FlushErrors     atomic.Int64
	FlushBytes      atomic.Int64
	SeekCount       atomic.Int64
	SeekHits        atomic.Int64
	SeekErrors      atomic.Int64
	SeekTotalNanos  atomic.Int64
	BlockLoads      atomic.Int64
	BlockLoadErrors atomic.Int64
	BlockLoadBytes  atomic.Int64
	BlockLoadNanos  atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(fields int, terms int64, _ time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildFields.Add(int64(fields))
	b.BuildTerms.Add(terms)
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(bytes int64, _ time.Duration, err error) {
	b.FlushCount.Add(1)
	if err != nil {
		b.FlushErrors.Add(1)
		return
	}
	b.FlushBytes.Add(bytes)
}

// RecordSeek implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSeek(found bool, duration time.Duration, err error) {
	b.SeekCount.Add(1)
	b.SeekTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SeekErrors.Add(1)
	} else if found {
		b.SeekHits.Add(1)
	}
}

// RecordBlockLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBlockLoad(bytes int, duration time.Duration, err error) {
	b.BlockLoads.Add(1)
	b.BlockLoadNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BlockLoadErrors.Add(1)
		return
	}
	b.BlockLoadBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:        b.BuildCount.Load(),
		BuildErrors:       b.BuildErrors.Load(),
		BuildFields:       b.BuildFields.Load(),
		BuildTerms:        b.BuildTerms.Load(),
		FlushCount:        b.FlushCount.Load(),
		FlushErrors:       b.FlushErrors.Load(),
		FlushBytes:        b.FlushBytes.Load(),
		SeekCount:         b.SeekCount.Load(),
		SeekHits:          b.SeekHits.Load(),
		SeekErrors:        b.SeekErrors.Load(),
		SeekAvgNanos:      avg(b.SeekTotalNanos.Load(), b.SeekCount.Load()),
		BlockLoads:        b.BlockLoads.Load(),
		BlockLoadErrors:   b.BlockLoadErrors.Load(),
		BlockLoadBytes:    b.BlockLoadBytes.Load(),
		BlockLoadAvgNanos: avg(b.BlockLoadNanos.Load(), b.BlockLoads.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount        int64
	BuildErrors       int64
	BuildFields       int64
	BuildTerms        int64
	FlushCount        int64
	FlushErrors       int64
	FlushBytes        int64
	SeekCount         int64
	SeekHits          int64
	SeekErrors        int64
	SeekAvgNanos      int64
	BlockLoads        int64
	BlockLoadErrors   int64
	BlockLoadBytes    int64
	BlockLoadAvgNanos int64
}
