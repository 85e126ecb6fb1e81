// Package prom exports termdict metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	c, _ := prom.NewCollector(reg, "myapp")
//	r, _ := termdict.Open(ctx, store, name, termdict.WithMetricsCollector(c))
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/termdict"
)

// Collector implements termdict.MetricsCollector with Prometheus counters
// and histograms.
type Collector struct {
	opLatency  *prometheus.HistogramVec
	ops        *prometheus.CounterVec
	terms      prometheus.Counter
	fields     prometheus.Counter
	flushBytes prometheus.Counter
	seeks      *prometheus.CounterVec
	blockBytes prometheus.Counter
}

var _ termdict.MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
// namespace prefixes every metric name; it defaults to "termdict".
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = "termdict"
	}
	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of term dictionary operations",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total term dictionary operations",
		}, []string{"op", "status"}),
		terms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "built_terms_total",
			Help:      "Total terms written to segments",
		}),
		fields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "built_fields_total",
			Help:      "Total fields written to segments",
		}),
		flushBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_bytes_total",
			Help:      "Total segment bytes uploaded",
		}),
		seeks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Total term lookups by result",
		}, []string{"result"}),
		blockBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_read_bytes_total",
			Help:      "Total verified term block bytes read",
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.ops, c.terms, c.fields, c.flushBytes, c.seeks, c.blockBytes} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordBuild implements termdict.MetricsCollector.
func (c *Collector) RecordBuild(fields int, terms int64, d time.Duration, err error) {
	c.observe("build", d, err)
	if err == nil {
		c.fields.Add(float64(fields))
		c.terms.Add(float64(terms))
	}
}

// RecordFlush implements termdict.MetricsCollector.
func (c *Collector) RecordFlush(bytes int64, d time.Duration, err error) {
	c.observe("flush", d, err)
	if err == nil {
		c.flushBytes.Add(float64(bytes))
	}
}

// RecordSeek implements termdict.MetricsCollector.
func (c *Collector) RecordSeek(found bool, d time.Duration, err error) {
	c.observe("seek", d, err)
	switch {
	case err != nil:
		c.seeks.WithLabelValues("error").Inc()
	case found:
		c.seeks.WithLabelValues("hit").Inc()
	default:
		c.seeks.WithLabelValues("miss").Inc()
	}
}

// RecordBlockLoad implements termdict.MetricsCollector.
func (c *Collector) RecordBlockLoad(bytes int, d time.Duration, err error) {
	c.observe("block_load", d, err)
	if err == nil {
		c.blockBytes.Add(float64(bytes))
	}
}
