// Package metrics exposes the uploader's Prometheus collectors: cycle
// duration, blocks packed, upload outcomes, queue depth, and staging-store
// transaction latency.
//
// A nil *Collector is valid and makes every recording method a no-op, so
// the poller can accept metrics unconditionally and callers that
// don't enable metrics pay no collection cost.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the uploader's Prometheus collectors.
type Collector struct {
	registry *prometheus.Registry

	cycleDuration      prometheus.Histogram
	blocksPacked       prometheus.Counter
	uploadOutcomes     *prometheus.CounterVec
	queueDepth         prometheus.Gauge
	stagingTxnDuration *prometheus.HistogramVec
}

// New creates a Collector registered against its own registry, so multiple
// uploader instances in the same test process never collide on collector
// names.
func New() *Collector {
	reg := prometheus.NewRegistry()
	return &Collector{
		registry: reg,
		cycleDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "dbs3uploader_cycle_duration_seconds",
			Help:    "Duration of one polling cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		blocksPacked: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dbs3uploader_blocks_packed_total",
			Help: "Total number of blocks closed for upload during packing or sweeps.",
		}),
		uploadOutcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dbs3uploader_upload_outcomes_total",
			Help: "Total worker-pool upload outcomes by classification.",
		}, []string{"outcome"}),
		queueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "dbs3uploader_inflight_blocks",
			Help: "Number of blocks currently submitted to the worker pool and awaiting a result.",
		}),
		stagingTxnDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dbs3uploader_staging_transaction_duration_seconds",
			Help:    "Duration of staging-store transactions by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Handler returns the HTTP handler serving this Collector's registered
// metrics. Returns nil for a nil Collector.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return nil
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveCycleDuration records the wall-clock duration of one polling cycle,
// in seconds.
func (c *Collector) ObserveCycleDuration(seconds float64) {
	if c == nil {
		return
	}
	c.cycleDuration.Observe(seconds)
}

// AddBlocksPacked increments the blocks-packed counter by n.
func (c *Collector) AddBlocksPacked(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.blocksPacked.Add(float64(n))
}

// RecordUploadOutcome increments the upload-outcome counter for outcome.
func (c *Collector) RecordUploadOutcome(outcome string) {
	if c == nil {
		return
	}
	c.uploadOutcomes.WithLabelValues(outcome).Inc()
}

// SetQueueDepth sets the current in-flight block count.
func (c *Collector) SetQueueDepth(n int) {
	if c == nil {
		return
	}
	c.queueDepth.Set(float64(n))
}

// ObserveStagingTransaction records the duration of a staging-store
// transaction, labeled by operation name.
func (c *Collector) ObserveStagingTransaction(operation string, seconds float64) {
	if c == nil {
		return
	}
	c.stagingTxnDuration.WithLabelValues(operation).Observe(seconds)
}
