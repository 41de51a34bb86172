// Package metrics records partition outcomes as Prometheus metrics and
// exports them in the node-exporter textfile format, which suits a batch
// tool that exits before it could be scraped.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/specialistvlad/storeysplit/internal/orchestrator"
)

// Recorder holds one run's metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	partitions *prometheus.CounterVec
	duration   prometheus.Histogram
	entities   *prometheus.HistogramVec
	bytes      prometheus.Histogram
	skipped    *prometheus.CounterVec
	inputBytes prometheus.Gauge
	lastRun    prometheus.Gauge
}

// NewRecorder registers the metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// partitions counts finished partitions by result
		partitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storeysplit_partitions_total",
			Help: "Partitions processed by result",
		}, []string{"result"}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "storeysplit_partition_duration_seconds",
			Help:    "Time spent planning, closing and writing one partition",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		}),

		// entities tracks partition sizes by set
		entities: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storeysplit_partition_entities",
			Help:    "Entities per partition by set",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}, []string{"set"}),

		bytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "storeysplit_partition_bytes",
			Help:    "Size of written artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),

		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storeysplit_entities_skipped_total",
			Help: "Entities or references left out of artifacts by reason",
		}, []string{"reason"}),

		inputBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storeysplit_input_bytes",
			Help: "Size of the source document in bytes",
		}),

		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storeysplit_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// PartitionDone implements orchestrator.Observer.
func (r *Recorder) PartitionDone(_ context.Context, rep orchestrator.PartitionReport) {
	result := "ok"
	if !rep.OK() {
		result = "failed"
	}
	r.partitions.WithLabelValues(result).Inc()
	r.duration.Observe(rep.Duration.Seconds())
	if !rep.OK() {
		return
	}
	r.entities.WithLabelValues("members").Observe(float64(rep.Members))
	r.entities.WithLabelValues("roots").Observe(float64(rep.Roots))
	r.entities.WithLabelValues("closure").Observe(float64(rep.Closure))
	r.bytes.Observe(float64(rep.Bytes))
	r.skipped.WithLabelValues("dangling").Add(float64(rep.Dangling))
	r.skipped.WithLabelValues("copy_failed").Add(float64(rep.Failed))
	r.skipped.WithLabelValues("pruned").Add(float64(rep.Pruned))
}

// RunDone records run level values.
func (r *Recorder) RunDone(s *orchestrator.Summary) {
	r.inputBytes.Set(float64(s.OriginalSize))
	r.lastRun.Set(float64(s.Started.Add(s.Duration).Unix()))
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

var _ orchestrator.Observer = (*Recorder)(nil)
