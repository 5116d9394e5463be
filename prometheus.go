package dupehash

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports operation metrics to Prometheus.
type PrometheusCollector struct {
	OpsTotal          *prometheus.CounterVec
	DurationSeconds   *prometheus.HistogramVec
	BatchItemsTotal   *prometheus.CounterVec
	SearchComparisons *prometheus.CounterVec
	SearchPairs       *prometheus.CounterVec
}

// NewPrometheusCollector creates the collector and registers it on reg.
// A nil reg leaves the metrics unregistered.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	p := &PrometheusCollector{
		OpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dupehash_ops_total",
				Help: "Total number of operations",
			},
			[]string{"op", "status"},
		),
		DurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dupehash_op_duration_seconds",
				Help:    "Latency of operations",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"op"},
		),
		BatchItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dupehash_batch_items_total",
				Help: "Items processed by batch operations",
			},
			[]string{"op", "status"},
		),
		SearchComparisons: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dupehash_search_comparisons_total",
				Help: "Distance computations performed by pair searches",
			},
			[]string{"mode"},
		),
		SearchPairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dupehash_search_pairs_total",
				Help: "Pairs within threshold found by pair searches",
			},
			[]string{"mode"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			p.OpsTotal,
			p.DurationSeconds,
			p.BatchItemsTotal,
			p.SearchComparisons,
			p.SearchPairs,
		)
	}

	return p
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *PrometheusCollector) observe(op string, duration time.Duration, err error) {
	p.OpsTotal.WithLabelValues(op, status(err)).Inc()
	p.DurationSeconds.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordEncode implements MetricsCollector.
func (p *PrometheusCollector) RecordEncode(duration time.Duration, err error) {
	p.observe("encode", duration, err)
}

// RecordBatchEncode implements MetricsCollector.
func (p *PrometheusCollector) RecordBatchEncode(count, failed int, duration time.Duration, err error) {
	p.observe("encode_batch", duration, err)
	if err != nil {
		return
	}
	p.BatchItemsTotal.WithLabelValues("encode_batch", "ok").Add(float64(count - failed))
	p.BatchItemsTotal.WithLabelValues("encode_batch", "error").Add(float64(failed))
}

// RecordDistanceBatch implements MetricsCollector.
func (p *PrometheusCollector) RecordDistanceBatch(count, invalid int, duration time.Duration, err error) {
	p.observe("distance_batch", duration, err)
	if err != nil {
		return
	}
	p.BatchItemsTotal.WithLabelValues("distance_batch", "ok").Add(float64(count - invalid))
	p.BatchItemsTotal.WithLabelValues("distance_batch", "error").Add(float64(invalid))
}

// RecordSearch implements MetricsCollector.
func (p *PrometheusCollector) RecordSearch(mode SearchMode, stats SearchStats, duration time.Duration, err error) {
	p.observe("find_pairs_"+string(mode), duration, err)
	if err != nil {
		return
	}
	p.SearchComparisons.WithLabelValues(string(mode)).Add(float64(stats.Comparisons))
	p.SearchPairs.WithLabelValues(string(mode)).Add(float64(stats.Pairs))
}
