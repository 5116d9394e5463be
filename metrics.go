package dupehash

import (
	"sync/atomic"
	"time"
)

// SearchMode names the pair-search algorithm.
type SearchMode string

const (
	// Exhaustive compares every unordered pair.
	Exhaustive SearchMode = "exhaustive"
	// Bucketed compares pairs within a bucket and across adjacent buckets.
	Bucketed SearchMode = "bucketed"
)

// MetricsCollector defines an interface for collecting operational metrics.
// PrometheusCollector is the implementation for Prometheus; implement this
// interface to integrate with other monitoring systems.
type MetricsCollector interface {
	// RecordEncode is called after each single-image encode.
	// err is nil if successful.
	RecordEncode(duration time.Duration, err error)

	// RecordBatchEncode is called after each batch encode.
	// count is the number of images, failed is the number of per-image
	// failures.
	RecordBatchEncode(count, failed int, duration time.Duration, err error)

	// RecordDistanceBatch is called after each batch distance computation.
	// invalid is the number of -1 entries.
	RecordDistanceBatch(count, invalid int, duration time.Duration, err error)

	// RecordSearch is called after each pair search.
	RecordSearch(mode SearchMode, stats SearchStats, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEncode(time.Duration, error)                          {}
func (NoopMetricsCollector) RecordBatchEncode(int, int, time.Duration, error)           {}
func (NoopMetricsCollector) RecordDistanceBatch(int, int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordSearch(SearchMode, SearchStats, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	EncodeCount             atomic.Int64
	EncodeErrors            atomic.Int64
	EncodeTotalNanos        atomic.Int64
	BatchEncodeCount        atomic.Int64
	BatchEncodeErrors       atomic.Int64
	BatchEncodeTotalNanos   atomic.Int64
	BatchEncodeImages       atomic.Int64
	BatchEncodeFailed       atomic.Int64
	DistanceBatchCount      atomic.Int64
	DistanceBatchErrors     atomic.Int64
	DistanceBatchTotalNanos atomic.Int64
	DistancePairs           atomic.Int64
	DistanceInvalid         atomic.Int64
	SearchCount             atomic.Int64
	SearchErrors            atomic.Int64
	SearchTotalNanos        atomic.Int64
	SearchComparisons       atomic.Int64
	SearchPairsFound        atomic.Int64
}

// RecordEncode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEncode(duration time.Duration, err error) {
	b.EncodeCount.Add(1)
	b.EncodeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EncodeErrors.Add(1)
	}
}

// RecordBatchEncode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchEncode(count, failed int, duration time.Duration, err error) {
	b.BatchEncodeCount.Add(1)
	b.BatchEncodeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BatchEncodeErrors.Add(1)
		return
	}
	b.BatchEncodeImages.Add(int64(count))
	b.BatchEncodeFailed.Add(int64(failed))
}

// RecordDistanceBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDistanceBatch(count, invalid int, duration time.Duration, err error) {
	b.DistanceBatchCount.Add(1)
	b.DistanceBatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.DistanceBatchErrors.Add(1)
		return
	}
	b.DistancePairs.Add(int64(count))
	b.DistanceInvalid.Add(int64(invalid))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(mode SearchMode, stats SearchStats, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchComparisons.Add(stats.Comparisons)
	b.SearchPairsFound.Add(int64(stats.Pairs))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		EncodeCount:           b.EncodeCount.Load(),
		EncodeErrors:          b.EncodeErrors.Load(),
		EncodeAvgNanos:        avg(b.EncodeTotalNanos.Load(), b.EncodeCount.Load()),
		BatchEncodeCount:      b.BatchEncodeCount.Load(),
		BatchEncodeErrors:     b.BatchEncodeErrors.Load(),
		BatchEncodeAvgNanos:   avg(b.BatchEncodeTotalNanos.Load(), b.BatchEncodeCount.Load()),
		BatchEncodeImages:     b.BatchEncodeImages.Load(),
		BatchEncodeFailed:     b.BatchEncodeFailed.Load(),
		DistanceBatchCount:    b.DistanceBatchCount.Load(),
		DistanceBatchErrors:   b.DistanceBatchErrors.Load(),
		DistanceBatchAvgNanos: avg(b.DistanceBatchTotalNanos.Load(), b.DistanceBatchCount.Load()),
		DistancePairs:         b.DistancePairs.Load(),
		DistanceInvalid:       b.DistanceInvalid.Load(),
		SearchCount:           b.SearchCount.Load(),
		SearchErrors:          b.SearchErrors.Load(),
		SearchAvgNanos:        avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		SearchComparisons:     b.SearchComparisons.Load(),
		SearchPairsFound:      b.SearchPairsFound.Load(),
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
	EncodeCount           int64
	EncodeErrors          int64
	EncodeAvgNanos        int64
	BatchEncodeCount      int64
	BatchEncodeErrors     int64
	BatchEncodeAvgNanos   int64
	BatchEncodeImages     int64
	BatchEncodeFailed     int64
	DistanceBatchCount    int64
	DistanceBatchErrors   int64
	DistanceBatchAvgNanos int64
	DistancePairs         int64
	DistanceInvalid       int64
	SearchCount           int64
	SearchErrors          int64
	SearchAvgNanos        int64
	SearchComparisons     int64
	SearchPairsFound      int64
}
