package dupehash

import (
	"log/slog"
)

type options struct {
	memoryLimit      int64
	workers          int
	metricsCollector MetricsCollector
	logger           *Logger
	err              error
}

// Option configures Engine constructor behavior.
type Option func(*options)

// WithMemoryLimit caps the bytes held by unreleased results. An operation
// whose allocation would exceed the limit fails with ErrOutOfMemory.
//
// 0 (default) disables the limit; usage is still tracked.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithWorkers sets how many goroutines batch encode and pair search may use.
//
// Results are identical for every worker count; pair order is preserved.
// A parallel search holds per-shard buffers alongside the merged output.
// When that exceeds the memory limit it is retried on one goroutine, so a
// search that fits sequentially also succeeds with more workers.
// Values <= 1 run everything on the calling goroutine (default).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &dupehash.BasicMetricsCollector{}
//	e, _ := dupehash.New(dupehash.WithMetricsCollector(metrics))
//	// ... use e ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, pairs: %d\n", stats.SearchCount, stats.SearchPairsFound)
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
//
// Example with JSON logging:
//
//	logger := dupehash.NewJSONLogger(slog.LevelInfo)
//	e, _ := dupehash.New(dupehash.WithLogger(logger))
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

// WithConfig applies every setting in cfg. Later options override it.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		if err := cfg.Validate(); err != nil {
			o.err = err
			return
		}
		o.memoryLimit = cfg.MemoryLimitBytes
		o.workers = cfg.Workers
		o.logger, _ = cfg.Logger()
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		workers:          1,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
