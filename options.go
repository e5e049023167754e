package svmap

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/hupe1980/svmap/internal/resource"
)

type options struct {
	capacity         int
	metricsCollector MetricsCollector
	logger           *Logger
	resource         resource.Config
}

// Option configures map construction.
type Option func(*options)

// WithCapacity pre-sizes both copies of the map for n entries.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithMetricsCollector configures a metrics collector for writer operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &svmap.BasicMetricsCollector{}
//	w, r := svmap.New[string, svmap.Unit, *Blob, svmap.NoOp](svmap.WithMetricsCollector(metrics))
//	// ... use w ...
//	stats := metrics.GetStats()
//	fmt.Printf("Publishes: %d, Avg replay: %d ops\n", stats.PublishCount, stats.ReplayAvg)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for writer operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := svmap.NewJSONLogger(slog.LevelDebug)
//	w, r := svmap.New[string, svmap.Unit, *Blob, svmap.NoOp](svmap.WithLogger(logger))
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

// WithPublishRateLimit limits how often TryPublish and WaitPublish publish.
// Publish itself is never limited.
//
// A limit of 0 or rate.Inf disables limiting. burst is the number of
// publishes allowed back to back (at least 1).
func WithPublishRateLimit(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.resource.PublishesPerSec = float64(limit)
		o.resource.PublishBurst = burst
	}
}

// WithMaxPending makes the writer publish on its own once n operations have
// been appended since the last publish. n <= 0 disables it.
//
// Auto-publishing blocks the writer like Publish does.
func WithMaxPending(n int) Option {
	return func(o *options) {
		o.resource.MaxPendingOps = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
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
