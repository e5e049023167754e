package svmap

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// All methods are called from the writer goroutine.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    opsCounter       *prometheus.CounterVec
//	    publishHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordOperation(kind svmap.OpKind) {
//	    p.opsCounter.WithLabelValues(kind.String()).Inc()
//	}
type MetricsCollector interface {
	// RecordOperation is called after each operation is appended.
	RecordOperation(kind OpKind)

	// RecordPublish is called after each publish. replayed is the number of
	// operations applied to the stale copy, wait the time spent waiting for
	// readers and duration the total time taken.
	RecordPublish(replayed int, wait, duration time.Duration)

	// RecordThrottled is called when the rate limit refuses a publish.
	RecordThrottled()

	// RecordClose is called once when the map is closed.
	RecordClose()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOperation(OpKind)                          {}
func (NoopMetricsCollector) RecordPublish(int, time.Duration, time.Duration) {}
func (NoopMetricsCollector) RecordThrottled()                                {}
func (NoopMetricsCollector) RecordClose()                                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount       atomic.Int64
	RemoveCount       atomic.Int64
	ClearCount        atomic.Int64
	MutateCount       atomic.Int64
	MetaCount         atomic.Int64
	PublishCount      atomic.Int64
	ReplayedOps       atomic.Int64
	PublishTotalNanos atomic.Int64
	WaitTotalNanos    atomic.Int64
	ThrottledCount    atomic.Int64
	Closed            atomic.Bool
}

// RecordOperation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOperation(kind OpKind) {
	switch kind {
	case OpInsert:
		b.InsertCount.Add(1)
	case OpRemove:
		b.RemoveCount.Add(1)
	case OpClear:
		b.ClearCount.Add(1)
	case OpMutate:
		b.MutateCount.Add(1)
	case OpSetMeta:
		b.MetaCount.Add(1)
	}
}

// RecordPublish implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPublish(replayed int, wait, duration time.Duration) {
	b.PublishCount.Add(1)
	b.ReplayedOps.Add(int64(replayed))
	b.WaitTotalNanos.Add(wait.Nanoseconds())
	b.PublishTotalNanos.Add(duration.Nanoseconds())
}

// RecordThrottled implements MetricsCollector.
func (b *BasicMetricsCollector) RecordThrottled() {
	b.ThrottledCount.Add(1)
}

// RecordClose implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClose() {
	b.Closed.Store(true)
}

// GetStats returns a snapshot of the collected metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:     b.InsertCount.Load(),
		RemoveCount:     b.RemoveCount.Load(),
		ClearCount:      b.ClearCount.Load(),
		MutateCount:     b.MutateCount.Load(),
		MetaCount:       b.MetaCount.Load(),
		PublishCount:    b.PublishCount.Load(),
		ReplayedOps:     b.ReplayedOps.Load(),
		ReplayAvg:       b.avg(b.ReplayedOps.Load()),
		PublishAvgNanos: b.avg(b.PublishTotalNanos.Load()),
		WaitAvgNanos:    b.avg(b.WaitTotalNanos.Load()),
		ThrottledCount:  b.ThrottledCount.Load(),
		Closed:          b.Closed.Load(),
	}
}

func (b *BasicMetricsCollector) avg(total int64) int64 {
	count := b.PublishCount.Load()
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount     int64
	RemoveCount     int64
	ClearCount      int64
	MutateCount     int64
	MetaCount       int64
	PublishCount    int64
	ReplayedOps     int64
	ReplayAvg       int64
	PublishAvgNanos int64
	WaitAvgNanos    int64
	ThrottledCount  int64
	Closed          bool
}
