package svmap

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/hupe1980/svmap/internal/leftright"
	"github.com/hupe1980/svmap/internal/resource"
	"github.com/hupe1980/svmap/internal/table"
)

// WriteHandle is the single writer of a map.
//
// Every write is applied at once to the writer's private copy and logged.
// Readers see nothing of it until Publish. A WriteHandle must only be used
// by one goroutine at a time, and a map has exactly one WriteHandle; using it
// from several goroutines concurrently corrupts the map.
//
// The embedded ReadHandle reads the published state, not the pending one.
type WriteHandle[K comparable, V Mutable[V, O], R, M, O any] struct {
	*ReadHandle[K, V, R, M, O]

	w       *leftright.WriteHandle[*table.Table[K, V, R, M, O], table.Operation[K, V, R, M, O]]
	ctrl    *resource.Controller
	logger  *Logger
	metrics MetricsCollector
}

// Insert stores ref and mut under key, replacing any previous value. The
// replaced payload is released once no snapshot can observe it.
//
// Ownership of ref passes to the map. Inserting the same payload again under
// the same key keeps it alive, but a Releaser must not be stored under two
// keys at once, nor reinserted after it was removed.
func (w *WriteHandle[K, V, R, M, O]) Insert(key K, ref R, mut V) {
	w.append(table.Insert[K, V, R, M, O](key, mut, ref))
}

// Remove deletes key. Its payload is released once no snapshot can observe it.
func (w *WriteHandle[K, V, R, M, O]) Remove(key K) {
	w.append(table.Remove[K, V, R, M, O](key))
}

// Clear deletes every entry.
func (w *WriteHandle[K, V, R, M, O]) Clear() {
	w.append(table.Clear[K, V, R, M, O]())
}

// Mutate applies op to the mutable part stored under key. It does nothing if
// key is absent. See Mutable for the determinism requirement.
func (w *WriteHandle[K, V, R, M, O]) Mutate(key K, op O) {
	w.append(table.Mutate[K, V, R, M](key, op))
}

// SetMeta replaces the metadata.
func (w *WriteHandle[K, V, R, M, O]) SetMeta(meta M) {
	w.append(table.SetMeta[K, V, R, M, O](meta))
}

// Extend inserts every key and value of seq in order. Ownership of each Ref
// passes to the map as with Insert.
func (w *WriteHandle[K, V, R, M, O]) Extend(seq iter.Seq2[K, Value[V, R]]) {
	for k, v := range seq {
		w.Insert(k, v.Ref, v.Mut)
	}
}

// HasPending reports whether any operation was appended since the last
// publish.
func (w *WriteHandle[K, V, R, M, O]) HasPending() bool {
	return w.w.HasPending()
}

// Pending returns the number of operations appended since the last publish.
func (w *WriteHandle[K, V, R, M, O]) Pending() int {
	return w.w.Pending()
}

// Publish makes every pending operation visible to readers, atomically.
//
// Publish blocks until readers that still hold a snapshot of the previous
// state have closed it. It is the only blocking write operation.
func (w *WriteHandle[K, V, R, M, O]) Publish() {
	w.publish(context.Background())
}

// TryPublish publishes if there is something to publish and the configured
// rate limit allows it. It reports whether it published.
func (w *WriteHandle[K, V, R, M, O]) TryPublish() bool {
	if w.w.Closed() {
		return false
	}
	if w.w.Published() && !w.w.HasPending() {
		return false
	}
	if !w.ctrl.AllowPublish() {
		w.metrics.RecordThrottled()
		w.logger.LogThrottled(context.Background(), w.w.Pending(), w.ctrl.Throttled())
		return false
	}
	w.publish(context.Background())
	return true
}

// WaitPublish waits until the configured rate limit allows a publish, then
// publishes. It returns ErrClosed on a closed map and the context's error if
// ctx is done first.
func (w *WriteHandle[K, V, R, M, O]) WaitPublish(ctx context.Context) error {
	if w.w.Closed() {
		return ErrClosed
	}
	if err := w.ctrl.WaitPublish(ctx); err != nil {
		return fmt.Errorf("svmap: wait for publish: %w", err)
	}
	w.publish(ctx)
	return nil
}

// Factory returns a ReadHandleFactory for this map.
func (w *WriteHandle[K, V, R, M, O]) Factory() *ReadHandleFactory[K, V, R, M, O] {
	return &ReadHandleFactory[K, V, R, M, O]{factory: w.w.Factory()}
}

// Close publishes pending operations and tears the map down. Afterwards
// readers see no snapshot, and every payload still in the map has been
// released. Writing to a closed map panics. A second Close returns ErrClosed.
func (w *WriteHandle[K, V, R, M, O]) Close() error {
	ctx := context.Background()
	if w.w.Closed() {
		w.logger.LogClose(ctx, 0, 0, ErrClosed)
		return ErrClosed
	}

	entries := w.w.Raw().Len()
	if w.w.HasPending() || !w.w.Published() {
		w.publish(ctx)
		entries = w.w.Raw().Len()
	}
	w.w.Close()
	_ = w.ReadHandle.Close()

	w.metrics.RecordClose()
	w.logger.LogClose(ctx, entries, w.w.Readers(), nil)
	return nil
}

func (w *WriteHandle[K, V, R, M, O]) append(op table.Operation[K, V, R, M, O]) {
	if w.w.Closed() {
		panic(panicWriteClosed)
	}
	kind := op.Kind
	w.w.Append(op)
	w.metrics.RecordOperation(kind)

	if pending := w.w.Pending(); w.ctrl.ShouldPublish(pending) {
		ctx := context.Background()
		w.logger.LogAutoPublish(ctx, pending, w.ctrl.MaxPendingOps())
		w.publish(ctx)
	}
}

func (w *WriteHandle[K, V, R, M, O]) publish(ctx context.Context) {
	start := time.Now()
	stats := w.w.Publish()
	d := time.Since(start)

	w.metrics.RecordPublish(stats.Replayed, stats.WaitDuration, d)
	w.logger.LogPublish(ctx, stats, d)
}
