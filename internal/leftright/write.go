package leftright

import (
	"time"
)

// PublishStats describes one publish.
type PublishStats struct {
	// Replayed is the number of logged operations applied to the stale copy.
	Replayed int
	// Waited is the number of readers the writer had to wait for.
	Waited int
	// WaitDuration is the time spent waiting for those readers.
	WaitDuration time.Duration
	// Bootstrapped is set when the stale copy was synced wholesale
	// instead of replaying the log (first publish only).
	Bootstrapped bool
}

// WriteHandle is the single writer of a left-right pair.
//
// A WriteHandle must only be used from one goroutine at a time.
type WriteHandle[T Absorb[T, O], O any] struct {
	shared *shared[T]
	// w is the copy no reader can reach.
	w *handle[T]

	oplog   []O
	pending int

	// first is set until the first publish. Until then no reader has ever
	// seen w, so operations are applied with AbsorbSecond and not logged.
	first  bool
	closed bool
}

// Prime applies op to the writer's copy before the first publish without
// counting it as pending. It is used for construction-time operations.
func (wh *WriteHandle[T, O]) Prime(op O) {
	if !wh.first {
		panic("leftright: prime after first publish")
	}
	wh.w.inner.AbsorbSecond(op, wh.other())
}

// Append applies op to the writer's copy and logs it for the other copy.
func (wh *WriteHandle[T, O]) Append(op O) {
	if wh.closed {
		panic("leftright: append on closed write handle")
	}
	wh.pending++
	if wh.first {
		wh.w.inner.AbsorbSecond(op, wh.other())
		return
	}
	wh.oplog = append(wh.oplog, op)
	wh.w.inner.AbsorbFirst(&wh.oplog[len(wh.oplog)-1], wh.other())
}

// Pending returns the number of operations appended since the last publish.
func (wh *WriteHandle[T, O]) Pending() int { return wh.pending }

// HasPending reports whether any operation was appended since the last
// publish.
func (wh *WriteHandle[T, O]) HasPending() bool { return wh.pending > 0 }

// Published reports whether Publish has been called at least once.
func (wh *WriteHandle[T, O]) Published() bool { return !wh.first }

// Closed reports whether Close has been called.
func (wh *WriteHandle[T, O]) Closed() bool { return wh.closed }

// Readers returns the number of open read handles.
func (wh *WriteHandle[T, O]) Readers() int { return wh.shared.registry.readers() }

// Raw returns the writer's private copy. Callers must not retain it across
// a publish.
func (wh *WriteHandle[T, O]) Raw() T { return wh.w.inner }

// Publish makes every appended operation visible to readers.
//
// The writer's copy is swapped in, the writer blocks until readers that
// were inside the previous copy have left, and then replays the log onto
// that copy so both are identical again.
func (wh *WriteHandle[T, O]) Publish() PublishStats {
	if wh.closed {
		panic("leftright: publish on closed write handle")
	}

	stale := wh.swap(wh.w)
	stats := wh.waitReaders()

	if wh.first {
		stale.inner.SyncWith(wh.w.inner)
		stats.Bootstrapped = true
		wh.first = false
	} else {
		for _, op := range wh.oplog {
			stale.inner.AbsorbSecond(op, wh.w.inner)
		}
		stats.Replayed = len(wh.oplog)
		clear(wh.oplog)
		wh.oplog = wh.oplog[:0]
	}

	wh.pending = 0
	wh.w = stale
	return stats
}

// Close publishes outstanding operations, hides both copies from readers,
// waits for readers to leave and destroys both copies. It reports false if
// the handle was already closed.
func (wh *WriteHandle[T, O]) Close() bool {
	if wh.closed {
		return false
	}
	if wh.first || wh.pending > 0 {
		wh.Publish()
	}

	last := wh.swap(nil)
	wh.waitReaders()
	wh.closed = true

	wh.w.inner.DropFirst()
	last.inner.DropSecond()
	wh.w = nil
	wh.oplog = nil
	return true
}

// Factory returns a factory for new read handles.
func (wh *WriteHandle[T, O]) Factory() *Factory[T] {
	return &Factory[T]{shared: wh.shared}
}

func (wh *WriteHandle[T, O]) other() T {
	return wh.shared.current.Load().inner
}

func (wh *WriteHandle[T, O]) swap(next *handle[T]) *handle[T] {
	return wh.shared.current.Swap(next)
}

func (wh *WriteHandle[T, O]) waitReaders() PublishStats {
	start := time.Now()
	busy := wh.shared.registry.mark()
	stats := PublishStats{Waited: len(busy)}
	wh.shared.registry.wait(busy)
	stats.WaitDuration = time.Since(start)
	return stats
}
