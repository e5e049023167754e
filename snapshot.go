package svmap

import (
	"iter"

	"github.com/hupe1980/svmap/internal/leftright"
	"github.com/hupe1980/svmap/internal/table"
)

// Snapshot is a consistent view of the map as of one publish.
//
// A Snapshot pins the copy it reads from: a Publish started while it is open
// blocks until it is closed. Keep snapshots short, and in particular do not
// hold one across a long iteration if the writer publishes frequently.
type Snapshot[K comparable, V Mutable[V, O], R, M, O any] struct {
	guard  *leftright.ReadGuard[*table.Table[K, V, R, M, O]]
	closed bool
}

func (s *Snapshot[K, V, R, M, O]) table() *table.Table[K, V, R, M, O] {
	if s.closed {
		panic(panicSnapshotClosed)
	}
	return s.guard.Get()
}

// Get returns the value stored under key.
func (s *Snapshot[K, V, R, M, O]) Get(key K) (Value[V, R], bool) {
	e, ok := s.table().Get(key)
	if !ok {
		return Value[V, R]{}, false
	}
	return Value[V, R]{Mut: e.Mut, Ref: e.Ref.Get()}, true
}

// ContainsKey reports whether key is present.
func (s *Snapshot[K, V, R, M, O]) ContainsKey(key K) bool {
	return s.table().Contains(key)
}

// Len returns the number of entries.
func (s *Snapshot[K, V, R, M, O]) Len() int {
	return s.table().Len()
}

// IsEmpty reports whether the snapshot has no entries.
func (s *Snapshot[K, V, R, M, O]) IsEmpty() bool {
	return s.table().Len() == 0
}

// Meta returns the metadata.
func (s *Snapshot[K, V, R, M, O]) Meta() M {
	return s.table().Meta()
}

// All returns an iterator over every key and value. The order is
// unspecified. The iterator may be ranged over repeatedly while the
// snapshot is open.
func (s *Snapshot[K, V, R, M, O]) All() iter.Seq2[K, Value[V, R]] {
	return func(yield func(K, Value[V, R]) bool) {
		for k, e := range s.table().All() {
			if !yield(k, Value[V, R]{Mut: e.Mut, Ref: e.Ref.Get()}) {
				return
			}
		}
	}
}

// Keys returns an iterator over every key.
func (s *Snapshot[K, V, R, M, O]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range s.table().All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over every value.
func (s *Snapshot[K, V, R, M, O]) Values() iter.Seq[Value[V, R]] {
	return func(yield func(Value[V, R]) bool) {
		for _, e := range s.table().All() {
			if !yield(Value[V, R]{Mut: e.Mut, Ref: e.Ref.Get()}) {
				return
			}
		}
	}
}

// Close releases the snapshot. Further calls are no-ops.
func (s *Snapshot[K, V, R, M, O]) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.guard.Release()
}
