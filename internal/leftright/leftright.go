// Package leftright implements the left-right concurrency primitive.
//
// Two copies of a data structure are kept. Readers always access the copy
// behind an atomic pointer and never block. The single writer mutates the
// other copy and, on Publish, swaps the pointer, waits for readers still
// inside the old copy to leave, and replays its operation log onto it.
//
// Reader progress is tracked with per-reader epoch counters held in
// cache-line padded slots, so readers never write to shared cache lines.
package leftright

import (
	"sync/atomic"
)

// Absorb is implemented by the structure kept in two copies. Every operation
// is applied exactly once to each copy: first to the copy the writer owns,
// later to the copy readers just left.
type Absorb[T, O any] interface {
	// AbsorbFirst applies op to the writer's copy. The op remains logged and
	// will be handed to AbsorbSecond later, so it must not be consumed.
	AbsorbFirst(op *O, other T)
	// AbsorbSecond applies op to the other copy, consuming it.
	AbsorbSecond(op O, other T)
	// DropFirst tears down the first copy to be destroyed.
	DropFirst()
	// DropSecond tears down the last remaining copy.
	DropSecond()
	// SyncWith brings an untouched copy up to date with first.
	SyncWith(first T)
}

// Inner is an Absorb that can create its own empty structural twin.
type Inner[T, O any] interface {
	Absorb[T, O]
	Clone() T
}

// handle boxes one copy so both copies can sit behind one atomic pointer.
type handle[T any] struct {
	inner T
}

// shared is what the writer and all readers hold in common.
type shared[T any] struct {
	current  atomic.Pointer[handle[T]]
	registry *registry
}

// New creates a left-right pair from an empty t. The second copy is
// t.Clone(), so both copies share every property that is not an entry.
func New[T Inner[T, O], O any](t T) (*WriteHandle[T, O], *ReadHandle[T]) {
	s := &shared[T]{registry: newRegistry()}

	r := &handle[T]{inner: t.Clone()}
	w := &handle[T]{inner: t}
	s.current.Store(r)

	wh := &WriteHandle[T, O]{
		shared: s,
		w:      w,
		first:  true,
	}
	return wh, newReadHandle(s)
}
