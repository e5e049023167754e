// Package table implements one copy of a left-right map and the two-phase
// replay of operations onto it.
//
// Every operation is applied exactly twice, once to each copy. The first
// application never releases a payload, because the other copy (or the
// operation log) still holds an alias to it. The second application runs
// after readers have left the copy and performs the real release.
package table

import (
	"iter"

	"github.com/hupe1980/svmap/internal/aliasing"
)

// Mutable is the capability a stored value's mutable part must provide for
// partial updates. Mutate must be deterministic: called on two independent
// clones with the same op it must return equal values.
type Mutable[V, O any] interface {
	Mutate(op O) V
}

// Cloner is an optional capability of a mutable part whose plain Go copy
// would share state (slices, maps, pointers).
type Cloner[V any] interface {
	Clone() V
}

// Entry is a stored value: a mutable part owned by this copy and a reference
// part aliased with the other copy.
type Entry[V, R any] struct {
	Mut V
	Ref aliasing.Aliased[R]
}

// Table is one of the two copies.
type Table[K comparable, V Mutable[V, O], R, M, O any] struct {
	data     map[K]*Entry[V, R]
	meta     M
	ready    bool
	capacity int
}

// New returns an empty, unready table.
func New[K comparable, V Mutable[V, O], R, M, O any](meta M, capacity int) *Table[K, V, R, M, O] {
	if capacity < 0 {
		capacity = 0
	}
	return &Table[K, V, R, M, O]{
		data:     make(map[K]*Entry[V, R], capacity),
		meta:     meta,
		capacity: capacity,
	}
}

// Clone creates the structural twin of an empty table. It copies metadata,
// the ready flag and the capacity hint, never entries.
func (t *Table[K, V, R, M, O]) Clone() *Table[K, V, R, M, O] {
	if len(t.data) != 0 {
		panic("table: clone of non-empty table")
	}
	return &Table[K, V, R, M, O]{
		data:     make(map[K]*Entry[V, R], t.capacity),
		meta:     t.meta,
		ready:    t.ready,
		capacity: t.capacity,
	}
}

// AbsorbFirst applies op to the copy the writer is mutating. The op stays in
// the log, so payloads are aliased rather than moved.
func (t *Table[K, V, R, M, O]) AbsorbFirst(op *Operation[K, V, R, M, O], _ *Table[K, V, R, M, O]) {
	switch op.Kind {
	case OpInsert:
		t.data[op.Key] = &Entry[V, R]{
			Mut: cloneMut(op.Mut),
			Ref: op.Ref.Alias(),
		}
	case OpRemove:
		// The other copy still holds an alias.
		delete(t.data, op.Key)
	case OpClear:
		clear(t.data)
	case OpMutate:
		if e, ok := t.data[op.Key]; ok {
			e.Mut = e.Mut.Mutate(op.Op)
		}
	case OpMarkReady:
		t.ready = true
	case OpSetMeta:
		t.meta = op.Meta
	}
}

// AbsorbSecond applies op to the copy being brought up to date. Any entry
// removed or overwritten here holds the last alias, so it is released,
// unless the overwriting insert carries the same payload.
func (t *Table[K, V, R, M, O]) AbsorbSecond(op Operation[K, V, R, M, O], _ *Table[K, V, R, M, O]) {
	switch op.Kind {
	case OpInsert:
		op.Ref.SetOwning(true)
		if old, ok := t.data[op.Key]; ok {
			if old.Ref.SharesPayload(&op.Ref) {
				// Reinsert of the payload already stored: the new
				// entry takes over the single release.
				old.Ref.SetOwning(false)
				old.Ref.Drop()
			} else {
				releaseEntry(old)
			}
		}
		t.data[op.Key] = &Entry[V, R]{Mut: op.Mut, Ref: op.Ref}
	case OpRemove:
		if old, ok := t.data[op.Key]; ok {
			delete(t.data, op.Key)
			releaseEntry(old)
		}
	case OpClear:
		for _, e := range t.data {
			releaseEntry(e)
		}
		clear(t.data)
	case OpMutate:
		if e, ok := t.data[op.Key]; ok {
			e.Mut = e.Mut.Mutate(op.Op)
		}
	case OpMarkReady:
		t.ready = true
	case OpSetMeta:
		t.meta = op.Meta
	}
}

// DropFirst tears down a copy without releasing any payload.
func (t *Table[K, V, R, M, O]) DropFirst() {
	for _, e := range t.data {
		e.Ref.SetOwning(false)
		e.Ref.Drop()
	}
	clear(t.data)
	t.ready = false
}

// DropSecond tears down the last copy, releasing every payload.
func (t *Table[K, V, R, M, O]) DropSecond() {
	for _, e := range t.data {
		releaseEntry(e)
	}
	clear(t.data)
	t.ready = false
}

// SyncWith bootstraps this (empty) copy from an already populated one.
func (t *Table[K, V, R, M, O]) SyncWith(first *Table[K, V, R, M, O]) {
	for k, e := range first.data {
		ref := e.Ref.Alias()
		ref.SetOwning(true)
		t.data[k] = &Entry[V, R]{Mut: cloneMut(e.Mut), Ref: ref}
	}
	t.meta = first.meta
	t.ready = true
}

// Ready reports whether the table may be shown to readers.
func (t *Table[K, V, R, M, O]) Ready() bool { return t.ready }

// Meta returns the user metadata.
func (t *Table[K, V, R, M, O]) Meta() M { return t.meta }

// Len returns the number of entries.
func (t *Table[K, V, R, M, O]) Len() int { return len(t.data) }

// Get returns the entry stored under key.
func (t *Table[K, V, R, M, O]) Get(key K) (*Entry[V, R], bool) {
	e, ok := t.data[key]
	return e, ok
}

// Contains reports whether key is present.
func (t *Table[K, V, R, M, O]) Contains(key K) bool {
	_, ok := t.data[key]
	return ok
}

// All iterates over every entry. Iteration order is unspecified.
func (t *Table[K, V, R, M, O]) All() iter.Seq2[K, *Entry[V, R]] {
	return func(yield func(K, *Entry[V, R]) bool) {
		for k, e := range t.data {
			if !yield(k, e) {
				return
			}
		}
	}
}

func releaseEntry[V, R any](e *Entry[V, R]) {
	e.Ref.SetOwning(true)
	e.Ref.Drop()
}

func cloneMut[V any](v V) V {
	if c, ok := any(v).(Cloner[V]); ok {
		return c.Clone()
	}
	return v
}
