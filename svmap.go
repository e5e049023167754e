package svmap

import (
	"context"

	"github.com/hupe1980/svmap/internal/aliasing"
	"github.com/hupe1980/svmap/internal/leftright"
	"github.com/hupe1980/svmap/internal/resource"
	"github.com/hupe1980/svmap/internal/table"
)

// Mutable is implemented by the mutable part of a stored value.
//
// Mutate is called twice for every Mutate operation, once on each copy of the
// map, with the same op. It must be deterministic: both calls must produce
// equal results. Reading clocks, random sources, shared mutable state or
// iterating maps inside Mutate makes the two copies silently diverge.
//
// If V holds slices, maps or pointers, V should also implement
// Clone() V so that the two copies do not share state.
type Mutable[V, O any] interface {
	Mutate(op O) V
}

// Releaser is implemented by reference payloads that hold resources. Release
// is called exactly once, after the entry has left both copies of the map and
// no snapshot can observe it any more.
//
// A Releaser inserted into a map is owned by it; one Releaser must not be
// stored under two keys.
type Releaser = aliasing.Releaser

// NoOp is the operation type of maps that never use Mutate.
type NoOp struct{}

// Unit is an empty mutable part with the identity mutation, for maps that
// only need insert and remove.
type Unit struct{}

// Mutate implements Mutable.
func (Unit) Mutate(NoOp) Unit { return Unit{} }

// Value is a stored value as seen by readers.
type Value[V, R any] struct {
	// Mut is the mutable part. Each copy of the map owns its own.
	Mut V
	// Ref is the reference payload, shared between the copies.
	Ref R
}

// OpKind identifies the kind of a logged operation.
type OpKind = table.OpKind

const (
	OpInsert    = table.OpInsert
	OpRemove    = table.OpRemove
	OpClear     = table.OpClear
	OpMutate    = table.OpMutate
	OpMarkReady = table.OpMarkReady
	OpSetMeta   = table.OpSetMeta
)

// PublishStats describes one publish.
type PublishStats = leftright.PublishStats

// New creates a map without metadata and returns its write and read handles.
//
// K is the key type, V the mutable part, R the reference payload and O the
// operation type accepted by Mutate. Keys must have a deterministic equality
// that is stable across copies; this is not checked.
//
//	w, r := svmap.New[string, svmap.Unit, *Blob, svmap.NoOp]()
func New[K comparable, V Mutable[V, O], R, O any](opts ...Option) (*WriteHandle[K, V, R, struct{}, O], *ReadHandle[K, V, R, struct{}, O]) {
	return NewWithMeta[K, V, R, O](struct{}{}, opts...)
}

// NewWithMeta is like New but attaches user metadata to the map. Readers see
// the metadata of the last publish; the writer replaces it with SetMeta.
func NewWithMeta[K comparable, V Mutable[V, O], R, O, M any](meta M, opts ...Option) (*WriteHandle[K, V, R, M, O], *ReadHandle[K, V, R, M, O]) {
	o := applyOptions(opts)

	t := table.New[K, V, R, M, O](meta, o.capacity)
	lw, lr := leftright.New[*table.Table[K, V, R, M, O], table.Operation[K, V, R, M, O]](t)

	// Readers see no snapshot until the first publish.
	lw.Prime(table.MarkReady[K, V, R, M, O]())

	w := &WriteHandle[K, V, R, M, O]{
		ReadHandle: &ReadHandle[K, V, R, M, O]{handle: lw.Factory().Handle()},
		w:          lw,
		ctrl:       resource.NewController(o.resource),
		logger:     o.logger,
		metrics:    o.metricsCollector,
	}
	w.logger.LogCreate(context.Background(), o.capacity, w.ctrl.Limited(), w.ctrl.MaxPendingOps())
	return w, &ReadHandle[K, V, R, M, O]{handle: lr}
}
