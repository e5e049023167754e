// Package aliasing implements payload handles that can be shared between the
// two copies of a left-right map without cloning the payload.
//
// Every handle carries an ownership tag. Only an Owning handle releases the
// payload when it is dropped; NonOwning handles are dropped silently. The
// table layer decides, per replay phase, which handle is retagged Owning so
// that each payload is released exactly once.
package aliasing

import (
	"reflect"
	"sync/atomic"
)

// Releaser is implemented by payloads that hold resources beyond memory.
// Release is called exactly once, after no reader can observe the payload.
//
// A Releaser handed to a map belongs to it. Storing the same Releaser under
// two keys releases it while the other key still exposes it.
type Releaser interface {
	Release()
}

// cell is the payload shared by all aliases.
type cell[T any] struct {
	value    T
	released atomic.Bool
}

// Aliased is a handle to a payload that may be shared with another handle.
//
// The zero value is an empty NonOwning handle; dropping it is a no-op.
type Aliased[T any] struct {
	c      *cell[T]
	owning bool
}

// New wraps v in a fresh NonOwning handle.
func New[T any](v T) Aliased[T] {
	return Aliased[T]{c: &cell[T]{value: v}}
}

// Get returns the payload.
func (a *Aliased[T]) Get() T {
	if a.c == nil {
		var zero T
		return zero
	}
	return a.c.value
}

// Alias returns a second NonOwning handle to the same payload.
//
// The caller guarantees that at most one of the two handles ever releases the
// payload, and that neither is released while the other is observable.
func (a *Aliased[T]) Alias() Aliased[T] {
	return Aliased[T]{c: a.c}
}

// Owning reports whether dropping this handle releases the payload.
func (a *Aliased[T]) Owning() bool {
	return a.owning
}

// Released reports whether the shared payload has been released.
func (a *Aliased[T]) Released() bool {
	return a.c != nil && a.c.released.Load()
}

// Same reports whether both handles refer to the same payload.
func (a *Aliased[T]) Same(b *Aliased[T]) bool {
	return a.c == b.c
}

// SharesPayload reports whether b holds the same payload as a: either the
// same cell, or two cells wrapping the same comparable Releaser (typically
// one pointer inserted twice).
func (a *Aliased[T]) SharesPayload(b *Aliased[T]) bool {
	if a.c == nil || b.c == nil {
		return false
	}
	if a.c == b.c {
		return true
	}
	x, y := any(a.c.value), any(b.c.value)
	if _, ok := x.(Releaser); !ok {
		return false
	}
	vx, vy := reflect.ValueOf(x), reflect.ValueOf(y)
	if vx.Type() != vy.Type() || !vx.Comparable() || !vy.Comparable() {
		return false
	}
	return vx.Equal(vy)
}

// ChangeDrop flips the ownership tag.
//
// NonOwning to Owning is only valid when this is the last surviving alias.
// Owning to NonOwning is always valid and suppresses the release.
func (a *Aliased[T]) ChangeDrop() {
	a.SetOwning(!a.owning)
}

// SetOwning sets the ownership tag.
func (a *Aliased[T]) SetOwning(owning bool) {
	if owning && a.Released() {
		panic("aliasing: retagging a released payload as owning")
	}
	a.owning = owning
}

// Drop gives up the handle. The payload is released iff the handle is
// Owning. The handle is empty afterwards.
func (a *Aliased[T]) Drop() {
	c, owning := a.c, a.owning
	a.c, a.owning = nil, false
	if c == nil || !owning {
		return
	}
	if !c.released.CompareAndSwap(false, true) {
		panic("aliasing: payload released twice")
	}
	if r, ok := any(c.value).(Releaser); ok {
		r.Release()
	}
}
