package svmap

import (
	"github.com/hupe1980/svmap/internal/leftright"
	"github.com/hupe1980/svmap/internal/table"
)

// ReadHandle gives lock-free read access to the published state of a map.
//
// Reads never block and never wait for the writer. A ReadHandle must not be
// used by more than one goroutine at a time; give every reader goroutine its
// own handle via Clone or a ReadHandleFactory.
type ReadHandle[K comparable, V Mutable[V, O], R, M, O any] struct {
	handle *leftright.ReadHandle[*table.Table[K, V, R, M, O]]
	closed bool
}

// Enter returns a snapshot of the published state. It reports false before
// the first publish and after the writer has been closed.
//
// The snapshot must be closed. While it is open, a concurrent Publish blocks.
func (r *ReadHandle[K, V, R, M, O]) Enter() (*Snapshot[K, V, R, M, O], bool) {
	if r.closed {
		panic(panicReaderClosed)
	}
	g, ok := r.handle.Enter()
	if !ok {
		return nil, false
	}
	if !g.Get().Ready() {
		g.Release()
		return nil, false
	}
	return &Snapshot[K, V, R, M, O]{guard: g}, true
}

// Get returns a copy of the value stored under key.
//
// The returned Ref is not pinned: once key is removed and a later publish
// completes, the payload may be released. Use Enter to keep it alive.
func (r *ReadHandle[K, V, R, M, O]) Get(key K) (Value[V, R], bool) {
	s, ok := r.Enter()
	if !ok {
		return Value[V, R]{}, false
	}
	defer s.Close()
	return s.Get(key)
}

// ContainsKey reports whether key is present in the published state.
func (r *ReadHandle[K, V, R, M, O]) ContainsKey(key K) bool {
	s, ok := r.Enter()
	if !ok {
		return false
	}
	defer s.Close()
	return s.ContainsKey(key)
}

// Len returns the number of published entries (0 before the first publish).
func (r *ReadHandle[K, V, R, M, O]) Len() int {
	s, ok := r.Enter()
	if !ok {
		return 0
	}
	defer s.Close()
	return s.Len()
}

// IsEmpty reports whether the published state has no entries. It returns
// false when no snapshot is available, so IsEmpty and Available can be told
// apart from Len, which reports 0 in both cases.
func (r *ReadHandle[K, V, R, M, O]) IsEmpty() bool {
	s, ok := r.Enter()
	if !ok {
		return false
	}
	defer s.Close()
	return s.IsEmpty()
}

// Meta returns the published metadata. It reports false when no snapshot is
// available.
func (r *ReadHandle[K, V, R, M, O]) Meta() (M, bool) {
	s, ok := r.Enter()
	if !ok {
		var zero M
		return zero, false
	}
	defer s.Close()
	return s.Meta(), true
}

// Available reports whether a snapshot can currently be entered.
func (r *ReadHandle[K, V, R, M, O]) Available() bool {
	s, ok := r.Enter()
	if ok {
		s.Close()
	}
	return ok
}

// WriterClosed reports whether the map's WriteHandle has been closed. Once it
// has, Enter never succeeds again.
func (r *ReadHandle[K, V, R, M, O]) WriterClosed() bool {
	return r.handle.WriterClosed()
}

// Clone returns an independent handle to the same map.
func (r *ReadHandle[K, V, R, M, O]) Clone() *ReadHandle[K, V, R, M, O] {
	if r.closed {
		panic(panicReaderClosed)
	}
	return &ReadHandle[K, V, R, M, O]{handle: r.handle.Clone()}
}

// Factory returns a ReadHandleFactory for this map.
func (r *ReadHandle[K, V, R, M, O]) Factory() *ReadHandleFactory[K, V, R, M, O] {
	return &ReadHandleFactory[K, V, R, M, O]{factory: r.handle.Factory()}
}

// Close releases the handle. Closing a handle that has an open snapshot
// panics. A second Close returns ErrClosed.
func (r *ReadHandle[K, V, R, M, O]) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	r.handle.Close()
	return nil
}

// ReadHandleFactory creates read handles. Unlike ReadHandle it is safe for
// concurrent use, so it can be shared with reader goroutines.
type ReadHandleFactory[K comparable, V Mutable[V, O], R, M, O any] struct {
	factory *leftright.Factory[*table.Table[K, V, R, M, O]]
}

// Handle returns a new read handle.
func (f *ReadHandleFactory[K, V, R, M, O]) Handle() *ReadHandle[K, V, R, M, O] {
	return &ReadHandle[K, V, R, M, O]{handle: f.factory.Handle()}
}
