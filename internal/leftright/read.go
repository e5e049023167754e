package leftright

// ReadHandle gives lock-free access to the published copy.
//
// A ReadHandle owns one epoch slot and must not be used by more than one
// goroutine at a time. Use Clone or a Factory to obtain a handle per
// goroutine.
type ReadHandle[T any] struct {
	shared *shared[T]
	id     uint32
	epoch  *epoch
	enters int
	closed bool
}

func newReadHandle[T any](s *shared[T]) *ReadHandle[T] {
	id, e := s.registry.register()
	return &ReadHandle[T]{shared: s, id: id, epoch: e}
}

// Enter pins the published copy until the returned guard is released. It
// reports false once the writer has been closed.
//
// Enter may be nested. A writer publishing while a guard is held blocks
// until every guard of this handle is released.
func (rh *ReadHandle[T]) Enter() (*ReadGuard[T], bool) {
	if rh.closed {
		panic("leftright: enter on closed read handle")
	}

	if rh.enters > 0 {
		h := rh.shared.current.Load()
		if h == nil {
			return nil, false
		}
		rh.enters++
		return &ReadGuard[T]{rh: rh, inner: h.inner}, true
	}

	// The epoch must be odd before the pointer is loaded, so a writer that
	// swaps after our load is guaranteed to see us.
	rh.epoch.n.Add(1)
	h := rh.shared.current.Load()
	if h == nil {
		rh.epoch.n.Add(1)
		rh.shared.registry.notify()
		return nil, false
	}
	rh.enters = 1
	return &ReadGuard[T]{rh: rh, inner: h.inner}, true
}

// WriterClosed reports whether the writer has been closed.
func (rh *ReadHandle[T]) WriterClosed() bool {
	return rh.shared.current.Load() == nil
}

// Clone returns an independent handle to the same pair.
func (rh *ReadHandle[T]) Clone() *ReadHandle[T] {
	return newReadHandle(rh.shared)
}

// Factory returns a factory sharing this handle's pair.
func (rh *ReadHandle[T]) Factory() *Factory[T] {
	return &Factory[T]{shared: rh.shared}
}

// Close releases the handle's epoch slot. It reports false if the handle was
// already closed. Closing a handle with an outstanding guard panics.
func (rh *ReadHandle[T]) Close() bool {
	if rh.closed {
		return false
	}
	if rh.enters > 0 {
		panic("leftright: close of read handle with outstanding guard")
	}
	rh.closed = true
	rh.shared.registry.deregister(rh.id)
	return true
}

func (rh *ReadHandle[T]) exit() {
	rh.enters--
	if rh.enters == 0 {
		rh.epoch.n.Add(1)
		rh.shared.registry.notify()
	}
}

// ReadGuard pins one copy for reading.
type ReadGuard[T any] struct {
	rh       *ReadHandle[T]
	inner    T
	released bool
}

// Get returns the pinned copy. It must not be used after Release.
func (g *ReadGuard[T]) Get() T {
	if g.released {
		panic("leftright: use of released read guard")
	}
	return g.inner
}

// Release unpins the copy. Further calls are no-ops.
func (g *ReadGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	var zero T
	g.inner = zero
	g.rh.exit()
}

// Factory creates read handles. It is safe for concurrent use.
type Factory[T any] struct {
	shared *shared[T]
}

// Handle returns a new read handle.
func (f *Factory[T]) Handle() *ReadHandle[T] {
	return newReadHandle(f.shared)
}
