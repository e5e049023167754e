package leftright

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sys/cpu"
)

const (
	// spinRounds is how often the writer yields before it parks.
	spinRounds = 64
	// parkTimeout bounds a single park so a lost wake-up only costs latency.
	parkTimeout = time.Millisecond
)

// epoch is a reader's generation counter. It is odd while the reader is
// inside a snapshot and even otherwise. It is never reset, so a slot can be
// handed to a new reader without confusing a concurrent waiter.
type epoch struct {
	_ cpu.CacheLinePad
	n atomic.Uint64
	_ cpu.CacheLinePad
}

func (e *epoch) active() bool { return e.n.Load()&1 == 1 }

// registry holds every reader's epoch slot.
type registry struct {
	mu    sync.Mutex
	slots []*epoch
	free  *roaring.Bitmap

	// waiting is set while the writer is parked in wait.
	waiting atomic.Bool
	wake    chan struct{}
}

func newRegistry() *registry {
	return &registry{
		free: roaring.New(),
		wake: make(chan struct{}, 1),
	}
}

// register hands out the lowest free slot, growing the table if needed.
func (r *registry) register() (uint32, *epoch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.free.IsEmpty() {
		id := r.free.Minimum()
		r.free.Remove(id)
		return id, r.slots[id]
	}

	e := &epoch{}
	r.slots = append(r.slots, e)
	return uint32(len(r.slots) - 1), e
}

// deregister returns a slot to the free set. The slot must be inactive.
func (r *registry) deregister(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slots[id].active() {
		panic("leftright: releasing a reader slot that is inside a snapshot")
	}
	r.free.Add(id)
}

// readers returns the number of registered (not freed) slots.
func (r *registry) readers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots) - int(r.free.GetCardinality())
}

// mark records the epoch of every slot that is currently inside a snapshot.
func (r *registry) mark() map[*epoch]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var busy map[*epoch]uint64
	for _, e := range r.slots {
		if n := e.n.Load(); n&1 == 1 {
			if busy == nil {
				busy = make(map[*epoch]uint64)
			}
			busy[e] = n
		}
	}
	return busy
}

// drained drops every slot that has moved past its marked epoch and reports
// whether none are left.
func drained(busy map[*epoch]uint64) bool {
	for e, n := range busy {
		if e.n.Load() != n {
			delete(busy, e)
		}
	}
	return len(busy) == 0
}

// wait blocks until every reader marked by mark has left its snapshot.
func (r *registry) wait(busy map[*epoch]uint64) {
	if drained(busy) {
		return
	}
	for range spinRounds {
		runtime.Gosched()
		if drained(busy) {
			return
		}
	}

	timer := time.NewTimer(parkTimeout)
	defer timer.Stop()
	for {
		r.waiting.Store(true)
		if drained(busy) {
			r.waiting.Store(false)
			return
		}
		select {
		case <-r.wake:
		case <-timer.C:
		}
		r.waiting.Store(false)
		if drained(busy) {
			return
		}
		timer.Reset(parkTimeout)
	}
}

// notify wakes a parked writer. Called by readers after leaving a snapshot.
func (r *registry) notify() {
	if !r.waiting.Load() {
		return
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
}
