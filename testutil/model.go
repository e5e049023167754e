package testutil

import (
	"maps"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Delta is a deterministic partial update: it adds itself to a Counter.
type Delta int

// Counter is a mutable part that supports Delta updates.
type Counter int

// Mutate implements the mutation capability.
func (c Counter) Mutate(d Delta) Counter { return c + Counter(d) }

// StepKind identifies a scripted step.
type StepKind uint8

const (
	StepInsert StepKind = iota
	StepRemove
	StepClear
	StepMutate
	StepPublish
)

// Step is one scripted writer action.
type Step struct {
	Kind  StepKind
	Key   string
	Ref   int
	Mut   int
	Delta Delta
}

// ModelValue is what the reference model stores per key.
type ModelValue struct {
	Ref int
	Mut Counter
}

// Model is the single-threaded reference map. It tracks both the pending
// state (every applied step) and the published state (as of the last
// StepPublish).
type Model struct {
	pending   map[string]ModelValue
	published map[string]ModelValue
	everPub   bool
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		pending:   make(map[string]ModelValue),
		published: make(map[string]ModelValue),
	}
}

// Apply applies s.
func (m *Model) Apply(s Step) {
	switch s.Kind {
	case StepInsert:
		m.pending[s.Key] = ModelValue{Ref: s.Ref, Mut: Counter(s.Mut)}
	case StepRemove:
		delete(m.pending, s.Key)
	case StepClear:
		clear(m.pending)
	case StepMutate:
		if v, ok := m.pending[s.Key]; ok {
			v.Mut = v.Mut.Mutate(s.Delta)
			m.pending[s.Key] = v
		}
	case StepPublish:
		m.published = maps.Clone(m.pending)
		m.everPub = true
	}
}

// Published returns the state a reader must observe.
func (m *Model) Published() map[string]ModelValue {
	return m.published
}

// EverPublished reports whether a StepPublish has been applied.
func (m *Model) EverPublished() bool {
	return m.everPub
}

// Tracker counts constructions and releases of Blob payloads.
type Tracker struct {
	created  atomic.Int64
	released atomic.Int64

	mu   sync.Mutex
	live map[*Blob]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{live: make(map[*Blob]struct{})}
}

// NewBlob constructs a tracked payload.
func (t *Tracker) NewBlob(v int) *Blob {
	b := &Blob{Value: v, tracker: t}
	t.created.Add(1)
	t.mu.Lock()
	t.live[b] = struct{}{}
	t.mu.Unlock()
	return b
}

// Created returns the number of constructed blobs.
func (t *Tracker) Created() int64 { return t.created.Load() }

// Released returns the number of released blobs.
func (t *Tracker) Released() int64 { return t.released.Load() }

// Live returns the number of constructed but unreleased blobs.
func (t *Tracker) Live() int64 { return t.created.Load() - t.released.Load() }

// AssertBalanced checks that every constructed blob was released exactly once.
func (t *Tracker) AssertBalanced(tb testing.TB) {
	tb.Helper()
	assert.Equal(tb, t.Created(), t.Released(), "created and released blobs differ")
	t.mu.Lock()
	defer t.mu.Unlock()
	assert.Empty(tb, t.live, "blobs never released")
}

// Blob is an instrumented reference payload.
type Blob struct {
	Value int

	tracker  *Tracker
	released atomic.Int32
}

// Release implements the release hook. A second release panics.
func (b *Blob) Release() {
	if b.released.Add(1) != 1 {
		panic("testutil: blob released twice")
	}
	b.tracker.released.Add(1)
	b.tracker.mu.Lock()
	delete(b.tracker.live, b)
	b.tracker.mu.Unlock()
}

// IsReleased reports whether the blob has been released.
func (b *Blob) IsReleased() bool { return b.released.Load() != 0 }
