package svmap

import (
	"bytes"
	"log/slog"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/hupe1980/svmap/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type decrement int

type gauge int

func (g gauge) Mutate(d decrement) gauge { return g - gauge(d) }

func TestScenarioInsertRemove(t *testing.T) {
	w, r := New[string, Unit, int, NoOp]()

	w.Insert("x", 42, Unit{})
	w.Publish()

	v, ok := r.Get("x")
	require.True(t, ok)
	assert.Equal(t, 42, v.Ref)

	w.Remove("x")
	v, ok = r.Get("x")
	require.True(t, ok, "remove is not visible before publish")
	assert.Equal(t, 42, v.Ref)

	w.Publish()
	_, ok = r.Get("x")
	assert.False(t, ok)
}

func TestScenarioMutate(t *testing.T) {
	w, r := New[string, gauge, int, decrement]()

	w.Insert("k", 5, 10)
	w.Publish()

	w.Mutate("k", 2)
	w.Publish()

	v, ok := r.Get("k")
	require.True(t, ok)
	assert.Equal(t, gauge(8), v.Mut)
	assert.Equal(t, 5, v.Ref)

	// Both copies converge: after another publish the writer's copy agrees.
	w.Publish()
	v, _ = r.Get("k")
	assert.Equal(t, gauge(8), v.Mut)
}

func TestMutateMissingKeyIsNoop(t *testing.T) {
	w, r := New[string, gauge, int, decrement]()
	w.Mutate("missing", 1)
	w.Publish()

	assert.False(t, r.ContainsKey("missing"))
	assert.True(t, r.IsEmpty())
}

func TestUnavailableBeforeFirstPublish(t *testing.T) {
	w, r := New[string, Unit, int, NoOp]()

	_, ok := r.Enter()
	assert.False(t, ok)
	assert.False(t, r.Available())
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.IsEmpty())
	_, ok = r.Meta()
	assert.False(t, ok)
	assert.False(t, w.HasPending())

	w.Publish()

	assert.True(t, r.IsEmpty())

	s, ok := r.Enter()
	require.True(t, ok)
	defer s.Close()
	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, s.Len())
}

func TestEmptyPublishIsIdempotent(t *testing.T) {
	w, r := New[string, gauge, int, decrement]()
	w.Insert("a", 1, 1)
	w.Insert("b", 2, 2)
	w.Publish()

	before := collect(t, r)
	w.Publish()
	w.Publish()
	assert.Equal(t, before, collect(t, r))
	assert.False(t, w.HasPending())
}

func TestHasPending(t *testing.T) {
	w, _ := New[string, Unit, int, NoOp]()
	assert.False(t, w.HasPending())

	w.Insert("a", 1, Unit{})
	assert.True(t, w.HasPending())
	assert.Equal(t, 1, w.Pending())

	w.Publish()
	assert.False(t, w.HasPending())

	w.Remove("a")
	w.Clear()
	assert.Equal(t, 2, w.Pending())
}

func TestClearAndReinsert(t *testing.T) {
	w, r := New[string, Unit, int, NoOp]()
	w.Insert("a", 1, Unit{})
	w.Insert("b", 2, Unit{})
	w.Publish()
	require.Equal(t, 2, r.Len())

	w.Clear()
	w.Insert("c", 3, Unit{})
	assert.Equal(t, 2, r.Len())

	w.Publish()
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.ContainsKey("c"))
	assert.False(t, r.ContainsKey("a"))
}

func TestMeta(t *testing.T) {
	w, r := NewWithMeta[string, Unit, int, NoOp]("v1")
	w.Publish()

	m, ok := r.Meta()
	require.True(t, ok)
	assert.Equal(t, "v1", m)

	w.SetMeta("v2")
	m, _ = r.Meta()
	assert.Equal(t, "v1", m)

	w.Publish()
	m, _ = r.Meta()
	assert.Equal(t, "v2", m)

	// The writer's embedded reader sees the published state too.
	m, _ = w.Meta()
	assert.Equal(t, "v2", m)
}

func TestExtend(t *testing.T) {
	w, r := New[string, gauge, int, decrement](WithCapacity(16))
	w.Extend(maps.All(map[string]Value[gauge, int]{
		"a": {Mut: 1, Ref: 10},
		"b": {Mut: 2, Ref: 20},
	}))
	w.Publish()

	assert.Equal(t, 2, r.Len())
	v, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, Value[gauge, int]{Mut: 2, Ref: 20}, v)
}

func TestSnapshotIterators(t *testing.T) {
	w, r := New[string, gauge, int, decrement]()
	for i, k := range []string{"a", "b", "c"} {
		w.Insert(k, i, gauge(i*10))
	}
	w.Publish()

	s, ok := r.Enter()
	require.True(t, ok)
	defer s.Close()

	keys := slices.Sorted(s.Keys())
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	// Restartable.
	assert.Equal(t, keys, slices.Sorted(s.Keys()))

	refs := make([]int, 0, 3)
	for v := range s.Values() {
		refs = append(refs, v.Ref)
	}
	slices.Sort(refs)
	assert.Equal(t, []int{0, 1, 2}, refs)

	all := maps.Collect(s.All())
	assert.Equal(t, Value[gauge, int]{Mut: 10, Ref: 1}, all["b"])

	// Early break.
	n := 0
	for range s.All() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestSnapshotIsStable(t *testing.T) {
	w, r := New[string, Unit, int, NoOp]()
	w.Insert("a", 1, Unit{})
	w.Publish()

	s, ok := r.Enter()
	require.True(t, ok)

	// Writes without publish never leak into an open snapshot.
	w.Insert("b", 2, Unit{})
	w.Remove("a")
	assert.True(t, s.ContainsKey("a"))
	assert.False(t, s.ContainsKey("b"))
	s.Close()

	w.Publish()
	s, _ = r.Enter()
	defer s.Close()
	assert.False(t, s.ContainsKey("a"))
	assert.True(t, s.ContainsKey("b"))
}

func TestSnapshotUseAfterClose(t *testing.T) {
	w, r := New[string, Unit, int, NoOp]()
	w.Publish()

	s, ok := r.Enter()
	require.True(t, ok)
	s.Close()
	s.Close()

	assert.PanicsWithValue(t, panicSnapshotClosed, func() { s.Len() })
}

func TestReadHandleCloneAndFactory(t *testing.T) {
	w, r := New[string, Unit, int, NoOp]()
	w.Insert("a", 1, Unit{})
	w.Publish()

	c := r.Clone()
	f := w.Factory()
	h := f.Handle()
	h2 := r.Factory().Handle()

	for _, rh := range []*ReadHandle[string, Unit, int, struct{}, NoOp]{c, h, h2} {
		v, ok := rh.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, v.Ref)
	}

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClosed)
	assert.PanicsWithValue(t, panicReaderClosed, func() { c.Enter() })
	assert.PanicsWithValue(t, panicReaderClosed, func() { c.Clone() })

	// Other handles are unaffected.
	assert.True(t, r.ContainsKey("a"))
}

func TestPayloadReleasedAfterRemoveAndPublish(t *testing.T) {
	tr := testutil.NewTracker()
	w, r := New[string, Unit, *testutil.Blob, NoOp]()

	blob := tr.NewBlob(1)
	w.Insert("a", blob, Unit{})
	w.Publish()

	s, ok := r.Enter()
	require.True(t, ok)
	v, _ := s.Get("a")
	s.Close()
	assert.Same(t, blob, v.Ref)

	w.Remove("a")
	assert.False(t, blob.IsReleased())

	w.Publish()
	assert.True(t, blob.IsReleased())
	tr.AssertBalanced(t)
}

func TestOverwriteReleasesReplacedPayload(t *testing.T) {
	tr := testutil.NewTracker()
	w, r := New[string, Unit, *testutil.Blob, NoOp]()

	old := tr.NewBlob(1)
	w.Insert("a", old, Unit{})
	w.Publish()

	next := tr.NewBlob(2)
	w.Insert("a", next, Unit{})
	w.Publish()
	assert.True(t, old.IsReleased())
	assert.False(t, next.IsReleased())

	v, _ := r.Get("a")
	assert.Same(t, next, v.Ref)

	require.NoError(t, w.Close())
	tr.AssertBalanced(t)
}

func TestReinsertSamePayloadIsNotReleased(t *testing.T) {
	tr := testutil.NewTracker()
	w, r := New[string, Unit, *testutil.Blob, NoOp]()

	blob := tr.NewBlob(1)
	w.Insert("k", blob, Unit{})
	w.Insert("k", blob, Unit{})
	w.Publish()
	assert.False(t, blob.IsReleased())

	w.Insert("k", blob, Unit{})
	w.Publish()
	v, ok := r.Get("k")
	require.True(t, ok)
	assert.Same(t, blob, v.Ref)
	assert.False(t, blob.IsReleased())

	// Both copies still agree after another cycle.
	w.Publish()
	assert.False(t, blob.IsReleased())

	w.Remove("k")
	w.Publish()
	assert.True(t, blob.IsReleased())

	require.NoError(t, w.Close())
	tr.AssertBalanced(t)
}

func TestGetDoesNotPinPayload(t *testing.T) {
	tr := testutil.NewTracker()
	w, r := New[string, Unit, *testutil.Blob, NoOp]()
	w.Insert("a", tr.NewBlob(1), Unit{})
	w.Publish()

	v, ok := r.Get("a")
	require.True(t, ok)

	w.Remove("a")
	w.Publish()
	assert.True(t, v.Ref.IsReleased())

	require.NoError(t, w.Close())
	tr.AssertBalanced(t)
}

func TestPayloadsBeforeFirstPublish(t *testing.T) {
	tr := testutil.NewTracker()
	w, r := New[string, Unit, *testutil.Blob, NoOp]()

	// Replaced and removed before any reader could see them.
	w.Insert("a", tr.NewBlob(1), Unit{})
	w.Insert("a", tr.NewBlob(2), Unit{})
	w.Insert("b", tr.NewBlob(3), Unit{})
	w.Remove("b")
	assert.Equal(t, int64(2), tr.Released())

	w.Publish()
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v.Ref.Value)

	require.NoError(t, w.Close())
	tr.AssertBalanced(t)
}

func TestMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}
	w, _ := New[string, gauge, int, decrement](WithMetricsCollector(mc))

	w.Insert("a", 1, 1)
	w.Mutate("a", 1)
	w.Remove("a")
	w.Clear()
	w.Publish()

	w.Insert("b", 2, 2)
	w.Insert("c", 3, 3)
	w.Publish()
	require.NoError(t, w.Close())

	stats := mc.GetStats()
	assert.Equal(t, int64(3), stats.InsertCount)
	assert.Equal(t, int64(1), stats.MutateCount)
	assert.Equal(t, int64(1), stats.RemoveCount)
	assert.Equal(t, int64(1), stats.ClearCount)
	assert.Equal(t, int64(2), stats.PublishCount)
	assert.Equal(t, int64(2), stats.ReplayedOps)
	assert.Equal(t, int64(1), stats.ReplayAvg)
	assert.True(t, stats.Closed)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).WithName("test")

	w, _ := New[string, Unit, int, NoOp](WithLogger(logger))
	w.Publish()
	w.Insert("a", 1, Unit{})
	w.Publish()
	require.NoError(t, w.Close())

	out := buf.String()
	assert.Contains(t, out, "first publish completed")
	assert.Contains(t, out, "publish completed")
	assert.Contains(t, out, "replayed=1")
	assert.Contains(t, out, "map closed")
	assert.Contains(t, out, "map=test")
}

func TestLoggerLifecycleFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w, r := New[string, Unit, int, NoOp](
		WithLogger(logger),
		WithCapacity(4),
		WithPublishRateLimit(rate.Every(time.Hour), 1),
		WithMaxPending(100),
	)
	w.Insert("a", 1, Unit{})
	require.True(t, w.TryPublish())
	w.Insert("b", 2, Unit{})
	require.False(t, w.TryPublish())
	require.False(t, w.TryPublish())

	assert.False(t, r.WriterClosed())
	require.NoError(t, w.Close())
	assert.True(t, r.WriterClosed())

	out := buf.String()
	assert.Contains(t, out, "map created")
	assert.Contains(t, out, "capacity=4")
	assert.Contains(t, out, "rate_limited=true")
	assert.Contains(t, out, "max_pending=100")
	assert.Contains(t, out, "throttled_total=1")
	assert.Contains(t, out, "throttled_total=2")
	assert.Contains(t, out, "entries=2")
	assert.Contains(t, out, "open_readers=1")
}

func TestNilOptions(t *testing.T) {
	w, r := New[string, Unit, int, NoOp](nil, WithLogger(nil), WithMetricsCollector(nil), WithLogLevel(slog.LevelError))
	w.Insert("a", 1, Unit{})
	w.Publish()
	assert.True(t, r.ContainsKey("a"))
}

func collect[V Mutable[V, O], R, M, O any](t *testing.T, r *ReadHandle[string, V, R, M, O]) map[string]Value[V, R] {
	t.Helper()
	s, ok := r.Enter()
	require.True(t, ok)
	defer s.Close()
	return maps.Collect(s.All())
}
