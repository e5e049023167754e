// Package svmap provides a concurrent, read-mostly map built on the
// left-right technique.
//
// Any number of reader goroutines look values up without locks and without
// ever waiting for the writer. A single writer goroutine mutates the map and
// makes batches of changes visible atomically with Publish.
//
// # Quick Start
//
//	w, r := svmap.New[string, svmap.Unit, int, svmap.NoOp]()
//
//	w.Insert("x", 42, svmap.Unit{})
//	r.Get("x")  // absent: nothing published yet
//	w.Publish()
//	r.Get("x")  // Value{Ref: 42}
//
// # How It Works
//
// The map is kept in two copies. Readers access the published copy through an
// atomic pointer. The writer applies each operation to its private copy at
// once and appends it to an operation log. Publish swaps the two copies, waits
// until readers still inside the old copy have left, and replays the log onto
// it so that both copies are identical again.
//
// Memory cost is two maps. Write cost is every operation applied twice.
//
// # Values
//
// A stored value has two halves:
//
//   - Mut (type V) is owned by each copy separately and can be updated in
//     place with Mutate. Mutate operations are replayed on the second copy,
//     so V.Mutate must be deterministic.
//   - Ref (type R) is a payload shared by both copies instead of being
//     cloned. If R implements Releaser, Release is called exactly once,
//     after the entry has left both copies and no snapshot can see it.
//     The map owns every inserted Ref; a Releaser must not be stored under
//     two keys.
//
// ReadHandle.Get returns an unpinned copy of the value: a Releaser payload
// it returns may be released by the next publish. Read such payloads through
// a Snapshot from Enter, which keeps them alive until it is closed.
//
// Maps that do not need partial updates use Unit and NoOp.
//
// # Readers
//
// A ReadHandle is cheap but must not be shared between goroutines: Clone it,
// or hand out a ReadHandleFactory. Enter returns a Snapshot that stays
// consistent until it is closed:
//
//	if s, ok := r.Enter(); ok {
//	    defer s.Close()
//	    for k, v := range s.All() {
//	        fmt.Println(k, v.Ref)
//	    }
//	}
//
// An open snapshot blocks the next Publish. Long iterations over a snapshot
// therefore stall the writer.
//
// # Publishing
//
// Publish is explicit. WithMaxPending publishes automatically once the log
// grows to a threshold, and WithPublishRateLimit together with TryPublish or
// WaitPublish spaces out publishes of a busy writer.
//
// # Caller Obligations
//
//   - exactly one goroutine writes at a time
//   - key equality and V.Mutate are deterministic
//
// Violations are not detected; the two copies silently diverge.
package svmap
