// Package testutil provides testing utilities for svmap.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source, instrumented payloads that count
// constructions and releases, and a reference model for checking that the
// published view of a map matches a plain single-threaded map.
//
// # Instrumented Payloads
//
//	tr := testutil.NewTracker()
//	blob := tr.NewBlob(42)   // counted construction
//	// ... insert, remove, publish, close ...
//	tr.AssertBalanced(t)     // every blob released exactly once
//
// # Reference Model
//
//	rng := testutil.NewRNG(seed)
//	steps := rng.Script(500, 16)
//	model := testutil.NewModel()
//	for _, s := range steps {
//	    model.Apply(s)
//	}
package testutil
