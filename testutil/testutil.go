package testutil

import (
	"fmt"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Key returns one of n distinct keys ("k0" .. "k{n-1}").
func (r *RNG) Key(n int) string {
	return fmt.Sprintf("k%d", r.Intn(n))
}

// Script generates a random sequence of steps over keySpace keys.
// Inserts dominate so that the map does not stay empty.
func (r *RNG) Script(length, keySpace int) []Step {
	r.mu.Lock()
	defer r.mu.Unlock()

	steps := make([]Step, 0, length)
	for range length {
		key := fmt.Sprintf("k%d", r.rand.Intn(keySpace))
		var s Step
		switch p := r.rand.Intn(100); {
		case p < 45:
			s = Step{Kind: StepInsert, Key: key, Ref: r.rand.Intn(1000), Mut: r.rand.Intn(1000)}
		case p < 65:
			s = Step{Kind: StepRemove, Key: key}
		case p < 67:
			s = Step{Kind: StepClear}
		case p < 85:
			s = Step{Kind: StepMutate, Key: key, Delta: Delta(r.rand.Intn(21) - 10)}
		default:
			s = Step{Kind: StepPublish}
		}
		steps = append(steps, s)
	}
	return steps
}
