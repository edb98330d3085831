package app

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the subset of *rand.Rand the engine draws from.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedRand makes a *rand.Rand safe for concurrent quiz starts.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

// NewSeededRand returns a concurrency-safe Rand with a fixed seed.
func NewSeededRand(seed int64) Rand {
	return newLockedRand(seed)
}

func defaultRand() *lockedRand {
	return newLockedRand(time.Now().UnixNano())
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rnd.Shuffle(n, swap)
}

// sample returns k values drawn uniformly without replacement.
func sample[T any](rnd Rand, values []T, k int) []T {
	if k > len(values) {
		k = len(values)
	}
	pool := append([]T(nil), values...)
	for i := 0; i < k; i++ {
		j := i + rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
