package cards

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the randomness the allocator needs.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// LockedRand is a goroutine-safe Rand.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand returns a LockedRand seeded with seed. A zero seed uses the clock.
func NewRand(seed int64) *LockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *LockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(n, swap)
}

// ShuffledStrings returns a shuffled copy of s.
func ShuffledStrings(s []string, rng Rand) []string {
	out := append([]string(nil), s...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
