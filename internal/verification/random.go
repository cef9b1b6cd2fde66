package verification

import (
	"math/rand"
	"sync"
	"time"
)

// Random is the source of the simulated bureau draws.
type Random interface {
	// IntRange returns a uniform integer in [lo, hi].
	IntRange(lo, hi int) int
	// Uniform returns a uniform float in [lo, hi).
	Uniform(lo, hi float64) float64
}

type lockedRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a goroutine-safe Random. A zero seed uses the current time.
func NewRandom(seed int64) Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRandom{rng: rand.New(rand.NewSource(seed))}
}

func (r *lockedRandom) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.rng.Intn(hi-lo+1)
}

func (r *lockedRandom) Uniform(lo, hi float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.rng.Float64()*(hi-lo)
}
