// Package rng provides the seedable random source shared by the chaos injector,
// the schedulers and the synthetic quote source.
package rng

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the subset of *rand.Rand the feed depends on.
// Implementations must be safe for concurrent use.
type Source interface {
	Float64() float64
	IntN(n int) int
	NormFloat64() float64
}

// lockedSource guards a *rand.Rand, which is not safe for concurrent use.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a PCG-backed source. A zero seed picks a random one.
func New(seed uint64) Source {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

func (s *lockedSource) NormFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.NormFloat64()
}

// Chance reports true with probability p. p <= 0 never draws from src.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	return src.Float64() < p
}

// IntBetween returns a uniform integer in [lo, hi].
func IntBetween(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// FloatBetween returns a uniform float in [lo, hi).
func FloatBetween(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// DurationBetween returns a uniform duration in [lo, hi).
func DurationBetween(src Source, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(src.Float64()*float64(hi-lo))
}
