package rng

import "sync"

// Scripted replays fixed values in order, cycling when exhausted. It makes chaos
// and scheduling decisions reproducible in tests.
type Scripted struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
	Norms  []float64
	fi     int
	ii     int
	ni     int
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.fi%len(s.Floats)]
	s.fi++
	return v
}

// IntN returns the next scripted int reduced modulo n.
func (s *Scripted) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 || n <= 0 {
		return 0
	}
	v := s.Ints[s.ii%len(s.Ints)]
	s.ii++
	return v % n
}

func (s *Scripted) NormFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Norms) == 0 {
		return 0
	}
	v := s.Norms[s.ni%len(s.Norms)]
	s.ni++
	return v
}
