package schedule

import (
	"math"
	"sync"
	"time"

	"github.com/rickgao/stockfeed/internal/rng"
)

// UpdateScheduler computes the delay before a session's next push.
type UpdateScheduler struct {
	cfg Config
	src rng.Source
	now func() time.Time

	mu          sync.Mutex
	inSpike     bool
	spikeEndsAt time.Time
}

// NewUpdateScheduler creates a scheduler in the non-spike state.
func NewUpdateScheduler(cfg Config, src rng.Source) *UpdateScheduler {
	if src == nil {
		src = rng.New(0)
	}
	return &UpdateScheduler{
		cfg: cfg,
		src: src,
		now: time.Now,
	}
}

// Next advances the spike state and returns the jittered delay for a session
// whose requested interval is interval.
func (s *UpdateScheduler) Next(interval time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.inSpike && !now.Before(s.spikeEndsAt) {
		s.inSpike = false
	}
	if !s.inSpike && rng.Chance(s.src, s.cfg.SpikeProbability) {
		s.inSpike = true
		s.spikeEndsAt = now.Add(s.cfg.SpikeDuration)
	}

	base := interval
	if s.inSpike {
		base = s.cfg.SpikeInterval
	}

	factor := rng.FloatBetween(s.src, s.cfg.JitterMin, s.cfg.JitterMax)
	ms := math.Round(float64(base.Milliseconds()) * factor)
	return clamp(time.Duration(ms)*time.Millisecond, s.cfg.MinDelay, s.cfg.MaxDelay)
}

// InSpike reports whether the scheduler is currently spiking.
func (s *UpdateScheduler) InSpike() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inSpike
}

// SpikeEndsAt returns when the current spike expires (zero when never spiked).
func (s *UpdateScheduler) SpikeEndsAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spikeEndsAt
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
