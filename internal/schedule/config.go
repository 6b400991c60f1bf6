package schedule

import "time"

// Config holds scheduling constants shared by every session.
type Config struct {
	SpikeProbability float64       // Chance an idle scheduler enters a spike
	SpikeDuration    time.Duration // How long a spike lasts
	SpikeInterval    time.Duration // Base interval while spiking

	JitterMin float64 // Lower jitter factor
	JitterMax float64 // Upper jitter factor

	MinDelay time.Duration // Floor for any computed delay
	MaxDelay time.Duration // Ceiling for any computed delay

	DisconnectMin time.Duration // Earliest forced disconnect after accept
	DisconnectMax time.Duration // Latest forced disconnect (exclusive)
}

// DefaultConfig returns the production schedule.
func DefaultConfig() Config {
	return Config{
		SpikeProbability: 0.05,
		SpikeDuration:    8 * time.Second,
		SpikeInterval:    75 * time.Millisecond,
		JitterMin:        0.9,
		JitterMax:        1.1,
		MinDelay:         400 * time.Millisecond,
		MaxDelay:         10 * time.Second,
		DisconnectMin:    45 * time.Second,
		DisconnectMax:    120 * time.Second,
	}
}
