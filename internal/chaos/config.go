package chaos

import "time"

// Config holds the chaos probabilities and ranges. It is read-only once an
// Injector is built from it.
type Config struct {
	BurstProbability float64       // Chance a tick fans out into a burst
	BurstMin         int           // Minimum pushes per burst
	BurstMax         int           // Maximum pushes per burst (inclusive)
	BurstSpacing     time.Duration // Offset between consecutive burst pushes

	DelayProbability float64 // Chance a send is held back
	DelayMin         time.Duration
	DelayMax         time.Duration

	CorruptProbability float64

	DuplicateProbability float64
	DuplicateMin         int // Minimum copies when duplicated
	DuplicateMax         int // Maximum copies when duplicated (inclusive)

	HeartbeatDropProbability float64
}

// DefaultConfig returns the production chaos profile.
func DefaultConfig() Config {
	return Config{
		BurstProbability:         0.10,
		BurstMin:                 5,
		BurstMax:                 15,
		BurstSpacing:             10 * time.Millisecond,
		DelayProbability:         0.05,
		DelayMin:                 100 * time.Millisecond,
		DelayMax:                 500 * time.Millisecond,
		CorruptProbability:       0.03,
		DuplicateProbability:     0.08,
		DuplicateMin:             2,
		DuplicateMax:             3,
		HeartbeatDropProbability: 0.10,
	}
}

// Disabled returns the default ranges with every probability set to zero.
func Disabled() Config {
	cfg := DefaultConfig()
	cfg.BurstProbability = 0
	cfg.DelayProbability = 0
	cfg.CorruptProbability = 0
	cfg.DuplicateProbability = 0
	cfg.HeartbeatDropProbability = 0
	return cfg
}
