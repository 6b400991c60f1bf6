package chaos

import (
	"time"

	"github.com/rickgao/stockfeed/internal/rng"
)

// Plan is the outcome of running delay, corruption and duplication over one
// serialized message.
type Plan struct {
	Payload    []byte        // Bytes to write, possibly corrupted
	Delay      time.Duration // Hold time before the first write (0 = send now)
	Corruption Corruption    // CorruptNone when the payload is intact
	Copies     int           // Number of back-to-back writes (>= 1)
}

// Delayed reports whether the send is held back.
func (p Plan) Delayed() bool { return p.Delay > 0 }

// Corrupted reports whether the payload was mangled.
func (p Plan) Corrupted() bool { return p.Corruption != CorruptNone }

// Duplicated reports whether the payload is written more than once.
func (p Plan) Duplicated() bool { return p.Copies > 1 }

// Injector makes chaos decisions from an immutable Config.
type Injector struct {
	cfg Config
	src rng.Source
}

// NewInjector creates an Injector. A nil source is replaced by a random one.
func NewInjector(cfg Config, src rng.Source) *Injector {
	if src == nil {
		src = rng.New(0)
	}
	return &Injector{cfg: cfg, src: src}
}

// Config returns the injector's configuration.
func (i *Injector) Config() Config {
	return i.cfg
}

// Burst reports whether this tick fans out, and into how many pushes.
func (i *Injector) Burst() (int, bool) {
	if !rng.Chance(i.src, i.cfg.BurstProbability) {
		return 1, false
	}
	return rng.IntBetween(i.src, i.cfg.BurstMin, i.cfg.BurstMax), true
}

// BurstOffset is the start offset of the n-th push (0-based) in a burst.
func (i *Injector) BurstOffset(n int) time.Duration {
	return time.Duration(n) * i.cfg.BurstSpacing
}

// Delay reports whether the send is held back, and for how long.
func (i *Injector) Delay() (time.Duration, bool) {
	if !rng.Chance(i.src, i.cfg.DelayProbability) {
		return 0, false
	}
	d := rng.DurationBetween(i.src, i.cfg.DelayMin, i.cfg.DelayMax)
	if d <= 0 {
		// A zero hold would be indistinguishable from an immediate send.
		d = time.Millisecond
	}
	return d, true
}

// Corrupt possibly mangles payload. The second result is CorruptNone when
// the payload is returned untouched.
func (i *Injector) Corrupt(payload []byte) ([]byte, Corruption) {
	if !rng.Chance(i.src, i.cfg.CorruptProbability) {
		return payload, CorruptNone
	}
	kind := corruptionKinds[i.src.IntN(len(corruptionKinds))]
	return kind.Apply(payload), kind
}

// Copies returns how many times the payload is written.
func (i *Injector) Copies() int {
	if !rng.Chance(i.src, i.cfg.DuplicateProbability) {
		return 1
	}
	n := rng.IntBetween(i.src, i.cfg.DuplicateMin, i.cfg.DuplicateMax)
	if n < 1 {
		n = 1
	}
	return n
}

// DropHeartbeat reports whether a pong reply is silently discarded.
func (i *Injector) DropHeartbeat() bool {
	return rng.Chance(i.src, i.cfg.HeartbeatDropProbability)
}

// Plan runs delay, corruption and duplication over payload, in that order.
// Each decision is independent of the others.
func (i *Injector) Plan(payload []byte) Plan {
	delay, _ := i.Delay()
	out, kind := i.Corrupt(payload)
	return Plan{
		Payload:    out,
		Delay:      delay,
		Corruption: kind,
		Copies:     i.Copies(),
	}
}
