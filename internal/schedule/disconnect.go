package schedule

import (
	"sync"
	"time"

	"github.com/rickgao/stockfeed/internal/rng"
)

// Disconnect is a one-shot forced-close timer. It is never re-armed.
type Disconnect struct {
	delay time.Duration
	timer *time.Timer

	mu      sync.Mutex
	stopped bool
	fired   bool
}

// DisconnectDelay draws a dwell time in [DisconnectMin, DisconnectMax).
func DisconnectDelay(cfg Config, src rng.Source) time.Duration {
	return rng.DurationBetween(src, cfg.DisconnectMin, cfg.DisconnectMax)
}

// ArmDisconnect schedules fire to run once after a random dwell time.
func ArmDisconnect(cfg Config, src rng.Source, fire func()) *Disconnect {
	if src == nil {
		src = rng.New(0)
	}
	return armAfter(DisconnectDelay(cfg, src), fire)
}

func armAfter(delay time.Duration, fire func()) *Disconnect {
	d := &Disconnect{delay: delay}
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		d.fired = true
		d.mu.Unlock()
		fire()
	})
	return d
}

// Delay returns the dwell time the timer was armed with.
func (d *Disconnect) Delay() time.Duration {
	return d.delay
}

// Stop cancels the timer. It reports whether the call prevented the fire, and
// is safe to call repeatedly or after the timer fired.
func (d *Disconnect) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || d.fired {
		return false
	}
	d.stopped = true
	d.timer.Stop()
	return true
}

// Pending reports whether the timer is still armed.
func (d *Disconnect) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.stopped && !d.fired
}
