package probe

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Class is the classification of one received frame.
type Class string

const (
	ClassReady      Class = "ready"
	ClassQuote      Class = "quote"
	ClassPong       Class = "pong"
	ClassError      Class = "error"
	ClassReset      Class = "reset"
	ClassCorrupted  Class = "corrupted"
	ClassDuplicate  Class = "duplicate"
	ClassOutOfOrder Class = "out_of_order"
	ClassOther      Class = "other"
)

// DefaultWindow is how many recent quote payloads are kept for duplicate detection.
const DefaultWindow = 64

type frame struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Timestamp int64  `json:"timestamp"`
}

// Tally counts frames by class. It is safe for concurrent use.
type Tally struct {
	mu     sync.Mutex
	counts map[Class]int
	total  int

	window int
	recent []string         // Ring of recent quote payloads
	seen   map[string]int   // Payload -> occurrences in recent
	last   map[string]int64 // Symbol -> newest quote timestamp
}

// NewTally creates a Tally that remembers the last window quote payloads.
func NewTally(window int) *Tally {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tally{
		counts: make(map[Class]int),
		window: window,
		seen:   make(map[string]int),
		last:   make(map[string]int64),
	}
}

// Observe classifies data and records it.
func (t *Tally) Observe(data []byte) Class {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.classify(data)
	t.counts[c]++
	t.total++
	return c
}

func (t *Tally) classify(data []byte) Class {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil || f.Type == "" {
		return ClassCorrupted
	}

	switch f.Type {
	case "ready":
		return ClassReady
	case "pong":
		return ClassPong
	case "error":
		return ClassError
	case "serverReset":
		// Sessions restart from scratch after a reset.
		t.last = make(map[string]int64)
		return ClassReset
	case "stockQuote":
	default:
		return ClassOther
	}

	key := string(data)
	if t.seen[key] > 0 {
		return ClassDuplicate
	}
	t.remember(key)

	if prev, ok := t.last[f.Symbol]; ok && f.Timestamp < prev {
		return ClassOutOfOrder
	}
	t.last[f.Symbol] = f.Timestamp
	return ClassQuote
}

func (t *Tally) remember(key string) {
	t.recent = append(t.recent, key)
	t.seen[key]++
	if len(t.recent) > t.window {
		old := t.recent[0]
		t.recent = t.recent[1:]
		if t.seen[old]--; t.seen[old] <= 0 {
			delete(t.seen, old)
		}
	}
}

// Count returns the number of frames observed in class c.
func (t *Tally) Count(c Class) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[c]
}

// Total returns the number of frames observed.
func (t *Tally) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Snapshot returns a copy of the counts.
func (t *Tally) Snapshot() map[Class]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Class]int, len(t.counts))
	for c, n := range t.counts {
		out[c] = n
	}
	return out
}

// String formats the counts in a fixed order.
func (t *Tally) String() string {
	snap := t.Snapshot()
	order := []Class{ClassReady, ClassQuote, ClassPong, ClassError, ClassReset,
		ClassCorrupted, ClassDuplicate, ClassOutOfOrder, ClassOther}
	parts := make([]string, 0, len(order))
	for _, c := range order {
		parts = append(parts, fmt.Sprintf("%s=%d", c, snap[c]))
	}
	return strings.Join(parts, " ")
}
