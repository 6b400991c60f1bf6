package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stockfeed/internal/chaos"
	"github.com/rickgao/stockfeed/internal/quote"
	"github.com/rickgao/stockfeed/internal/schedule"
)

// fakeConn records frames written by a session.
type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	controls []int // Close codes
	closes   int
	writeErr error

	reads chan []byte
	done  chan struct{}
	once  sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads: make(chan []byte, 16),
		done:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.reads:
		return 1, data, nil
	case <-c.done:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) WriteControl(_ int, data []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	code := 0
	if len(data) >= 2 {
		code = int(data[0])<<8 | int(data[1])
	}
	c.controls = append(c.controls, code)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) SetReadLimit(int64) {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func (c *fakeConn) closeCodes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.controls...)
}

// messages decodes every frame that is valid JSON.
func (c *fakeConn) messages() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, w := range c.writes {
		var m map[string]any
		if json.Unmarshal(w, &m) == nil {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) messagesOfType(typ string) []map[string]any {
	var out []map[string]any
	for _, m := range c.messages() {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// fakeSource serves a fixed universe with no latency.
type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{calls: make(map[string]int)}
}

func (f *fakeSource) Quote(ctx context.Context, symbol string) (quote.Quote, error) {
	f.mu.Lock()
	f.calls[symbol]++
	err := f.err
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return quote.Quote{}, err
	}
	if err != nil {
		return quote.Quote{}, err
	}
	switch symbol {
	case "AAPL", "MSFT":
	default:
		return quote.Quote{}, &quote.Error{StatusCode: 404, Message: "Stock not found: " + symbol}
	}
	return quote.Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(123.45),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (f *fakeSource) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

var errFakeUpstream = errors.New("upstream unavailable")

// quietConfig returns a config with every chaos effect and spike disabled.
func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Chaos = chaos.Disabled()
	cfg.Schedule = schedule.DefaultConfig()
	cfg.Schedule.SpikeProbability = 0
	return cfg
}

func newTestSession(t *testing.T, cfg Config, src quote.Source) (*session, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	sess := newSession("test-session", &cfg, conn, src, nil, nil, nil)
	t.Cleanup(func() { sess.terminate("test_cleanup") })
	return sess, conn
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
