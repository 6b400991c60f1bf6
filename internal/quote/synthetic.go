package quote

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stockfeed/internal/rng"
)

// Config tunes the synthetic source.
type Config struct {
	Seed       uint64        // 0 = random
	LatencyMin time.Duration // Lower bound of artificial latency
	LatencyMax time.Duration // Upper bound of artificial latency
	Drift      float64       // Per-fetch GBM drift
	Volatility float64       // Per-fetch GBM volatility
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LatencyMin: 50 * time.Millisecond,
		LatencyMax: 250 * time.Millisecond,
		Drift:      0,
		Volatility: 0.002,
	}
}

// listing seeds one symbol of the universe.
type listing struct {
	name  string
	price float64
}

var universe = map[string]listing{
	"AAPL":  {"Apple Inc.", 189.84},
	"MSFT":  {"Microsoft Corporation", 415.50},
	"GOOGL": {"Alphabet Inc.", 172.63},
	"AMZN":  {"Amazon.com, Inc.", 183.66},
	"NVDA":  {"NVIDIA Corporation", 118.11},
	"META":  {"Meta Platforms, Inc.", 498.43},
	"TSLA":  {"Tesla, Inc.", 177.48},
	"NFLX":  {"Netflix, Inc.", 640.81},
	"AMD":   {"Advanced Micro Devices, Inc.", 158.36},
	"INTC":  {"Intel Corporation", 30.93},
}

// stockState is the running state of one symbol.
type stockState struct {
	name      string
	prevClose float64
	open      float64
	last      float64
	high      float64
	low       float64
	volume    int64
}

// Synthetic is an in-memory Source with randomized prices and latency.
type Synthetic struct {
	cfg    Config
	src    rng.Source
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	stocks map[string]*stockState
}

// NewSynthetic creates a Synthetic source over the built-in universe.
func NewSynthetic(cfg Config, logger *slog.Logger) *Synthetic {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synthetic{
		cfg:    cfg,
		src:    rng.New(cfg.Seed),
		logger: logger,
		now:    time.Now,
		stocks: make(map[string]*stockState, len(universe)),
	}
	for _, symbol := range s.Symbols() {
		l := universe[symbol]
		// Open within ±1% of the previous close.
		open := l.price * (1 + rng.FloatBetween(s.src, -0.01, 0.01))
		s.stocks[symbol] = &stockState{
			name:      l.name,
			prevClose: l.price,
			open:      open,
			last:      open,
			high:      open,
			low:       open,
			volume:    int64(rng.IntBetween(s.src, 100_000, 2_000_000)),
		}
	}
	return s
}

// Symbols returns the supported symbols in sorted order.
func (s *Synthetic) Symbols() []string {
	out := make([]string, 0, len(universe))
	for symbol := range universe {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Quote waits for the artificial latency, then advances and returns the
// symbol's price.
func (s *Synthetic) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if err := s.wait(ctx); err != nil {
		return Quote{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stocks[symbol]
	if !ok {
		return Quote{}, &Error{
			StatusCode: http.StatusNotFound,
			Message:    "Stock not found: " + symbol,
		}
	}

	s.step(st)
	return s.snapshot(symbol, st), nil
}

// wait sleeps for a latency drawn from the configured window.
func (s *Synthetic) wait(ctx context.Context) error {
	d := rng.DurationBetween(s.src, s.cfg.LatencyMin, s.cfg.LatencyMax)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// step applies one GBM move: S' = S * exp((mu - sigma^2/2) + sigma*Z).
func (s *Synthetic) step(st *stockState) {
	sigma := s.cfg.Volatility
	z := s.src.NormFloat64()
	st.last *= math.Exp((s.cfg.Drift - 0.5*sigma*sigma) + sigma*z)
	if st.last < 0.01 {
		st.last = 0.01
	}
	st.high = math.Max(st.high, st.last)
	st.low = math.Min(st.low, st.last)
	st.volume += int64(rng.IntBetween(s.src, 100, 5_000))
}

func (s *Synthetic) snapshot(symbol string, st *stockState) Quote {
	price := cents(st.last)
	prevClose := cents(st.prevClose)
	change := price.Sub(prevClose)
	pct := decimal.Zero
	if !prevClose.IsZero() {
		pct = change.Div(prevClose).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return Quote{
		Symbol:        symbol,
		Name:          st.name,
		Price:         price,
		Change:        change,
		ChangePercent: pct,
		Open:          cents(st.open),
		High:          cents(st.high),
		Low:           cents(st.low),
		PreviousClose: prevClose,
		Volume:        st.volume,
		Timestamp:     s.now().UnixMilli(),
	}
}

func cents(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}
