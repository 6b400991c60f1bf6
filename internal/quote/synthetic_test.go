package quote

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instantConfig(seed uint64) Config {
	cfg := DefaultConfig()
	cfg.Seed = seed
	cfg.LatencyMin = 0
	cfg.LatencyMax = 0
	return cfg
}

func TestSynthetic_Quote(t *testing.T) {
	src := NewSynthetic(instantConfig(1), nil)
	fixed := time.UnixMilli(1717425000000)
	src.now = func() time.Time { return fixed }

	q, err := src.Quote(context.Background(), " aapl ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple Inc.", q.Name)
	assert.Equal(t, int64(1717425000000), q.Timestamp)
	assert.True(t, q.Price.IsPositive())
	assert.True(t, q.Low.LessThanOrEqual(q.Price))
	assert.True(t, q.High.GreaterThanOrEqual(q.Price))
	assert.True(t, q.Change.Equal(q.Price.Sub(q.PreviousClose)))
	assert.LessOrEqual(t, q.Price.Exponent(), int32(0))
	assert.GreaterOrEqual(t, q.Price.Exponent(), int32(-2))
}

func TestSynthetic_PricesMove(t *testing.T) {
	src := NewSynthetic(instantConfig(2), nil)
	ctx := context.Background()

	first, err := src.Quote(ctx, "MSFT")
	require.NoError(t, err)

	moved := false
	volume := first.Volume
	for i := 0; i < 50; i++ {
		q, err := src.Quote(ctx, "MSFT")
		require.NoError(t, err)
		if !q.Price.Equal(first.Price) {
			moved = true
		}
		assert.Greater(t, q.Volume, volume)
		volume = q.Volume
	}
	assert.True(t, moved, "price never moved over 50 fetches")
}

func TestSynthetic_UnknownSymbol(t *testing.T) {
	src := NewSynthetic(instantConfig(3), nil)

	_, err := src.Quote(context.Background(), "ZZZZ")
	require.Error(t, err)

	var qe *Error
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, http.StatusNotFound, qe.StatusCode)
	assert.Equal(t, "Stock not found: ZZZZ", qe.Message)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Equal(t, "Stock not found: ZZZZ", Message(err))
}

func TestSynthetic_LatencyHonoursContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LatencyMin = time.Second
	cfg.LatencyMax = 2 * time.Second
	src := NewSynthetic(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := src.Quote(ctx, "AAPL")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSynthetic_Symbols(t *testing.T) {
	src := NewSynthetic(instantConfig(4), nil)
	symbols := src.Symbols()
	assert.Len(t, symbols, len(universe))
	assert.Equal(t, "AAPL", symbols[0])
}

func TestStatusCode_Generic(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, "Failed to fetch stock data", Message(err))
	assert.False(t, errors.Is(err, ErrUnknownSymbol))

	wrapped := &Error{StatusCode: http.StatusServiceUnavailable, Message: "upstream down"}
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(wrapped))
	assert.False(t, errors.Is(wrapped, ErrUnknownSymbol))
}

func TestCents(t *testing.T) {
	assert.True(t, cents(189.845).Equal(decimal.RequireFromString("189.85")))
	assert.True(t, cents(30.9349).Equal(decimal.RequireFromString("30.93")))
}
