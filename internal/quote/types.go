package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Source returns the current quote for a symbol.
type Source interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// Quote is a snapshot of one symbol. Prices are rounded to cents.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	Volume        int64           `json:"volume"`
	Timestamp     int64           `json:"timestamp"` // Unix milliseconds
}

// Error is a data source failure with a status code.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("quote error %d: %s", e.StatusCode, e.Message)
}

// ErrUnknownSymbol matches any not-found *Error via errors.Is.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Is lets errors.Is(err, ErrUnknownSymbol) match 404 errors.
func (e *Error) Is(target error) bool {
	return target == ErrUnknownSymbol && e.StatusCode == http.StatusNotFound
}

// StatusCode returns the status carried by err, or 500 when it carries none.
func StatusCode(err error) int {
	var qe *Error
	if errors.As(err, &qe) && qe.StatusCode > 0 {
		return qe.StatusCode
	}
	return http.StatusInternalServerError
}

// Message returns a client-facing description of err.
func Message(err error) string {
	var qe *Error
	if errors.As(err, &qe) && qe.Message != "" {
		return qe.Message
	}
	return "Failed to fetch stock data"
}
