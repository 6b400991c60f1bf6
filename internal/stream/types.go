package stream

import (
	"errors"
	"time"

	"github.com/rickgao/stockfeed/internal/chaos"
	"github.com/rickgao/stockfeed/internal/quote"
	"github.com/rickgao/stockfeed/internal/schedule"
)

// Message types.
const (
	TypeReady     = "ready"
	TypePong      = "pong"
	TypeQuote     = "stockQuote"
	TypeError     = "error"
	TypeReset     = "serverReset"
	TypeSubscribe = "subscribe"
	TypePing      = "ping"
)

// Error messages sent to clients.
const (
	MsgInvalidFormat  = "Invalid message format"
	MsgSymbolRequired = "Symbol is required for subscription"
)

// Close frame texts.
const (
	closeTextInvalidPath = "Invalid path"
	closeTextReset       = "Server restart"
	closeTextShutdown    = "Server shutting down"
)

// Close reasons, used as metric labels and journal details.
const (
	reasonClientClosed = "client_closed"
	reasonReadError    = "read_error"
	reasonWriteError   = "write_error"
	reasonServerReset  = "server_reset"
	reasonShutdown     = "shutdown"
)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrServerStopping = errors.New("server stopping")
)

// ReadyMessage acknowledges a new connection.
type ReadyMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PongMessage answers a ping.
type PongMessage struct {
	Type string `json:"type"`
	At   int64  `json:"at"` // Unix milliseconds
}

// QuoteMessage carries one quote for the subscribed symbol.
type QuoteMessage struct {
	Type      string      `json:"type"`
	Symbol    string      `json:"symbol"`
	Data      quote.Quote `json:"data"`
	Timestamp int64       `json:"timestamp"` // Unix milliseconds at send time
}

// ErrorMessage reports a recoverable problem. The connection stays open.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// ResetMessage precedes the scheduled forced close.
type ResetMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// Config contains configuration for the stream server.
type Config struct {
	Path      string // Canonical endpoint
	AliasPath string // Equivalent alternate endpoint

	DefaultInterval time.Duration // Used when intervalMs is missing or malformed
	MinInterval     time.Duration
	MaxInterval     time.Duration

	WriteTimeout time.Duration // Deadline for each frame
	ReadLimit    int64         // Max inbound frame size in bytes

	ReadyMessage string
	ResetReason  string

	Seed uint64 // Derives per-session random sources; 0 = random

	Chaos    chaos.Config
	Schedule schedule.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Path:            "/ws/stocks",
		AliasPath:       "/ws",
		DefaultInterval: 1000 * time.Millisecond,
		MinInterval:     700 * time.Millisecond,
		MaxInterval:     10000 * time.Millisecond,
		WriteTimeout:    5 * time.Second,
		ReadLimit:       4096,
		ReadyMessage:    "Connected to stock stream",
		ResetReason:     "Simulated server restart",
		Chaos:           chaos.DefaultConfig(),
		Schedule:        schedule.DefaultConfig(),
	}
}
