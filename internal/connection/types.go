package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrServerReset     = errors.New("server reset")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// SubscribeRequest selects the symbol and update interval for a connection.
type SubscribeRequest struct {
	Type       string `json:"type"` // Always "subscribe"
	Symbol     string `json:"symbol"`
	IntervalMs int    `json:"intervalMs,omitempty"` // 0 = server default
}

// PingRequest asks the server for a pong.
type PingRequest struct {
	Type string `json:"type"` // Always "ping"
}

// envelope is decoded from every frame to spot pongs.
type envelope struct {
	Type string `json:"type"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // Feed URL, e.g. ws://localhost:8080/ws/stocks
	PingInterval time.Duration // How often to send an application ping (0 = never)
	PongTimeout  time.Duration // Max time without a pong before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults. The pong timeout spans
// several pings because the feed drops some heartbeats on purpose.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval: 5 * time.Second,
		PongTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// ReconnectConfig configures a Keeper.
type ReconnectConfig struct {
	BaseWait time.Duration // Wait before the first reconnection attempt
	MaxWait  time.Duration // Cap for exponential backoff
}

// DefaultReconnectConfig returns sensible defaults.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		BaseWait: 500 * time.Millisecond,
		MaxWait:  30 * time.Second,
	}
}
