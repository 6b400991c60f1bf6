// Package stream serves the simulated quote feed over WebSocket.
//
// Server is an http.Handler that accepts connections on two equivalent paths
// (canonical and alias) and runs one session per connection. Any other path is
// upgraded and immediately closed with 1008 (policy violation).
//
// A session owns the subscription state for its connection:
//
//   - symbol: trimmed and uppercased; empty means unsubscribed
//   - interval: clamped to [MinInterval, MaxInterval]; malformed values fall back to DefaultInterval
//   - at most one update cycle, cancelled through a single context.CancelFunc
//   - one forced-disconnect timer armed on accept and never re-armed
//
// Subscribing pushes one quote immediately without chaos and then loops on the
// update scheduler. Scheduled pushes run through the chaos injector, which may
// fan them out into bursts, delay, corrupt or duplicate them. Those callbacks
// cannot be recalled, so every write re-checks the closed flag under the write
// mutex.
//
// Inbound control messages:
//
//	{"type":"subscribe","symbol":"AAPL","intervalMs":1000}
//	{"type":"ping"}
//
// Outbound messages: ready, pong, stockQuote, error, serverReset.
package stream
