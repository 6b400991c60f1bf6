// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - WebSocket session counts and accept/reject outcomes
//   - Outbound message rates by type and skipped writes after close
//   - Chaos effects applied, by kind
//   - Forced disconnects and quote fetch latency
//   - Session journal throughput and drops
package metrics
