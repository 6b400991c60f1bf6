// Package probe classifies frames received from the feed so an operator can
// see chaos take effect: corrupted payloads, duplicates, out-of-order quotes,
// dropped heartbeats and forced resets.
package probe
