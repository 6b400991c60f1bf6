// Package quote provides the feed's data source: point-in-time quote snapshots
// for ticker symbols.
//
// The Synthetic source walks each price of a fixed universe with a geometric
// Brownian motion step per fetch and sleeps for an artificial latency before
// answering, so callers experience a slow upstream. Remote fetches from an
// upstream REST endpoint instead, and Handler exposes any Source over REST so
// one feed can act as another's upstream.
//
// Failures carry an HTTP-style status code in *Error; StatusCode and Message
// resolve any error to what a client should see.
package quote
