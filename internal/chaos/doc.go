// Package chaos decides how an outbound feed message is mistreated before it
// reaches the client.
//
// Each scheduled quote push is evaluated in a fixed order:
//   - Burst: fan the tick out into N independent pushes spaced a few ms apart
//   - Delay: hold the send for a random out-of-order window
//   - Corrupt: mangle the serialized payload with one of four transforms
//   - Duplicate: write the payload two or three times back to back
//
// Heartbeat drops apply to pong replies only. Every effect draws from the
// injected rng.Source, so a scripted source reproduces any scenario exactly.
package chaos
