// Package connection implements the probe client used to watch the feed.
//
// A Client holds one WebSocket connection:
//   - Sends JSON control messages (subscribe, ping)
//   - Emits every received frame with a local receive timestamp
//   - Sends application-level pings and reports a stale connection when pongs stop
//   - Reports a 1012 close as ErrServerReset
//
// A Keeper wraps a Client, reconnecting with exponential backoff and
// re-subscribing after every reset.
package connection
