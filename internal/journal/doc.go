// Package journal records session lifecycle events to TimescaleDB.
//
// Events are enqueued without blocking and written in batches with COPY:
//
//	CREATE TABLE session_events (
//	    id          UUID PRIMARY KEY,
//	    session_id  TEXT NOT NULL,
//	    kind        TEXT NOT NULL,
//	    symbol      TEXT NOT NULL,
//	    detail      TEXT NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL
//	);
//
// The journal is an audit trail. Sessions never read it back.
package journal
