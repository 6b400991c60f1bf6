// Package database provides the PostgreSQL connection pool used by the session journal.
//
// The feed itself is stateless; the database only receives session lifecycle
// events when journaling is enabled.
package database
