// Package schedule decides when a session pushes its next quote and when the
// server forcibly resets it.
//
// UpdateScheduler owns a session's spike state: while a spike is active the
// base interval collapses to a short fixed value. Every delay is jittered and
// clamped before it is returned. Disconnect arms a single one-shot timer at a
// random dwell time after accept.
package schedule
