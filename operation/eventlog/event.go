// Package eventlog provides pluggable observability event emission for
// the operation engine: runs, retries, and state transitions can be
// logged, buffered for inspection, traced, or discarded entirely.
package eventlog

import "time"

// Event is a single observability event emitted during a store's lifetime.
type Event struct {
	// Path is the string form of the operation's Path.
	Path string
	// Msg names the event kind (e.g. "run_started", "yield", "run_ended").
	Msg string
	// Time is when the event occurred.
	Time time.Time
	// Meta carries event-specific structured data. Common keys:
	//   - "attempt": the retry attempt index
	//   - "error": the error message, if any
	//   - "duration_ms": run duration in milliseconds
	Meta map[string]any
}
