package eventlog

import "context"

// Emitter receives observability events. Implementations must not block
// the run that produced the event for long, and must not panic.
type Emitter interface {
	// Emit sends a single event.
	Emit(event Event)
	// EmitBatch sends multiple events, preserving order.
	EmitBatch(ctx context.Context, events []Event) error
	// Flush blocks until any buffered events have been delivered.
	Flush(ctx context.Context) error
}
