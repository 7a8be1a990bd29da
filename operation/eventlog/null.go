package eventlog

import "context"

// NullEmitter discards every event. It is the zero-overhead default for
// code that doesn't wire up logging.
type NullEmitter struct{}

// NewNullEmitter returns a NullEmitter.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

// Emit implements Emitter and discards event.
func (*NullEmitter) Emit(Event) {}

// EmitBatch implements Emitter and discards every event.
func (*NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

// Flush implements Emitter; always a no-op.
func (*NullEmitter) Flush(context.Context) error { return nil }
