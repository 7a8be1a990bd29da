package eventlog

import (
	"context"
	"sync"
)

// BufferedEmitter stores every event in memory, organized by path, for
// later inspection (tests, debugging, a dashboard reading recent history).
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// NewBufferedEmitter returns an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit implements Emitter.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.Path] = append(b.events[event.Path], event)
}

// EmitBatch implements Emitter.
func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range events {
		b.events[e.Path] = append(b.events[e.Path], e)
	}
	return nil
}

// Flush implements Emitter; BufferedEmitter holds events in memory with no
// external sink, so this is a no-op.
func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// History returns a copy of every event recorded for path, in emission
// order.
func (b *BufferedEmitter) History(path string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[path]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Clear removes every recorded event for path, or every event if path is
// empty.
func (b *BufferedEmitter) Clear(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if path == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, path)
}
