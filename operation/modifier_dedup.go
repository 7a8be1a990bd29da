package operation

import (
	"context"
	"sync"
)

// dedupRegistry tracks the single in-flight run for an operation, shared
// across every store wrapping the same Operation value. Later callers
// join the first caller's run instead of starting their own; cancelling a
// joined caller's own context only stops that caller from waiting, it
// never cancels the shared run (one-way waiter cancellation).
type dedupRegistry[V any] struct {
	mu      sync.Mutex
	pending map[string]*dedupEntry[V]
}

type dedupEntry[V any] struct {
	result Result[V]
	done   chan struct{}
}

func newDedupRegistry[V any]() *dedupRegistry[V] {
	return &dedupRegistry[V]{pending: make(map[string]*dedupEntry[V])}
}

type dedupModifier[V any] struct {
	keyOf func(opCtx Context) string
	reg   *dedupRegistry[V]
}

// Dedup returns a Modifier that collapses concurrent runs sharing the same
// equivalence key into a single underlying run. keyOf computes the
// equivalence key from the run's Context; two runs with equal keys are
// considered duplicates. A nil keyOf treats every run as equivalent
// (single-flight for the whole operation).
func Dedup[V any](keyOf func(opCtx Context) string) Modifier[V] {
	if keyOf == nil {
		keyOf = func(Context) string { return "" }
	}
	return &dedupModifier[V]{keyOf: keyOf, reg: newDedupRegistry[V]()}
}

func (m *dedupModifier[V]) Setup(ctx Context) Context { return ctx }

func (m *dedupModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] {
	return func(ctx context.Context, opCtx Context, cont Continuation[V]) Result[V] {
		key := m.keyOf(opCtx)

		m.reg.mu.Lock()
		if entry, ok := m.reg.pending[key]; ok {
			m.reg.mu.Unlock()
			if flag := Get(opCtx, dedupJoinedKey); flag != nil {
				*flag = true
			}
			select {
			case <-entry.done:
				return entry.result
			case <-ctx.Done():
				return Failed[V](ErrCancelled)
			}
		}
		entry := &dedupEntry[V]{done: make(chan struct{})}
		m.reg.pending[key] = entry
		m.reg.mu.Unlock()

		result := next(ctx, opCtx, cont)

		m.reg.mu.Lock()
		delete(m.reg.pending, key)
		m.reg.mu.Unlock()

		entry.result = result
		close(entry.done)
		return result
	}
}
