package operation

import (
	"context"
	"sync"
	"time"
)

type suspendModifier[V any] struct {
	cond Condition
}

// SuspendOn returns a Modifier that blocks a run from starting until cond
// is satisfied, waking immediately when cond's subscription fires.
func SuspendOn[V any](cond Condition) Modifier[V] {
	return &suspendModifier[V]{cond: cond}
}

func (m *suspendModifier[V]) Setup(ctx Context) Context { return ctx }

func (m *suspendModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] {
	return func(ctx context.Context, opCtx Context, cont Continuation[V]) Result[V] {
		if !m.cond.IsSatisfied(opCtx) {
			woken := make(chan struct{}, 1)
			sub := m.cond.Subscribe(opCtx, func(ok bool) {
				if ok {
					select {
					case woken <- struct{}{}:
					default:
					}
				}
			})
			defer sub.Cancel()
			for !m.cond.IsSatisfied(opCtx) {
				select {
				case <-ctx.Done():
					return Failed[V](ErrCancelled)
				case <-woken:
				}
			}
		}
		return next(ctx, opCtx, cont)
	}
}

// StaleWhen returns a Modifier registering a staleness predicate derived
// from a Condition: the value is considered stale whenever cond is not
// satisfied. The Context cond is evaluated against is the one present at
// store-setup time, since most Conditions (network reachability, a clock
// boundary) depend on external state rather than per-run context.
func StaleWhen[V any](cond Condition) Modifier[V] {
	return &staleWhenModifier[V]{cond: cond}
}

type staleWhenModifier[V any] struct {
	cond Condition
}

func (m *staleWhenModifier[V]) Setup(ctx Context) Context {
	predicate := func(_ Option[time.Time], _ time.Time) bool {
		return !m.cond.IsSatisfied(ctx)
	}
	existing := Get(ctx, StalePredicatesKey)
	next := make([]StalePredicate, len(existing)+1)
	copy(next, existing)
	next[len(existing)] = predicate
	return With(ctx, StalePredicatesKey, next)
}

func (m *staleWhenModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] { return next }

// RefetchOnChange returns a Modifier that triggers onChange when cond
// transitions false->true, but only while the owning store has at least
// one subscriber and its current value is stale. Stores use this to
// schedule an automatic re-run when, for example, network connectivity is
// regained, without refetching data nobody is observing.
func RefetchOnChange[V any](cond Condition, onChange func()) Modifier[V] {
	return &refetchOnChangeModifier[V]{cond: cond, onChange: onChange}
}

type refetchOnChangeModifier[V any] struct {
	cond     Condition
	onChange func()

	mu      sync.Mutex
	lastVal bool
	liveCtx Context
}

func (m *refetchOnChangeModifier[V]) Setup(ctx Context) Context {
	m.cond.Subscribe(ctx, func(v bool) {
		m.mu.Lock()
		transitioned := v && !m.lastVal
		m.lastVal = v
		liveCtx := m.liveCtx
		m.mu.Unlock()

		if !transitioned || m.onChange == nil {
			return
		}
		ctrl, ok := CurrentController[V](liveCtx)
		if !ok || ctrl.SubscriberCount() == 0 || !ctrl.IsStale() {
			return
		}
		m.onChange()
	})
	return ctx
}

// Wrap is otherwise a passthrough, but it keeps track of the most recent
// live opCtx (the one carrying the store's installed Controller) so the
// Setup-time condition subscription, which fires outside of any run, can
// still consult subscriber count and staleness when cond changes.
func (m *refetchOnChangeModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] {
	return func(ctx context.Context, opCtx Context, cont Continuation[V]) Result[V] {
		m.mu.Lock()
		m.liveCtx = opCtx
		m.mu.Unlock()
		return next(ctx, opCtx, cont)
	}
}

// EnableAutomaticExecution returns a Modifier that gates whether a store
// runs its operation automatically on first subscription, via cond
// (published under AutoExecConditionKey for the store to consult).
func EnableAutomaticExecution[V any](cond Condition) Modifier[V] {
	return &autoExecModifier[V]{cond: cond}
}

type autoExecModifier[V any] struct {
	cond Condition
}

func (m *autoExecModifier[V]) Setup(ctx Context) Context {
	return With(ctx, AutoExecConditionKey, m.cond)
}

func (m *autoExecModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] { return next }
