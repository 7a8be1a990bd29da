package operation

import "time"

// StalePredicate reports whether a value last updated at lastUpdated (None
// if there has never been a value) should be considered stale as of now.
type StalePredicate func(lastUpdated Option[time.Time], now time.Time) bool

// StaleAfter returns a StalePredicate that considers a value stale once d
// has elapsed since it was last updated, and stale immediately if there
// has never been a value.
func StaleAfter(d time.Duration) StalePredicate {
	return func(lastUpdated Option[time.Time], now time.Time) bool {
		t, ok := lastUpdated.Get()
		if !ok {
			return true
		}
		return now.Sub(t) >= d
	}
}

type staleModifier[V any] struct {
	predicate StalePredicate
}

// Stale returns a Modifier that registers a staleness predicate for the
// operation. Multiple Stale modifiers compose by OR: the store treats its
// current value as stale if any registered predicate says so. A store with
// no Stale modifier and no prior value is stale by definition; one with no
// Stale modifier but a present value is never considered stale by time
// alone.
func Stale[V any](predicate StalePredicate) Modifier[V] {
	return &staleModifier[V]{predicate: predicate}
}

func (m *staleModifier[V]) Setup(ctx Context) Context {
	existing := Get(ctx, StalePredicatesKey)
	next := make([]StalePredicate, len(existing)+1)
	copy(next, existing)
	next[len(existing)] = m.predicate
	return With(ctx, StalePredicatesKey, next)
}

func (m *staleModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] { return next }

// IsStale evaluates every predicate registered under StalePredicatesKey in
// ctx, OR'd together, against lastUpdated and now.
func IsStale(ctx Context, lastUpdated Option[time.Time], now time.Time) bool {
	predicates := Get(ctx, StalePredicatesKey)
	if len(predicates) == 0 {
		_, ok := lastUpdated.Get()
		return !ok
	}
	for _, p := range predicates {
		if p(lastUpdated, now) {
			return true
		}
	}
	return false
}
