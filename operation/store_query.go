package operation

// QueryStore is a Store specialized for a one-shot or repeatable query,
// exposing typed accessors atop the generic Store API.
type QueryStore[V any] struct {
	*Store[V]
	state *QueryState[V]
}

// NewQueryStore builds a QueryStore at path running op, seeded with
// initial (None if the query has no prior value).
func NewQueryStore[V any](path Path, op *Operation[V], initial Option[V], baseCtx Context, clock Clock) *QueryStore[V] {
	if clock == nil {
		clock = SystemClock{}
	}
	state := NewQueryState[V](initial, clock)
	return &QueryStore[V]{
		Store: newStore[V](path, op, state, baseCtx, clock),
		state: state,
	}
}

// CurrentValue returns the query's current successful value, if any.
func (q *QueryStore[V]) CurrentValue() (V, bool) {
	var v V
	var ok bool
	q.WithExclusiveAccess(func() {
		v, ok = q.state.CurrentValue.Get()
	})
	return v, ok
}

// CurrentError returns the query's current error, if any.
func (q *QueryStore[V]) CurrentError() error {
	var err error
	q.WithExclusiveAccess(func() { err = q.state.Error })
	return err
}

// ValueUpdateCount returns how many times CurrentValue has changed due to
// a final result (as opposed to a yielded intermediate value).
func (q *QueryStore[V]) ValueUpdateCount() int {
	var n int
	q.WithExclusiveAccess(func() { n = q.state.ValueUpdateCount })
	return n
}
