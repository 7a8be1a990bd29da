package operation

// Controller is the long-lived handle a run body can pull out of its
// Context to reach back into the store driving it: publish a value without
// waiting for the run to return, trigger another run, discard all state,
// or inspect the store's current shape. Every Store implements Controller
// for its own value type.
type Controller[V any] interface {
	// Yield publishes an intermediate, non-final result immediately,
	// equivalent to calling the run's Continuation but reachable from
	// code that doesn't have the Continuation value in scope.
	Yield(r Result[V])
	// Refetch schedules a new run of the operation without waiting for
	// the current one to finish.
	Refetch()
	// ResetState discards the current state and cancels every active
	// task, as if the store had just been created.
	ResetState()
	// Context returns the store's current Context.
	Context() Context
	// SubscriberCount returns the number of currently active
	// subscriptions.
	SubscriberCount() int
	// IsStale reports whether the store's current value is stale per its
	// registered StalePredicates.
	IsStale() bool
}

var controllerKey = Key[any]{id: keyController, Default: nil}

// withController publishes ctrl into ctx under the well-known controller
// slot, overwriting any controller installed by an outer store.
func withController[V any](ctx Context, ctrl Controller[V]) Context {
	return With(ctx, controllerKey, any(ctrl))
}

// CurrentController retrieves the Controller installed by the store
// driving the current run, if ctx was produced by one.
func CurrentController[V any](ctx Context) (Controller[V], bool) {
	raw := Get(ctx, controllerKey)
	if raw == nil {
		var zero Controller[V]
		return zero, false
	}
	ctrl, ok := raw.(Controller[V])
	return ctrl, ok
}
