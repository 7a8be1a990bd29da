package operation

// backoffModifier publishes a BackoffFunc override for inner Retry
// modifiers that didn't specify their own.
type backoffModifier[V any] struct {
	fn BackoffFunc
}

// Backoff returns a Modifier that overrides the ambient BackoffFunc seen
// by any Retry modifier nested inside it that didn't specify its own
// policy.Backoff.
func Backoff[V any](fn BackoffFunc) Modifier[V] {
	return &backoffModifier[V]{fn: fn}
}

func (m *backoffModifier[V]) Setup(ctx Context) Context {
	return With(ctx, BackoffKey, m.fn)
}

func (m *backoffModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] { return next }
