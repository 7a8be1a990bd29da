package operation

import "context"

// MutationStore is a Store specialized for an argument-driven mutation,
// keeping an invocation History alongside the generic Store API.
type MutationStore[Args any, V any] struct {
	*Store[V]
	state *MutationState[Args, V]
}

// NewMutationStore builds a MutationStore at path running op.
func NewMutationStore[Args any, V any](path Path, op *Operation[V], baseCtx Context, clock Clock) *MutationStore[Args, V] {
	if clock == nil {
		clock = SystemClock{}
	}
	state := NewMutationState[Args, V](clock)
	return &MutationStore[Args, V]{
		Store: newStore[V](path, op, state, baseCtx, clock),
		state: state,
	}
}

// Mutate runs the mutation with args and waits for its result.
func (m *MutationStore[Args, V]) Mutate(ctx context.Context, args Args) (V, error) {
	return m.MutateTask(args).RunIfNeeded(ctx)
}

// MutateTask runs the mutation with args and returns its Task without
// waiting for it to finish.
func (m *MutationStore[Args, V]) MutateTask(args Args) Task[V] {
	opCtx := With(m.Context(), MutationArgsKey, any(args))
	return m.runWith(context.Background(), opCtx)
}

// RetryLatest re-invokes the mutation with the arguments of its most
// recent invocation. It fails with ErrNoArguments if the mutation has
// never been invoked.
func (m *MutationStore[Args, V]) RetryLatest(ctx context.Context) (V, error) {
	args, ok := m.latestArgs()
	if !ok {
		var zero V
		return zero, ErrNoArguments
	}
	return m.Mutate(ctx, args)
}

func (m *MutationStore[Args, V]) latestArgs() (Args, bool) {
	var args Args
	var ok bool
	m.WithExclusiveAccess(func() {
		last, has := m.state.Last()
		if has {
			args, ok = last.Arguments, true
		}
	})
	return args, ok
}

// History returns a snapshot of every invocation recorded so far, oldest
// first.
func (m *MutationStore[Args, V]) History() []HistoryEntry[Args, V] {
	var out []HistoryEntry[Args, V]
	m.WithExclusiveAccess(func() {
		out = append(out, m.state.History...)
	})
	return out
}

// CurrentValue returns the most recent invocation's successful value.
func (m *MutationStore[Args, V]) CurrentValue() (V, bool) {
	var v V
	var ok bool
	m.WithExclusiveAccess(func() { v, ok = m.state.CurrentValue() })
	return v, ok
}

// CurrentError returns the most recent invocation's error, if any.
func (m *MutationStore[Args, V]) CurrentError() error {
	var err error
	m.WithExclusiveAccess(func() { err = m.state.CurrentError() })
	return err
}
