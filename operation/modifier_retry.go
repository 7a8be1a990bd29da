package operation

import "context"

// RetryPolicy configures a retry modifier.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// A value <= 1 disables retrying entirely.
	MaxAttempts int
	// Backoff computes the delay before a given retry attempt (1-based:
	// attempt 1 is the first retry, after the initial failed attempt).
	Backoff BackoffFunc
	// ShouldRetry decides whether a given error warrants another attempt.
	// Nil means retry on every non-cancellation error.
	ShouldRetry func(err error) bool
}

type retryModifier[V any] struct {
	policy RetryPolicy
}

// Retry returns a Modifier that re-runs the wrapped operation on failure,
// waiting between attempts according to policy.Backoff and publishing the
// current attempt index/limit into the Context under RetryIndexKey and
// RetryLimitKey so nested modifiers and run bodies can observe them.
func Retry[V any](policy RetryPolicy) Modifier[V] {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &retryModifier[V]{policy: policy}
}

func (m *retryModifier[V]) Setup(ctx Context) Context {
	return With(ctx, RetryLimitKey, m.policy.MaxAttempts)
}

func (m *retryModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] {
	return func(ctx context.Context, opCtx Context, cont Continuation[V]) Result[V] {
		delayer := Get(opCtx, DelayerKey)
		backoff := m.policy.Backoff
		if backoff == nil {
			backoff = Get(opCtx, BackoffKey)
		}
		var last Result[V]
		for attempt := 0; attempt < m.policy.MaxAttempts; attempt++ {
			attemptCtx := With(opCtx, RetryIndexKey, attempt)
			last = next(ctx, attemptCtx, cont)
			if last.IsOk() {
				return last
			}
			if IsCancelled(last.Err) {
				return last
			}
			if m.policy.ShouldRetry != nil && !m.policy.ShouldRetry(last.Err) {
				return last
			}
			if attempt == m.policy.MaxAttempts-1 {
				break
			}
			delay := backoff(attempt + 1)
			if delay > 0 {
				if err := delayer.Sleep(ctx, secondsToDuration(delay)); err != nil {
					return Failed[V](ErrCancelled)
				}
			}
		}
		return last
	}
}
