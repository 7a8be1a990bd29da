package operation

import (
	"context"
	"time"

	"github.com/tidalcode/opstate/operation/eventlog"
)

// loggingModifier emits an eventlog.Event for a run's start, each yield,
// and its end.
type loggingModifier[V any] struct {
	emitter eventlog.Emitter
	path    string
}

// Logging returns a Modifier that reports run_started, yield, and
// run_ended events to emitter.
func Logging[V any](emitter eventlog.Emitter, path Path) Modifier[V] {
	return &loggingModifier[V]{emitter: emitter, path: path.String()}
}

func (lm *loggingModifier[V]) Setup(ctx Context) Context { return ctx }

func (lm *loggingModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] {
	return func(ctx context.Context, opCtx Context, cont Continuation[V]) Result[V] {
		start := time.Now()
		lm.emitter.Emit(eventlog.Event{
			Path: lm.path,
			Msg:  "run_started",
			Time: start,
			Meta: map[string]any{"attempt": Get(opCtx, RetryIndexKey)},
		})

		wrapped := newContinuation(func(r Result[V], yieldCtx Context) {
			meta := map[string]any{}
			if !r.IsOk() {
				meta["error"] = r.Err.Error()
			}
			lm.emitter.Emit(eventlog.Event{Path: lm.path, Msg: "yield", Time: time.Now(), Meta: meta})
			cont.Yield(r, yieldCtx)
		})

		result := next(ctx, opCtx, wrapped)

		meta := map[string]any{"duration_ms": time.Since(start).Milliseconds()}
		if result.Err != nil {
			meta["error"] = result.Err.Error()
		}
		lm.emitter.Emit(eventlog.Event{Path: lm.path, Msg: "run_ended", Time: time.Now(), Meta: meta})

		return result
	}
}
