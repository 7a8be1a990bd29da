package operation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracingModifier wraps a run in an OpenTelemetry span, recording the
// attempt index/limit, the final outcome, and a span event per yielded
// result.
type tracingModifier[V any] struct {
	tracer trace.Tracer
	path   string
}

// Trace returns a Modifier that records one span per run (named by path)
// using tracer, with yielded results recorded as span events and the
// final error, if any, set as the span's status.
func Trace[V any](tracer trace.Tracer, path Path) Modifier[V] {
	return &tracingModifier[V]{tracer: tracer, path: path.String()}
}

func (tm *tracingModifier[V]) Setup(ctx Context) Context { return ctx }

func (tm *tracingModifier[V]) Wrap(next RunFunc[V]) RunFunc[V] {
	return func(ctx context.Context, opCtx Context, cont Continuation[V]) Result[V] {
		spanCtx, span := tm.tracer.Start(ctx, tm.path)
		defer span.End()

		span.SetAttributes(
			attribute.Int("opstate.retry_index", Get(opCtx, RetryIndexKey)),
			attribute.Int("opstate.retry_limit", Get(opCtx, RetryLimitKey)),
		)

		yieldCount := 0
		wrapped := newContinuation(func(r Result[V], yieldCtx Context) {
			yieldCount++
			if r.IsOk() {
				span.AddEvent("yield", trace.WithAttributes(attribute.Int("opstate.yield_index", yieldCount)))
			} else {
				span.AddEvent("yield_error", trace.WithAttributes(
					attribute.Int("opstate.yield_index", yieldCount),
					attribute.String("opstate.error", r.Err.Error()),
				))
			}
			cont.Yield(r, yieldCtx)
		})

		result := next(spanCtx, opCtx, wrapped)

		span.SetAttributes(attribute.Int("opstate.yield_count", yieldCount))
		if result.Err != nil {
			span.SetStatus(codes.Error, result.Err.Error())
			span.RecordError(fmt.Errorf("%w", result.Err))
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return result
	}
}
