package operation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return exporter, tp
}

func TestTraceRecordsSuccessfulSpan(t *testing.T) {
	exporter, tp := newTestTracer(t)
	defer tp.Shutdown(context.Background())
	tracer := tp.Tracer("test")

	m := Trace[int](tracer, NewPath("q"))
	run := m.Wrap(func(context.Context, Context, Continuation[int]) Result[int] { return Ok(1) })
	run(context.Background(), Context{}, noopContinuation[int]())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Ok {
		t.Fatalf("span status = %v, want Ok", spans[0].Status.Code)
	}
}

func TestTraceRecordsErrorStatus(t *testing.T) {
	exporter, tp := newTestTracer(t)
	defer tp.Shutdown(context.Background())
	tracer := tp.Tracer("test")

	failErr := errors.New("boom")
	m := Trace[int](tracer, NewPath("q"))
	run := m.Wrap(func(context.Context, Context, Continuation[int]) Result[int] { return Failed[int](failErr) })
	run(context.Background(), Context{}, noopContinuation[int]())

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("span status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) != 0 {
		t.Fatalf("len(Events) = %d, want 0 (no yields occurred)", len(spans[0].Events))
	}
}

func TestTraceRecordsYieldEvents(t *testing.T) {
	exporter, tp := newTestTracer(t)
	defer tp.Shutdown(context.Background())
	tracer := tp.Tracer("test")

	m := Trace[int](tracer, NewPath("q"))
	run := m.Wrap(func(_ context.Context, _ Context, cont Continuation[int]) Result[int] {
		cont.Yield(Ok(1))
		cont.Yield(Ok(2))
		return Ok(3)
	})
	run(context.Background(), Context{}, noopContinuation[int]())

	spans := exporter.GetSpans()
	if len(spans[0].Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2 yield events", len(spans[0].Events))
	}
}
