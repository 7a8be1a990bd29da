package operation

import (
	"context"
	"errors"
	"testing"
)

// recordingModifier appends tag to a shared log at both Setup and Wrap time,
// and at actual call time, so composition order can be asserted precisely.
type recordingModifier struct {
	tag string
	log *[]string
}

func (m *recordingModifier) Setup(ctx Context) Context {
	*m.log = append(*m.log, "setup:"+m.tag)
	return ctx
}

func (m *recordingModifier) Wrap(next RunFunc[int]) RunFunc[int] {
	return func(ctx context.Context, opCtx Context, cont Continuation[int]) Result[int] {
		*m.log = append(*m.log, "enter:"+m.tag)
		r := next(ctx, opCtx, cont)
		*m.log = append(*m.log, "exit:"+m.tag)
		return r
	}
}

func TestModifierSetupRunsOuterToInner(t *testing.T) {
	var log []string
	base := NewQuery[int](NewPath("x"), func(context.Context, Context, Continuation[int]) (int, error) {
		return 1, nil
	})
	a := &recordingModifier{tag: "A", log: &log}
	b := &recordingModifier{tag: "B", log: &log}

	op := base.Modifier(a).Modifier(b)
	run, _ := op.build(Context{})

	if len(log) != 2 || log[0] != "setup:B" || log[1] != "setup:A" {
		t.Fatalf("setup order = %v, want [setup:B setup:A]", log)
	}

	log = nil
	result := run(context.Background(), Context{}, noopContinuation[int]())
	if !result.IsOk() || result.Value != 1 {
		t.Fatalf("result = %+v, want Ok(1)", result)
	}
	want := []string{"enter:B", "enter:A", "exit:A", "exit:B"}
	if len(log) != len(want) {
		t.Fatalf("call order = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("call order = %v, want %v", log, want)
		}
	}
}

func TestNewQueryWrapsErrorAndValue(t *testing.T) {
	op := NewQuery[int](NewPath("q"), func(context.Context, Context, Continuation[int]) (int, error) {
		return 5, nil
	})
	run, ctx := op.build(Context{})
	result := run(context.Background(), ctx, noopContinuation[int]())
	if !result.IsOk() || result.Value != 5 {
		t.Fatalf("result = %+v, want Ok(5)", result)
	}

	failErr := errors.New("boom")
	failing := NewQuery[int](NewPath("q2"), func(context.Context, Context, Continuation[int]) (int, error) {
		return 0, failErr
	})
	run2, ctx2 := failing.build(Context{})
	result2 := run2(context.Background(), ctx2, noopContinuation[int]())
	if result2.IsOk() || !errors.Is(result2.Err, failErr) {
		t.Fatalf("result2 = %+v, want Failed(%v)", result2, failErr)
	}
}

func TestNewMutationRequiresArguments(t *testing.T) {
	op := NewMutation[string, int](NewPath("m"), func(context.Context, Context, string, Continuation[int]) (int, error) {
		return 1, nil
	})
	run, ctx := op.build(Context{})
	result := run(context.Background(), ctx, noopContinuation[int]())
	if !errors.Is(result.Err, ErrNoArguments) {
		t.Fatalf("err = %v, want ErrNoArguments", result.Err)
	}
}

func TestNewMutationExtractsArgsFromContext(t *testing.T) {
	op := NewMutation[string, int](NewPath("m"), func(_ context.Context, _ Context, args string, _ Continuation[int]) (int, error) {
		return len(args), nil
	})
	run, baseCtx := op.build(Context{})
	opCtx := With(baseCtx, MutationArgsKey, any("hello"))
	result := run(context.Background(), opCtx, noopContinuation[int]())
	if !result.IsOk() || result.Value != 5 {
		t.Fatalf("result = %+v, want Ok(5)", result)
	}
}

func TestNewMutationWrongArgTypeFails(t *testing.T) {
	op := NewMutation[string, int](NewPath("m"), func(context.Context, Context, string, Continuation[int]) (int, error) {
		return 1, nil
	})
	run, baseCtx := op.build(Context{})
	opCtx := With(baseCtx, MutationArgsKey, any(42))
	result := run(context.Background(), opCtx, noopContinuation[int]())
	if !errors.Is(result.Err, ErrNoArguments) {
		t.Fatalf("err = %v, want ErrNoArguments", result.Err)
	}
}

func samplePaginatedBody() PaginatedBody[int, string] {
	pages := map[int]string{0: "page0", 1: "page1", 2: "page2"}
	return PaginatedBody[int, string]{
		InitialPageID: 0,
		FetchPage: func(_ context.Context, _ Context, req PagingRequest, cont Continuation[string]) (string, error) {
			id, _ := req.PageID.(int)
			v, ok := pages[id]
			if !ok {
				return "", errors.New("no such page")
			}
			cont.Yield(Ok(v))
			return v, nil
		},
		PageIDAfter: func(page Page[int, string], _ PagingRequest, _ Context) Option[int] {
			next := page.ID + 1
			if _, ok := pages[next]; !ok {
				return None[int]()
			}
			return Some(next)
		},
		PageIDBefore: func(page Page[int, string], _ PagingRequest, _ Context) Option[int] {
			prev := page.ID - 1
			if prev < 0 {
				return None[int]()
			}
			return Some(prev)
		},
	}
}

func TestNewPaginatedInitialPage(t *testing.T) {
	op := NewPaginated[int, string](NewPath("p"), samplePaginatedBody())
	run, ctx := op.build(Context{})
	result := run(context.Background(), ctx, noopContinuation[PaginatedRunResult[int, string]]())
	if !result.IsOk() {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Value.Page.Value != "page0" {
		t.Fatalf("page value = %q, want %q", result.Value.Page.Value, "page0")
	}
	next, ok := result.Value.NextPageID.Get()
	if !ok || next != 1 {
		t.Fatalf("NextPageID = (%v, %v), want (1, true)", next, ok)
	}
	if _, ok := result.Value.PreviousPageID.Get(); ok {
		t.Fatal("initial page should have no previous page")
	}
}

func TestNewPaginatedNextPage(t *testing.T) {
	op := NewPaginated[int, string](NewPath("p"), samplePaginatedBody())
	run, baseCtx := op.build(Context{})
	opCtx := With(baseCtx, PagingRequestKey, PagingRequest{Kind: PagingNext, PageID: 1})
	result := run(context.Background(), opCtx, noopContinuation[PaginatedRunResult[int, string]]())
	if !result.IsOk() {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Value.Page.Value != "page1" {
		t.Fatalf("page value = %q, want %q", result.Value.Page.Value, "page1")
	}
}

func TestNewPaginatedPreviousPage(t *testing.T) {
	op := NewPaginated[int, string](NewPath("p"), samplePaginatedBody())
	run, baseCtx := op.build(Context{})
	opCtx := With(baseCtx, PagingRequestKey, PagingRequest{Kind: PagingPrevious, PageID: 0})
	result := run(context.Background(), opCtx, noopContinuation[PaginatedRunResult[int, string]]())
	if !result.IsOk() {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Value.Page.Value != "page0" {
		t.Fatalf("page value = %q, want %q", result.Value.Page.Value, "page0")
	}
}

func TestNewPaginatedAllRefetchesKnownPages(t *testing.T) {
	op := NewPaginated[int, string](NewPath("p"), samplePaginatedBody())
	run, baseCtx := op.build(Context{})
	tracker := pagesTracker{pages: []pageIDOnly{{id: 0}, {id: 1}}}
	opCtx := With(baseCtx, PagingRequestKey, PagingRequest{Kind: PagingAll})
	opCtx = With(opCtx, pagesTrackerKey, tracker)

	result := run(context.Background(), opCtx, noopContinuation[PaginatedRunResult[int, string]]())
	if !result.IsOk() {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(result.Value.Pages) != 2 {
		t.Fatalf("len(Pages) = %d, want 2", len(result.Value.Pages))
	}
	if result.Value.Pages[0].Value != "page0" || result.Value.Pages[1].Value != "page1" {
		t.Fatalf("pages = %+v, want [page0 page1]", result.Value.Pages)
	}
}

func TestNewPaginatedYieldsIntermediatePages(t *testing.T) {
	var yielded []Result[PaginatedRunResult[int, string]]
	cont := newContinuation(func(r Result[PaginatedRunResult[int, string]], _ Context) {
		yielded = append(yielded, r)
	})

	op := NewPaginated[int, string](NewPath("p"), samplePaginatedBody())
	run, ctx := op.build(Context{})
	result := run(context.Background(), ctx, cont)
	if !result.IsOk() {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(yielded) != 1 {
		t.Fatalf("expected exactly one yielded page, got %d", len(yielded))
	}
	if yielded[0].Value.Page.Value != "page0" {
		t.Fatalf("yielded page = %q, want %q", yielded[0].Value.Page.Value, "page0")
	}
}
