package operation

import (
	"context"
	"testing"
)

func pagingTask(kind PagingKind, pageID int) Task[PaginatedRunResult[int, string]] {
	ctx := With(Context{}, PagingRequestKey, PagingRequest{Kind: kind, PageID: pageID})
	return NewTask[PaginatedRunResult[int, string]](ctx, func(context.Context, uint64) (PaginatedRunResult[int, string], error) {
		return PaginatedRunResult[int, string]{}, nil
	})
}

func TestPaginatedStateInitialPage(t *testing.T) {
	s := NewPaginatedState[int, string](0, SystemClock{})
	task := pagingTask(PagingInitial, 0)
	s.Schedule(task)

	result := Ok(PaginatedRunResult[int, string]{
		Kind:       PagingInitial,
		Page:       Page[int, string]{ID: 0, Value: "page0"},
		NextPageID: Some(1),
	})
	s.UpdateForTask(result, task)

	if len(s.Pages) != 1 || s.Pages[0].Value != "page0" {
		t.Fatalf("Pages = %+v, want [{0 page0}]", s.Pages)
	}
	if !s.HasNextPage() {
		t.Fatal("expected HasNextPage() == true")
	}
	if s.HasPreviousPage() {
		t.Fatal("expected HasPreviousPage() == false")
	}
}

func TestPaginatedStateAppendsNextPage(t *testing.T) {
	s := NewPaginatedState[int, string](0, SystemClock{})
	s.Pages = []Page[int, string]{{ID: 0, Value: "page0"}}

	next := pagingTask(PagingNext, 1)
	s.Schedule(next)
	s.UpdateForTask(Ok(PaginatedRunResult[int, string]{
		Kind: PagingNext,
		Page: Page[int, string]{ID: 1, Value: "page1"},
	}), next)

	if len(s.Pages) != 2 || s.Pages[1].Value != "page1" {
		t.Fatalf("Pages = %+v, want two pages ending in page1", s.Pages)
	}
}

func TestPaginatedStatePrependsPreviousPage(t *testing.T) {
	s := NewPaginatedState[int, string](1, SystemClock{})
	s.Pages = []Page[int, string]{{ID: 1, Value: "page1"}}

	prev := pagingTask(PagingPrevious, 0)
	s.Schedule(prev)
	s.UpdateForTask(Ok(PaginatedRunResult[int, string]{
		Kind: PagingPrevious,
		Page: Page[int, string]{ID: 0, Value: "page0"},
	}), prev)

	if len(s.Pages) != 2 || s.Pages[0].Value != "page0" {
		t.Fatalf("Pages = %+v, want page0 prepended", s.Pages)
	}
}

func TestPaginatedStateAllReplacesAndDedupes(t *testing.T) {
	s := NewPaginatedState[int, string](0, SystemClock{})
	s.Pages = []Page[int, string]{{ID: 0, Value: "stale0"}}

	all := pagingTask(PagingAll, 0)
	s.Schedule(all)
	s.UpdateForTask(Ok(PaginatedRunResult[int, string]{
		Kind: PagingAll,
		Pages: []Page[int, string]{
			{ID: 0, Value: "fresh0"},
			{ID: 1, Value: "fresh1"},
			{ID: 0, Value: "dup0"},
		},
	}), all)

	if len(s.Pages) != 2 {
		t.Fatalf("Pages = %+v, want 2 deduped pages", s.Pages)
	}
	if s.Pages[0].Value != "fresh0" || s.Pages[1].Value != "fresh1" {
		t.Fatalf("Pages = %+v, want [fresh0 fresh1]", s.Pages)
	}
}

func TestPaginatedStateScheduleOrdering(t *testing.T) {
	s := NewPaginatedState[int, string](0, SystemClock{})
	initial := pagingTask(PagingInitial, 0)
	s.Schedule(initial)

	next := pagingTask(PagingNext, 1)
	s.Schedule(next)

	// next depends on initial: initial's taskState must appear in next's deps.
	found := false
	for _, d := range next.state.deps {
		if d.id == initial.state.id {
			found = true
		}
	}
	if !found {
		t.Fatal("a PagingNext task must depend on every active PagingInitial task")
	}
}

func TestPaginatedStateIsLoadingAndFinish(t *testing.T) {
	s := NewPaginatedState[int, string](0, SystemClock{})
	task := pagingTask(PagingInitial, 0)
	s.Schedule(task)

	if !s.IsLoading() {
		t.Fatal("expected IsLoading() == true with an active task")
	}
	s.Finish(task)
	if s.IsLoading() {
		t.Fatal("expected IsLoading() == false after Finish")
	}
}

func TestPaginatedStateReset(t *testing.T) {
	s := NewPaginatedState[int, string](0, SystemClock{})
	s.Pages = []Page[int, string]{{ID: 0, Value: "page0"}}
	s.NextPageID = Some(1)
	task := pagingTask(PagingInitial, 0)
	s.Schedule(task)

	tasks := s.Reset(Context{})
	if len(tasks) != 1 {
		t.Fatalf("Reset returned %d tasks, want 1", len(tasks))
	}
	if s.Pages != nil {
		t.Fatalf("Pages after reset = %+v, want nil", s.Pages)
	}
	if s.HasNextPage() {
		t.Fatal("HasNextPage() should be false after reset")
	}
}
