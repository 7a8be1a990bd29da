package operation

import (
	"context"
	"errors"
	"testing"
)

func TestQueryStateInitialValue(t *testing.T) {
	s := NewQueryState[int](Some(7), SystemClock{})
	if v, ok := s.CurrentValue.Get(); !ok || v != 7 {
		t.Fatalf("CurrentValue = (%v, %v), want (7, true)", v, ok)
	}
	if s.ValueUpdateCount != 0 {
		t.Fatalf("ValueUpdateCount = %d, want 0 before any update", s.ValueUpdateCount)
	}
}

func TestQueryStateUpdateForTaskBumpsCounts(t *testing.T) {
	s := NewQueryState[int](None[int](), SystemClock{})
	task := NewTask[int](Context{}, func(context.Context, uint64) (int, error) { return 1, nil })

	s.Schedule(task)
	if !s.IsLoading() {
		t.Fatal("state should report loading while a task is active")
	}

	s.UpdateForTask(Ok(42), task)
	if s.ValueUpdateCount != 1 {
		t.Fatalf("ValueUpdateCount = %d, want 1", s.ValueUpdateCount)
	}
	if v, _ := s.CurrentValue.Get(); v != 42 {
		t.Fatalf("CurrentValue = %d, want 42", v)
	}

	s.Finish(task)
	if s.IsLoading() {
		t.Fatal("state should not be loading after Finish")
	}
}

func TestQueryStateYieldedResultDoesNotBumpCount(t *testing.T) {
	s := NewQueryState[int](None[int](), SystemClock{})
	yieldCtx := With(Context{}, ResultUpdateReasonKey, ResultReasonYielded)

	s.UpdateByContext(Ok(1), yieldCtx)
	if s.ValueUpdateCount != 0 {
		t.Fatalf("ValueUpdateCount = %d, want 0 for a yielded result", s.ValueUpdateCount)
	}
	if v, ok := s.CurrentValue.Get(); !ok || v != 1 {
		t.Fatalf("CurrentValue should still be set by a yield, got (%v, %v)", v, ok)
	}

	finalCtx := With(Context{}, ResultUpdateReasonKey, ResultReasonFinal)
	s.UpdateByContext(Ok(2), finalCtx)
	if s.ValueUpdateCount != 1 {
		t.Fatalf("ValueUpdateCount = %d, want 1 after a final result", s.ValueUpdateCount)
	}
}

func TestQueryStateErrorTracking(t *testing.T) {
	s := NewQueryState[int](Some(1), SystemClock{})
	task := NewTask[int](Context{}, func(context.Context, uint64) (int, error) { return 0, errors.New("boom") })
	s.Schedule(task)
	s.UpdateForTask(Failed[int](errors.New("boom")), task)

	if s.Error == nil {
		t.Fatal("Error should be set after a failed update")
	}
	if s.ErrorUpdateCount != 1 {
		t.Fatalf("ErrorUpdateCount = %d, want 1", s.ErrorUpdateCount)
	}
}

func TestQueryStateReset(t *testing.T) {
	s := NewQueryState[int](Some(1), SystemClock{})
	task := NewTask[int](Context{}, func(context.Context, uint64) (int, error) { return 2, nil })
	s.Schedule(task)
	s.UpdateForTask(Ok(2), task)

	tasks := s.Reset(Context{})
	if len(tasks) != 1 {
		t.Fatalf("Reset returned %d tasks, want 1 active task to cancel", len(tasks))
	}
	if v, _ := s.CurrentValue.Get(); v != 1 {
		t.Fatalf("CurrentValue after reset = %d, want initial value 1", v)
	}
	if s.ValueUpdateCount != 0 {
		t.Fatalf("ValueUpdateCount after reset = %d, want 0", s.ValueUpdateCount)
	}
}
