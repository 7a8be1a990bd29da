package operation

import (
	"context"
	"testing"
)

func TestTaskSetAddRemoveOrder(t *testing.T) {
	set := NewTaskSet[int]()
	t1 := NewTask[int](Context{}, func(context.Context, uint64) (int, error) { return 1, nil })
	t2 := NewTask[int](Context{}, func(context.Context, uint64) (int, error) { return 2, nil })

	if !set.Add(t1) {
		t.Fatal("Add should return true for a new task")
	}
	if set.Add(t1) {
		t.Fatal("Add should return false for an already-present task")
	}
	set.Add(t2)

	if set.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", set.Len())
	}
	if !set.Contains(t1.ID()) || !set.Contains(t2.ID()) {
		t.Fatal("set should contain both tasks")
	}

	slice := set.Slice()
	if len(slice) != 2 || slice[0].ID() != t1.ID() || slice[1].ID() != t2.ID() {
		t.Fatalf("Slice() order not preserved: %v", slice)
	}

	set.Remove(t1.ID())
	if set.Contains(t1.ID()) {
		t.Fatal("task should be removed")
	}
	if set.Len() != 1 {
		t.Fatalf("Len() after remove = %d, want 1", set.Len())
	}
}

func TestTaskSetRemoveMissingIsNoop(t *testing.T) {
	set := NewTaskSet[int]()
	set.Remove(999) // must not panic
	if set.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", set.Len())
	}
}
