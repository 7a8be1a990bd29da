package operation

import (
	"context"
	"sync"
	"sync/atomic"
)

var taskIDSeq atomic.Uint64

func nextTaskID() uint64 { return taskIDSeq.Add(1) }

type taskStatus int32

const (
	taskIdle taskStatus = iota
	taskRunning
	taskFinished
)

// taskState is the shared, reference-identified state machine backing
// every copy (including mapped copies) of a Task. Copies differ only in
// their transform; everything else — identity, context, dependencies,
// and progress — is observed identically by every copy.
type taskState struct {
	id  uint64
	ctx Context

	mu     sync.Mutex
	status taskStatus
	deps   []*taskState
	cancel context.CancelFunc
	done   chan struct{}
	result any
	err    error

	work func(goCtx context.Context, id uint64) (any, error)
}

// Task is a lazy, shareable, dependency-ordered unit of async work with
// cancellation and result memoization. Task is a thin
// value type around a shared state machine: copies of a Task (including
// those produced by Map) share identity, progress, and final result, and
// cancelling any one copy cancels them all.
type Task[V any] struct {
	state     *taskState
	transform func(any) any
}

// NewTask constructs a Task that is not started until RunIfNeeded is
// called. ctx is the context the work closure observes; work receives the
// task's own id plus a context.Context that is cancelled only by
// Task.Cancel, not by the caller's wait context passed to RunIfNeeded.
func NewTask[V any](ctx Context, work func(goCtx context.Context, id uint64) (V, error)) Task[V] {
	st := &taskState{
		id:   nextTaskID(),
		ctx:  ctx,
		done: make(chan struct{}),
	}
	st.work = func(goCtx context.Context, id uint64) (any, error) {
		return work(goCtx, id)
	}
	return Task[V]{state: st, transform: identityTransform}
}

func identityTransform(v any) any { return v }

// ID returns the task's monotonically assigned identifier. Mapped copies
// share the same id as the task they were derived from.
func (t Task[V]) ID() uint64 { return t.state.id }

// Context returns the context the task's work closure observes.
func (t Task[V]) Context() Context { return t.state.ctx }

// MapTask returns a new Task sharing t's id and state machine but whose
// successful result is additionally passed through f. The mapped task is
// equal (by ID) to the original and observes the same progress: cancelling
// either copy cancels both.
func MapTask[V, W any](t Task[V], f func(V) W) Task[W] {
	prev := t.transform
	return Task[W]{
		state: t.state,
		transform: func(raw any) any {
			v, _ := prev(raw).(V)
			return f(v)
		},
	}
}

// ScheduleAfter appends dep to t's dependency list (deduplicated by id).
// Before running its own work, t awaits dep's completion, ignoring dep's
// error.
func ScheduleAfter[V, D any](t Task[V], dep Task[D]) {
	scheduleAfterState(t.state, dep.state)
}

// ScheduleAfterMany is ScheduleAfter for a batch of same-typed dependencies.
func ScheduleAfterMany[V, D any](t Task[V], deps []Task[D]) {
	for _, d := range deps {
		scheduleAfterState(t.state, d.state)
	}
}

func scheduleAfterState(t, dep *taskState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.deps {
		if existing.id == dep.id {
			return
		}
	}
	t.deps = append(t.deps, dep)
}

// RunIfNeeded launches the task's work on first call and returns its
// (eventually memoized) result to every caller, including concurrent ones.
// If ctx is cancelled before the task finishes, RunIfNeeded returns
// ctx.Err() to this caller without affecting the task itself — only
// Task.Cancel cancels the shared work.
func (t Task[V]) RunIfNeeded(ctx context.Context) (V, error) {
	t.ensureStarted()
	select {
	case <-t.state.done:
		return t.readResult()
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Start launches the task's work if it hasn't already, without waiting for
// it to finish. Use FinishedResult, RunIfNeeded, or a store subscription to
// observe the eventual result.
func (t Task[V]) Start() { t.ensureStarted() }

func (t Task[V]) readResult() (V, error) {
	t.state.mu.Lock()
	err := t.state.err
	raw := t.state.result
	t.state.mu.Unlock()
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := t.transform(raw).(V)
	return v, nil
}

// ensureStarted launches the shared work exactly once across all copies.
func (t Task[V]) ensureStarted() {
	st := t.state
	st.mu.Lock()
	if st.status != taskIdle {
		st.mu.Unlock()
		return
	}
	st.status = taskRunning
	runCtx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	deps := append([]*taskState(nil), st.deps...)
	st.mu.Unlock()

	go func() {
		for _, dep := range deps {
			select {
			case <-dep.done:
			case <-runCtx.Done():
				t.finish(nil, ErrCancelled)
				return
			}
		}
		if runCtx.Err() != nil {
			t.finish(nil, ErrCancelled)
			return
		}
		result, err := st.work(runCtx, st.id)
		if err != nil && runCtx.Err() != nil {
			err = ErrCancelled
		}
		t.finish(result, err)
	}()
}

func (t Task[V]) finish(result any, err error) {
	st := t.state
	st.mu.Lock()
	if st.status == taskFinished {
		st.mu.Unlock()
		return
	}
	st.status = taskFinished
	st.result = result
	st.err = err
	close(st.done)
	st.mu.Unlock()
}

// Cancel cancels the task's shared handle. If the task has not yet
// started, it transitions immediately to Finished(ErrCancelled) without
// ever launching its work. Cancelling any copy (including a mapped one)
// cancels the original and every other copy, since they share one state
// machine.
func (t Task[V]) Cancel() {
	st := t.state
	st.mu.Lock()
	switch st.status {
	case taskFinished:
		st.mu.Unlock()
		return
	case taskIdle:
		st.status = taskFinished
		st.err = ErrCancelled
		close(st.done)
		st.mu.Unlock()
		return
	default:
		cancel := st.cancel
		st.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	}
}

// HasStarted reports whether RunIfNeeded (on this copy or any other) has
// launched the task's work.
func (t Task[V]) HasStarted() bool {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	return t.state.status != taskIdle
}

// IsRunning reports whether the task has started but not yet finished.
func (t Task[V]) IsRunning() bool {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	return t.state.status == taskRunning
}

// IsFinished reports whether the task has produced a result (success,
// failure, or cancellation).
func (t Task[V]) IsFinished() bool {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	return t.state.status == taskFinished
}

// IsCancelled reports whether the task finished with ErrCancelled.
func (t Task[V]) IsCancelled() bool {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	return t.state.status == taskFinished && IsCancelled(t.state.err)
}

// FinishedResult returns the task's memoized result and true if it has
// finished, or the zero value and false otherwise.
func (t Task[V]) FinishedResult() (V, error, bool) {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	if t.state.status != taskFinished {
		var zero V
		return zero, nil, false
	}
	if t.state.err != nil {
		var zero V
		return zero, t.state.err, true
	}
	v, _ := t.transform(t.state.result).(V)
	return v, nil, true
}
