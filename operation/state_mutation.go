package operation

import "time"

// MutationStatus is the lifecycle status of a single mutation invocation.
type MutationStatus int

const (
	// MutationLoading is the status of an in-flight invocation.
	MutationLoading MutationStatus = iota
	// MutationSuccess is the status once the invocation's task succeeds.
	MutationSuccess
	// MutationFailure is the status once the invocation's task fails.
	MutationFailure
)

// HistoryEntry records one invocation of a mutation.
type HistoryEntry[Args any, V any] struct {
	TaskID        uint64
	Arguments     Args
	StartTime     time.Time
	CurrentResult Result[V]
	LastUpdatedAt time.Time
	Status        MutationStatus
}

// MutationState is the OperationState variant backing an argument-driven
// mutation.
type MutationState[Args any, V any] struct {
	History []HistoryEntry[Args, V]

	active *TaskSet[V]
	clock  Clock
}

// NewMutationState returns an empty MutationState.
func NewMutationState[Args any, V any](clock Clock) *MutationState[Args, V] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MutationState[Args, V]{active: NewTaskSet[V](), clock: clock}
}

// Schedule implements Reducer: mutations have no cross-task scheduling
// dependency (each invocation is independent), but callers are expected
// to have placed the invocation's arguments in t.Context() under
// MutationArgsKey before scheduling so Schedule can seed the history
// entry. A type assertion recovers the typed Args from the opaque context
// value; a missing or mistyped value records the zero Args.
func (s *MutationState[Args, V]) Schedule(t Task[V]) {
	s.active.Add(t)
	args, _ := Get(t.Context(), MutationArgsKey).(Args)
	now := s.clock.Now()
	s.History = append(s.History, HistoryEntry[Args, V]{
		TaskID:        t.ID(),
		Arguments:     args,
		StartTime:     now,
		LastUpdatedAt: now,
		Status:        MutationLoading,
	})
}

// UpdateForTask implements Reducer.
func (s *MutationState[Args, V]) UpdateForTask(r Result[V], t Task[V]) {
	s.applyToTask(t.ID(), r)
}

// UpdateByContext implements Reducer: a controller write (or in-run
// yield) updates the most recent history entry, if any.
func (s *MutationState[Args, V]) UpdateByContext(r Result[V], ctx Context) {
	if len(s.History) == 0 {
		return
	}
	last := &s.History[len(s.History)-1]
	last.CurrentResult = r
	last.LastUpdatedAt = s.clock.Now()
	if Get(ctx, ResultUpdateReasonKey) == ResultReasonFinal {
		if r.IsOk() {
			last.Status = MutationSuccess
		} else {
			last.Status = MutationFailure
		}
	}
}

func (s *MutationState[Args, V]) applyToTask(taskID uint64, r Result[V]) {
	for i := range s.History {
		if s.History[i].TaskID != taskID {
			continue
		}
		s.History[i].CurrentResult = r
		s.History[i].LastUpdatedAt = s.clock.Now()
		if r.IsOk() {
			s.History[i].Status = MutationSuccess
		} else {
			s.History[i].Status = MutationFailure
		}
		return
	}
}

// Finish implements Reducer.
func (s *MutationState[Args, V]) Finish(t Task[V]) {
	s.active.Remove(t.ID())
}

// Reset implements Reducer: clears all history and returns active tasks
// for cancellation.
func (s *MutationState[Args, V]) Reset(ctx Context) []Task[V] {
	tasks := s.active.Slice()
	s.active = NewTaskSet[V]()
	s.History = nil
	return tasks
}

// IsLoading implements Reducer.
func (s *MutationState[Args, V]) IsLoading() bool { return s.active.Len() > 0 }

// Last returns the most recent history entry and true, or the zero value
// and false if no mutation has ever been invoked.
func (s *MutationState[Args, V]) Last() (HistoryEntry[Args, V], bool) {
	if len(s.History) == 0 {
		var zero HistoryEntry[Args, V]
		return zero, false
	}
	return s.History[len(s.History)-1], true
}

// CurrentValue returns the most recent history entry's successful value,
// if the most recent result is a success.
func (s *MutationState[Args, V]) CurrentValue() (V, bool) {
	last, ok := s.Last()
	if !ok || !last.CurrentResult.IsOk() {
		var zero V
		return zero, false
	}
	return last.CurrentResult.Value, true
}

// CurrentError returns the most recent history entry's error, if any.
func (s *MutationState[Args, V]) CurrentError() error {
	last, ok := s.Last()
	if !ok {
		return nil
	}
	return last.CurrentResult.Err
}
