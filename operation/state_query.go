package operation

import "time"

// QueryState is the OperationState variant backing a one-shot or
// repeatable query.
type QueryState[V any] struct {
	CurrentValue     Option[V]
	InitialValue     Option[V]
	ValueUpdateCount int
	ValueLastUpdated Option[time.Time]

	Error            error
	ErrorUpdateCount int
	ErrorLastUpdated Option[time.Time]

	active *TaskSet[V]
	clock  Clock
}

// NewQueryState returns a QueryState seeded with the given initial value
// (None() if the query has never produced a value).
func NewQueryState[V any](initial Option[V], clock Clock) *QueryState[V] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &QueryState[V]{
		CurrentValue: initial,
		InitialValue: initial,
		active:       NewTaskSet[V](),
		clock:        clock,
	}
}

// Schedule implements Reducer: queries have no inherent scheduling
// dependencies between tasks (conflict avoidance, if any, is the job of
// the Dedup modifier, not the reducer), so Schedule only records t active.
func (s *QueryState[V]) Schedule(t Task[V]) {
	s.active.Add(t)
}

// UpdateForTask implements Reducer: a task's final result always updates
// counts.
func (s *QueryState[V]) UpdateForTask(r Result[V], t Task[V]) {
	s.apply(r, true)
}

// UpdateByContext implements Reducer: counts are bumped unless ctx tags
// this as a yielded (non-final) result.
func (s *QueryState[V]) UpdateByContext(r Result[V], ctx Context) {
	final := Get(ctx, ResultUpdateReasonKey) == ResultReasonFinal
	s.apply(r, final)
}

func (s *QueryState[V]) apply(r Result[V], countsAsUpdate bool) {
	now := s.clock.Now()
	if r.IsOk() {
		s.CurrentValue = Some(r.Value)
		s.Error = nil
		if countsAsUpdate {
			s.ValueUpdateCount++
			s.ValueLastUpdated = Some(now)
		}
		return
	}
	s.Error = r.Err
	if countsAsUpdate {
		s.ErrorUpdateCount++
		s.ErrorLastUpdated = Some(now)
	}
}

// Finish implements Reducer.
func (s *QueryState[V]) Finish(t Task[V]) {
	s.active.Remove(t.ID())
}

// Reset implements Reducer: returns every active task for cancellation and
// reinitializes the state to its construction-time initial value.
func (s *QueryState[V]) Reset(ctx Context) []Task[V] {
	tasks := s.active.Slice()
	s.active = NewTaskSet[V]()
	s.CurrentValue = s.InitialValue
	s.Error = nil
	s.ValueUpdateCount = 0
	s.ErrorUpdateCount = 0
	s.ValueLastUpdated = None[time.Time]()
	s.ErrorLastUpdated = None[time.Time]()
	return tasks
}

// IsLoading implements Reducer.
func (s *QueryState[V]) IsLoading() bool { return s.active.Len() > 0 }

// ActiveTasks returns the currently active tasks, in schedule order.
func (s *QueryState[V]) ActiveTasks() []Task[V] { return s.active.Slice() }
