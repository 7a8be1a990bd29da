package operation

import (
	"context"
	"sync"
	"time"
)

// Handler is the set of callbacks a Store invokes as a run progresses.
// Any field left nil is simply not called. Handlers are invoked outside
// of the store's lock, so they may safely call back into the store (e.g.
// to read CurrentValue or call RunTask again).
type Handler[V any] struct {
	// OnStateChanged fires whenever the store's externally visible state
	// (value, error, counts, loading) may have changed.
	OnStateChanged func()
	// OnRunStarted fires once a new task has been scheduled and started.
	OnRunStarted func()
	// OnResultReceived fires for every yielded and final result, tagged
	// with which kind it is.
	OnResultReceived func(r Result[V], reason ResultUpdateReason)
	// OnRunEnded fires once a task has finished and the reducer has
	// reconciled its final result.
	OnRunEnded func()
}

// Store is the live, subscribable runtime instance of an Operation at a
// single Path: it owns the operation's reducer-managed state, runs its
// composed RunFunc, and dispatches Handler callbacks in a fixed order as
// each run progresses:
//
//	schedule -> OnStateChanged -> OnRunStarted
//	each yield -> OnResultReceived -> reducer update -> OnStateChanged
//	final result -> reducer update -> OnResultReceived
//	finish -> reducer finish -> OnStateChanged -> OnRunEnded
type Store[V any] struct {
	path    Path
	runFn   RunFunc[V]
	reducer Reducer[V]
	clock   Clock

	mu          sync.Mutex
	ctx         Context
	subs        map[uint64]Handler[V]
	subSeq      uint64
	lastUpdated Option[time.Time]

	// autoRunTask is the task, if any, launched by Subscribe's
	// first-subscriber auto-run: it is cancelled when the subscriber count
	// drops back to zero, per the subscription-triggered cancellation rule
	// (explicit runs started via RunTask/Run are never tracked here).
	autoRunTask Task[V]
	hasAutoRun  bool
}

// newStore builds a Store for op, running every modifier's Setup against
// baseCtx once, and installs itself as the Controller reachable from
// inside the operation's own run body.
func newStore[V any](path Path, op *Operation[V], reducer Reducer[V], baseCtx Context, clock Clock) *Store[V] {
	if clock == nil {
		clock = SystemClock{}
	}
	runFn, ctx := op.build(baseCtx)
	s := &Store[V]{
		path:    path,
		runFn:   runFn,
		reducer: reducer,
		clock:   clock,
		subs:    make(map[uint64]Handler[V]),
		ctx:     ctx,
	}
	s.ctx = withController[V](s.ctx, s)
	return s
}

// Path returns the store's cache address.
func (s *Store[V]) Path() Path { return s.path }

// Context returns the store's current Context, including every modifier
// default and the installed Controller.
func (s *Store[V]) Context() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// WithExclusiveAccess runs fn while holding the store's lock, for callers
// (typically variant-specific wrappers) that need to read or update
// reducer-owned state atomically with respect to concurrent runs.
func (s *Store[V]) WithExclusiveAccess(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// IsLoading reports whether the reducer currently considers any task active.
func (s *Store[V]) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reducer.IsLoading()
}

// Yield implements Controller: publishes an intermediate result as if a
// running task's Continuation had yielded it.
func (s *Store[V]) Yield(r Result[V]) {
	s.handleYielded(r, With(s.Context(), ResultUpdateReasonKey, ResultReasonYielded))
}

// Refetch implements Controller: schedules a new run without waiting for it.
func (s *Store[V]) Refetch() { s.RunTask() }

// ResetState implements Controller and is the public ResetState operation:
// it discards all reducer state, cancels every active task, and notifies
// subscribers once the reset is complete.
func (s *Store[V]) ResetState() {
	s.mu.Lock()
	ctx := s.ctx
	tasks := s.reducer.Reset(ctx)
	s.lastUpdated = None[time.Time]()
	s.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	s.notifyStateChanged()
}

// SubscriberCount implements Controller.
func (s *Store[V]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// IsStale implements Controller: evaluates every registered StalePredicate
// against the last time a final result was reconciled.
func (s *Store[V]) IsStale() bool {
	s.mu.Lock()
	ctx := s.ctx
	last := s.lastUpdated
	s.mu.Unlock()
	return IsStale(ctx, last, s.clock.Now())
}

// SetResult performs a controller write: it reconciles r into the reducer
// as a final result without running a task, as if the operation itself
// had returned r.
func (s *Store[V]) SetResult(r Result[V]) {
	s.mu.Lock()
	ctx := With(s.ctx, ResultUpdateReasonKey, ResultReasonFinal)
	s.reducer.UpdateByContext(r, ctx)
	s.lastUpdated = Some(s.clock.Now())
	s.mu.Unlock()

	s.notifyResultReceived(r, ResultReasonFinal)
	s.notifyStateChanged()
}

// Subscribe registers h and returns a Subscription that unregisters it on
// Cancel. If this is the store's first subscriber, the operation's
// automatic-execution Condition (default: always true) is satisfied, and
// the store's current value is stale, a run is scheduled immediately; that
// run is cancelled if the subscriber count drops back to zero before it
// finishes (an implicit, subscription-triggered run, as opposed to one
// started explicitly via RunTask/Run/Mutate/FetchNextPage, which always
// runs to completion regardless of subscribers).
func (s *Store[V]) Subscribe(h Handler[V]) Subscription {
	s.mu.Lock()
	id := s.subSeq
	s.subSeq++
	s.subs[id] = h
	first := len(s.subs) == 1
	ctx := s.ctx
	s.mu.Unlock()

	if first {
		cond := Get(ctx, AutoExecConditionKey)
		autoExecEnabled := cond == nil || cond.IsSatisfied(ctx)
		if autoExecEnabled && s.IsStale() {
			task := s.RunTask()
			s.mu.Lock()
			s.autoRunTask = task
			s.hasAutoRun = true
			s.mu.Unlock()
		}
	}

	return NewSubscription(func() {
		s.mu.Lock()
		delete(s.subs, id)
		var toCancel Task[V]
		shouldCancel := false
		if len(s.subs) == 0 && s.hasAutoRun {
			toCancel = s.autoRunTask
			shouldCancel = true
			s.hasAutoRun = false
		}
		s.mu.Unlock()
		if shouldCancel {
			toCancel.Cancel()
		}
	})
}

// RunTask schedules a new run using the store's current Context and
// returns its Task without waiting for it to finish.
func (s *Store[V]) RunTask() Task[V] {
	return s.runWith(context.Background(), s.Context())
}

// Run schedules a new run and waits for its result, or for ctx to be
// cancelled (which only stops this caller from waiting — the run itself
// continues to completion).
func (s *Store[V]) Run(ctx context.Context) (V, error) {
	t := s.runWith(context.Background(), s.Context())
	return t.RunIfNeeded(ctx)
}

// runWith is the shared entry point every public Run/Mutate/FetchNextPage
// style method funnels through, parameterized by the exact opCtx the run
// body should observe (e.g. with MutationArgsKey or PagingRequestKey set).
func (s *Store[V]) runWith(goCtx context.Context, opCtx Context) Task[V] {
	cont := newContinuation(func(r Result[V], yieldCtx Context) {
		effective := opCtx
		if yieldCtx.Defined() {
			effective = yieldCtx
		}
		effective = With(effective, ResultUpdateReasonKey, ResultReasonYielded)
		s.handleYielded(r, effective)
	})

	joined := new(bool)
	taskCtx := With(opCtx, dedupJoinedKey, joined)
	work := func(runCtx context.Context, taskID uint64) (V, error) {
		runningCtx := With(taskCtx, RunningTaskIDKey, taskID)
		res := s.runFn(runCtx, runningCtx, cont)
		return res.Value, res.Err
	}
	task := NewTask[V](taskCtx, work)

	s.mu.Lock()
	s.reducer.Schedule(task)
	s.mu.Unlock()
	s.notifyStateChanged()

	task.Start()
	s.notifyRunStarted()

	go func() {
		v, err := task.RunIfNeeded(context.Background())
		result := Result[V]{Value: v, Err: err}

		s.mu.Lock()
		if *joined {
			// A Dedup modifier collapsed this run's body into an
			// already in-flight one: share the originator's result
			// without reconciling it as a second, independent final
			// update (that would double-count value/error updates).
			s.reducer.UpdateByContext(result, With(taskCtx, ResultUpdateReasonKey, ResultReasonYielded))
		} else {
			s.reducer.UpdateForTask(result, task)
			s.lastUpdated = Some(s.clock.Now())
		}
		s.mu.Unlock()
		s.notifyResultReceived(result, ResultReasonFinal)

		s.mu.Lock()
		s.reducer.Finish(task)
		s.mu.Unlock()
		s.notifyStateChanged()
		s.notifyRunEnded()
	}()

	return task
}

func (s *Store[V]) handleYielded(r Result[V], ctx Context) {
	s.notifyResultReceived(r, ResultReasonYielded)

	s.mu.Lock()
	s.reducer.UpdateByContext(r, ctx)
	s.mu.Unlock()
	s.notifyStateChanged()
}

func (s *Store[V]) handlers() []Handler[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Handler[V], 0, len(s.subs))
	for _, h := range s.subs {
		out = append(out, h)
	}
	return out
}

func (s *Store[V]) notifyStateChanged() {
	for _, h := range s.handlers() {
		if h.OnStateChanged != nil {
			h.OnStateChanged()
		}
	}
}

func (s *Store[V]) notifyRunStarted() {
	for _, h := range s.handlers() {
		if h.OnRunStarted != nil {
			h.OnRunStarted()
		}
	}
}

func (s *Store[V]) notifyRunEnded() {
	for _, h := range s.handlers() {
		if h.OnRunEnded != nil {
			h.OnRunEnded()
		}
	}
}

func (s *Store[V]) notifyResultReceived(r Result[V], reason ResultUpdateReason) {
	for _, h := range s.handlers() {
		if h.OnResultReceived != nil {
			h.OnResultReceived(r, reason)
		}
	}
}
