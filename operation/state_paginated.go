package operation

import "time"

// Page is a single fetched page of a paginated operation, keyed by a
// caller-defined page id.
type Page[PID comparable, PV any] struct {
	ID    PID
	Value PV
}

// PaginatedRunResult is the value every task of a paginated operation's
// run produces. Exactly one of Page or Pages is populated,
// matching Kind: Initial/Next/Previous populate Page (plus the newly
// recomputed neighbor id), All populates Pages (the full, freshly fetched
// list, in order).
type PaginatedRunResult[PID comparable, PV any] struct {
	Kind           PagingKind
	Page           Page[PID, PV]
	Pages          []Page[PID, PV]
	NextPageID     Option[PID]
	PreviousPageID Option[PID]
}

// PaginatedState is the OperationState variant backing a paginated query
// keyed by page id.
type PaginatedState[PID comparable, PV any] struct {
	Pages          []Page[PID, PV]
	InitialPageID  PID
	NextPageID     Option[PID]
	PreviousPageID Option[PID]

	Error            error
	ErrorUpdateCount int
	ErrorLastUpdated Option[time.Time]
	ValueUpdateCount int
	ValueLastUpdated Option[time.Time]

	initialTasks  *TaskSet[PaginatedRunResult[PID, PV]]
	nextTasks     *TaskSet[PaginatedRunResult[PID, PV]]
	previousTasks *TaskSet[PaginatedRunResult[PID, PV]]
	allTasks      *TaskSet[PaginatedRunResult[PID, PV]]
	clock         Clock
}

// NewPaginatedState returns an empty PaginatedState anchored at
// initialPageID.
func NewPaginatedState[PID comparable, PV any](initialPageID PID, clock Clock) *PaginatedState[PID, PV] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &PaginatedState[PID, PV]{
		InitialPageID: initialPageID,
		initialTasks:  NewTaskSet[PaginatedRunResult[PID, PV]](),
		nextTasks:     NewTaskSet[PaginatedRunResult[PID, PV]](),
		previousTasks: NewTaskSet[PaginatedRunResult[PID, PV]](),
		allTasks:      NewTaskSet[PaginatedRunResult[PID, PV]](),
		clock:         clock,
	}
}

type pv[PID comparable, PV any] = PaginatedRunResult[PID, PV]

// Schedule implements Reducer, enforcing the ordering rules:
// next/previous run after all initial/all-pages tasks; all-pages runs
// after all initial/next/previous tasks.
func (s *PaginatedState[PID, PV]) Schedule(t Task[pv[PID, PV]]) {
	req := Get(t.Context(), PagingRequestKey)
	switch req.Kind {
	case PagingNext:
		for _, d := range s.initialTasks.Slice() {
			ScheduleAfter(t, d)
		}
		for _, d := range s.allTasks.Slice() {
			ScheduleAfter(t, d)
		}
		s.nextTasks.Add(t)
	case PagingPrevious:
		for _, d := range s.initialTasks.Slice() {
			ScheduleAfter(t, d)
		}
		for _, d := range s.allTasks.Slice() {
			ScheduleAfter(t, d)
		}
		s.previousTasks.Add(t)
	case PagingAll:
		for _, d := range s.initialTasks.Slice() {
			ScheduleAfter(t, d)
		}
		for _, d := range s.nextTasks.Slice() {
			ScheduleAfter(t, d)
		}
		for _, d := range s.previousTasks.Slice() {
			ScheduleAfter(t, d)
		}
		s.allTasks.Add(t)
	default: // PagingInitial
		s.initialTasks.Add(t)
	}
}

// UpdateForTask implements Reducer.
func (s *PaginatedState[PID, PV]) UpdateForTask(r Result[pv[PID, PV]], t Task[pv[PID, PV]]) {
	s.apply(r, true)
}

// UpdateByContext implements Reducer.
func (s *PaginatedState[PID, PV]) UpdateByContext(r Result[pv[PID, PV]], ctx Context) {
	final := Get(ctx, ResultUpdateReasonKey) == ResultReasonFinal
	s.apply(r, final)
}

func (s *PaginatedState[PID, PV]) apply(r Result[pv[PID, PV]], countsAsUpdate bool) {
	now := s.clock.Now()
	if !r.IsOk() {
		s.Error = r.Err
		if countsAsUpdate {
			s.ErrorUpdateCount++
			s.ErrorLastUpdated = Some(now)
		}
		return
	}
	s.Error = nil
	v := r.Value
	switch v.Kind {
	case PagingInitial:
		s.Pages = []Page[PID, PV]{v.Page}
		s.NextPageID = v.NextPageID
		s.PreviousPageID = v.PreviousPageID
	case PagingNext:
		s.Pages = appendPage(s.Pages, v.Page)
		s.NextPageID = v.NextPageID
	case PagingPrevious:
		s.Pages = prependPage(s.Pages, v.Page)
		s.PreviousPageID = v.PreviousPageID
	case PagingAll:
		s.Pages = dedupeByID(v.Pages)
		s.NextPageID = v.NextPageID
		s.PreviousPageID = v.PreviousPageID
	}
	if countsAsUpdate {
		s.ValueUpdateCount++
		s.ValueLastUpdated = Some(now)
	}
}

func appendPage[PID comparable, PV any](pages []Page[PID, PV], p Page[PID, PV]) []Page[PID, PV] {
	for _, existing := range pages {
		if existing.ID == p.ID {
			return pages
		}
	}
	return append(pages, p)
}

func prependPage[PID comparable, PV any](pages []Page[PID, PV], p Page[PID, PV]) []Page[PID, PV] {
	for _, existing := range pages {
		if existing.ID == p.ID {
			return pages
		}
	}
	out := make([]Page[PID, PV], 0, len(pages)+1)
	out = append(out, p)
	out = append(out, pages...)
	return out
}

func dedupeByID[PID comparable, PV any](pages []Page[PID, PV]) []Page[PID, PV] {
	seen := make(map[PID]bool, len(pages))
	out := make([]Page[PID, PV], 0, len(pages))
	for _, p := range pages {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// Finish implements Reducer.
func (s *PaginatedState[PID, PV]) Finish(t Task[pv[PID, PV]]) {
	s.initialTasks.Remove(t.ID())
	s.nextTasks.Remove(t.ID())
	s.previousTasks.Remove(t.ID())
	s.allTasks.Remove(t.ID())
}

// Reset implements Reducer.
func (s *PaginatedState[PID, PV]) Reset(ctx Context) []Task[pv[PID, PV]] {
	var tasks []Task[pv[PID, PV]]
	tasks = append(tasks, s.initialTasks.Slice()...)
	tasks = append(tasks, s.nextTasks.Slice()...)
	tasks = append(tasks, s.previousTasks.Slice()...)
	tasks = append(tasks, s.allTasks.Slice()...)

	s.initialTasks = NewTaskSet[pv[PID, PV]]()
	s.nextTasks = NewTaskSet[pv[PID, PV]]()
	s.previousTasks = NewTaskSet[pv[PID, PV]]()
	s.allTasks = NewTaskSet[pv[PID, PV]]()
	s.Pages = nil
	s.NextPageID = None[PID]()
	s.PreviousPageID = None[PID]()
	s.Error = nil
	s.ValueUpdateCount = 0
	s.ErrorUpdateCount = 0
	s.ValueLastUpdated = None[time.Time]()
	s.ErrorLastUpdated = None[time.Time]()
	return tasks
}

// IsLoading implements Reducer.
func (s *PaginatedState[PID, PV]) IsLoading() bool {
	return s.initialTasks.Len() > 0 || s.nextTasks.Len() > 0 || s.previousTasks.Len() > 0 || s.allTasks.Len() > 0
}

// HasNextPage reports whether a next page id is currently known.
func (s *PaginatedState[PID, PV]) HasNextPage() bool { return s.NextPageID.Valid }

// HasPreviousPage reports whether a previous page id is currently known.
func (s *PaginatedState[PID, PV]) HasPreviousPage() bool { return s.PreviousPageID.Valid }
