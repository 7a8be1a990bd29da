package operation

import "context"

// PaginatedStore is a Store specialized for a paginated query.
type PaginatedStore[PID comparable, PV any] struct {
	*Store[PaginatedRunResult[PID, PV]]
	state *PaginatedState[PID, PV]
}

// NewPaginatedStore builds a PaginatedStore at path running op, anchored
// at initialPageID.
func NewPaginatedStore[PID comparable, PV any](path Path, op *Operation[PaginatedRunResult[PID, PV]], initialPageID PID, baseCtx Context, clock Clock) *PaginatedStore[PID, PV] {
	if clock == nil {
		clock = SystemClock{}
	}
	state := NewPaginatedState[PID, PV](initialPageID, clock)
	return &PaginatedStore[PID, PV]{
		Store: newStore[PaginatedRunResult[PID, PV]](path, op, state, baseCtx, clock),
		state: state,
	}
}

// Pages returns a snapshot of every currently known page, in order.
func (p *PaginatedStore[PID, PV]) Pages() []Page[PID, PV] {
	var out []Page[PID, PV]
	p.WithExclusiveAccess(func() { out = append(out, p.state.Pages...) })
	return out
}

// HasNextPage reports whether a next page id is currently known.
func (p *PaginatedStore[PID, PV]) HasNextPage() bool {
	var has bool
	p.WithExclusiveAccess(func() { has = p.state.HasNextPage() })
	return has
}

// HasPreviousPage reports whether a previous page id is currently known.
func (p *PaginatedStore[PID, PV]) HasPreviousPage() bool {
	var has bool
	p.WithExclusiveAccess(func() { has = p.state.HasPreviousPage() })
	return has
}

// FetchNextPage fetches the page after the last known page and waits for
// its result. On an empty paginated state (no pages fetched yet), it
// fetches the initial page instead. It fails with ErrNoNextPage only when
// pages are already loaded and none of them has a known successor.
func (p *PaginatedStore[PID, PV]) FetchNextPage(ctx context.Context) (PaginatedRunResult[PID, PV], error) {
	return p.FetchNextPageTask().RunIfNeeded(ctx)
}

// FetchNextPageTask is FetchNextPage without waiting for the result.
func (p *PaginatedStore[PID, PV]) FetchNextPageTask() Task[PaginatedRunResult[PID, PV]] {
	if p.isEmpty() {
		return p.runWith(context.Background(), p.Context())
	}
	id, ok := p.nextPageID()
	if !ok {
		return failedTask[PaginatedRunResult[PID, PV]](p.Context(), ErrNoNextPage)
	}
	req := PagingRequest{Kind: PagingNext, PageID: id}
	opCtx := With(p.Context(), PagingRequestKey, req)
	return p.runWith(context.Background(), opCtx)
}

// FetchPreviousPage fetches the page before the first known page and
// waits for its result. On an empty paginated state (no pages fetched
// yet), it fetches the initial page instead. It fails with
// ErrNoPreviousPage only when pages are already loaded and none of them
// has a known predecessor.
func (p *PaginatedStore[PID, PV]) FetchPreviousPage(ctx context.Context) (PaginatedRunResult[PID, PV], error) {
	return p.FetchPreviousPageTask().RunIfNeeded(ctx)
}

// FetchPreviousPageTask is FetchPreviousPage without waiting for the result.
func (p *PaginatedStore[PID, PV]) FetchPreviousPageTask() Task[PaginatedRunResult[PID, PV]] {
	if p.isEmpty() {
		return p.runWith(context.Background(), p.Context())
	}
	id, ok := p.previousPageID()
	if !ok {
		return failedTask[PaginatedRunResult[PID, PV]](p.Context(), ErrNoPreviousPage)
	}
	req := PagingRequest{Kind: PagingPrevious, PageID: id}
	opCtx := With(p.Context(), PagingRequestKey, req)
	return p.runWith(context.Background(), opCtx)
}

// isEmpty reports whether no page has been fetched yet, the boundary case
// where fetch_next_page/fetch_previous_page fall back to the initial page.
func (p *PaginatedStore[PID, PV]) isEmpty() bool {
	var empty bool
	p.WithExclusiveAccess(func() { empty = len(p.state.Pages) == 0 })
	return empty
}

// RefetchAllPages re-fetches every currently known page, in order, and
// waits for the combined result.
func (p *PaginatedStore[PID, PV]) RefetchAllPages(ctx context.Context) (PaginatedRunResult[PID, PV], error) {
	return p.RefetchAllPagesTask().RunIfNeeded(ctx)
}

// RefetchAllPagesTask is RefetchAllPages without waiting for the result.
func (p *PaginatedStore[PID, PV]) RefetchAllPagesTask() Task[PaginatedRunResult[PID, PV]] {
	tracker := p.pagesSnapshot()
	opCtx := With(p.Context(), PagingRequestKey, PagingRequest{Kind: PagingAll})
	opCtx = With(opCtx, pagesTrackerKey, tracker)
	return p.runWith(context.Background(), opCtx)
}

func (p *PaginatedStore[PID, PV]) nextPageID() (PID, bool) {
	var id PID
	var ok bool
	p.WithExclusiveAccess(func() { id, ok = p.state.NextPageID.Get() })
	return id, ok
}

func (p *PaginatedStore[PID, PV]) previousPageID() (PID, bool) {
	var id PID
	var ok bool
	p.WithExclusiveAccess(func() { id, ok = p.state.PreviousPageID.Get() })
	return id, ok
}

func (p *PaginatedStore[PID, PV]) pagesSnapshot() pagesTracker {
	var ids []pageIDOnly
	p.WithExclusiveAccess(func() {
		ids = make([]pageIDOnly, len(p.state.Pages))
		for i, pg := range p.state.Pages {
			ids[i] = pageIDOnly{id: pg.ID}
		}
	})
	return pagesTracker{pages: ids}
}

// failedTask returns a Task that, once started, immediately finishes with
// err without ever invoking the operation's run body.
func failedTask[V any](ctx Context, err error) Task[V] {
	t := NewTask[V](ctx, func(context.Context, uint64) (V, error) {
		var zero V
		return zero, err
	})
	t.Start()
	return t
}
