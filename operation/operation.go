package operation

import "context"

// RunFunc is the uniform entry point every operation variant compiles
// down to: given a cancellable go context, the store's Context, and a
// Continuation for publishing intermediate values, produce a Result.
// Modifiers wrap RunFunc values; the three operation variants (Query,
// Paginated, Mutation) are adapters that build a RunFunc from a more
// ergonomic, domain-shaped function.
type RunFunc[V any] func(ctx context.Context, opCtx Context, cont Continuation[V]) Result[V]

// Modifier wraps an operation's run function and may publish defaults
// into the Context during Setup. Composition is left to
// right: op.Modifier(A).Modifier(B) builds B(A(base)) — B is outermost.
type Modifier[V any] interface {
	// Setup is invoked once, when the owning store is created, in
	// outer-to-inner order across a chain, so each modifier may publish
	// defaults into the context that inner layers observe.
	Setup(ctx Context) Context

	// Wrap returns a RunFunc that runs next, plus whatever behavior this
	// modifier adds (retry loop, dedup registry lookup, etc).
	Wrap(next RunFunc[V]) RunFunc[V]
}

// Operation is a path-addressed, modifier-composable unit of async work.
// Operation is immutable; Modifier returns a new Operation with the given
// modifier appended to the outer end of the chain.
type Operation[V any] struct {
	path      Path
	base      RunFunc[V]
	modifiers []Modifier[V]
}

// NewOperation constructs an Operation at path whose unmodified body is run.
func NewOperation[V any](path Path, run RunFunc[V]) *Operation[V] {
	return &Operation[V]{path: path, base: run}
}

// Path returns the operation's cache key.
func (o *Operation[V]) Path() Path { return o.path }

// Modifier returns a new Operation with m appended as the new outermost
// layer: the returned operation's run is m.Wrap(o's current run).
func (o *Operation[V]) Modifier(m Modifier[V]) *Operation[V] {
	next := &Operation[V]{path: o.path, base: o.base}
	next.modifiers = make([]Modifier[V], len(o.modifiers)+1)
	copy(next.modifiers, o.modifiers)
	next.modifiers[len(o.modifiers)] = m
	return next
}

// build composes the operation's full run function and applies every
// modifier's Setup, outer-to-inner, to baseCtx. It is called exactly once,
// by the store that owns this operation.
func (o *Operation[V]) build(baseCtx Context) (RunFunc[V], Context) {
	ctx := baseCtx
	for i := len(o.modifiers) - 1; i >= 0; i-- {
		ctx = o.modifiers[i].Setup(ctx)
	}
	run := o.base
	for _, m := range o.modifiers {
		run = m.Wrap(run)
	}
	return run, ctx
}

// QueryBody is the function application code provides for a query: fetch
// a value or fail.
type QueryBody[V any] func(ctx context.Context, opCtx Context, cont Continuation[V]) (V, error)

// NewQuery builds an Operation from a QueryBody.
func NewQuery[V any](path Path, body QueryBody[V]) *Operation[V] {
	return NewOperation[V](path, func(ctx context.Context, opCtx Context, cont Continuation[V]) Result[V] {
		v, err := body(ctx, opCtx, cont)
		if err != nil {
			return Failed[V](err)
		}
		return Ok(v)
	})
}

// MutationBody is the function application code provides for a mutation:
// given the latest arguments, perform the mutation or fail.
type MutationBody[Args, V any] func(ctx context.Context, opCtx Context, args Args, cont Continuation[V]) (V, error)

// NewMutation builds an Operation from a MutationBody. The store is
// responsible for placing the effective arguments (explicit, or the
// retry-latest fallback) into opCtx under MutationArgsKey before invoking
// the returned run function; NewMutation's wrapper only extracts them.
func NewMutation[Args, V any](path Path, body MutationBody[Args, V]) *Operation[V] {
	return NewOperation[V](path, func(ctx context.Context, opCtx Context, cont Continuation[V]) Result[V] {
		raw := Get(opCtx, MutationArgsKey)
		if raw == nil {
			return Failed[V](ErrNoArguments)
		}
		args, ok := raw.(Args)
		if !ok {
			return Failed[V](ErrNoArguments)
		}
		v, err := body(ctx, opCtx, args, cont)
		if err != nil {
			return Failed[V](err)
		}
		return Ok(v)
	})
}

// PaginatedBody is the set of functions code provides for a paginated
// query.
type PaginatedBody[PID comparable, PV any] struct {
	// InitialPageID is the id of the first page ever fetched.
	InitialPageID PID
	// FetchPage fetches the page identified by the given paging request.
	FetchPage func(ctx context.Context, opCtx Context, req PagingRequest, cont Continuation[PV]) (PV, error)
	// PageIDAfter returns the id of the page after the given one, or
	// None if there isn't one.
	PageIDAfter func(page Page[PID, PV], req PagingRequest, opCtx Context) Option[PID]
	// PageIDBefore returns the id of the page before the given one, or
	// None if there isn't one.
	PageIDBefore func(page Page[PID, PV], req PagingRequest, opCtx Context) Option[PID]
}

// NewPaginated builds an Operation implementing the page-dispatch rules
// from a PaginatedBody.
func NewPaginated[PID comparable, PV any](path Path, body PaginatedBody[PID, PV]) *Operation[PaginatedRunResult[PID, PV]] {
	type result = PaginatedRunResult[PID, PV]
	run := func(ctx context.Context, opCtx Context, cont Continuation[result]) Result[result] {
		req := Get(opCtx, PagingRequestKey)
		pageCont := newContinuation(func(r Result[PV], yieldCtx Context) {
			if r.IsOk() {
				cont.Yield(Ok(result{Kind: req.Kind, Page: Page[PID, PV]{ID: idForYield(req, body), Value: r.Value}}), yieldCtx)
			} else {
				cont.Yield(Failed[result](r.Err), yieldCtx)
			}
		})

		switch req.Kind {
		case PagingNext, PagingPrevious:
			pv, err := body.FetchPage(ctx, opCtx, req, pageCont)
			if err != nil {
				return Failed[result](err)
			}
			page := Page[PID, PV]{ID: idFromRequest(req), Value: pv}
			out := result{Kind: req.Kind, Page: page}
			if req.Kind == PagingNext {
				out.NextPageID = body.PageIDAfter(page, req, opCtx)
			} else {
				out.PreviousPageID = body.PageIDBefore(page, req, opCtx)
			}
			return Ok(out)
		case PagingAll:
			tracker := Get(opCtx, pagesTrackerKey)
			pages := tracker.pages
			refreshed := make([]Page[PID, PV], 0, len(pages))
			for _, p := range pages {
				id, _ := p.id.(PID)
				req := PagingRequest{Kind: PagingAll, PageID: id}
				iterCont := newContinuation(func(r Result[PV], yieldCtx Context) {
					if r.IsOk() {
						cont.Yield(Ok(result{Kind: PagingAll, Page: Page[PID, PV]{ID: id, Value: r.Value}}), yieldCtx)
					} else {
						cont.Yield(Failed[result](r.Err), yieldCtx)
					}
				})
				pv, err := body.FetchPage(ctx, opCtx, req, iterCont)
				if err != nil {
					return Failed[result](err)
				}
				np := Page[PID, PV]{ID: id, Value: pv}
				refreshed = append(refreshed, np)
				if body.PageIDAfter(np, req, opCtx).Valid == false {
					break
				}
			}
			out := result{Kind: PagingAll, Pages: refreshed}
			if len(refreshed) > 0 {
				last := refreshed[len(refreshed)-1]
				out.NextPageID = body.PageIDAfter(last, PagingRequest{Kind: PagingAll, PageID: last.ID}, opCtx)
				first := refreshed[0]
				out.PreviousPageID = body.PageIDBefore(first, PagingRequest{Kind: PagingAll, PageID: first.ID}, opCtx)
			}
			return Ok(out)
		default: // PagingInitial
			initReq := PagingRequest{Kind: PagingInitial, PageID: body.InitialPageID}
			pv, err := body.FetchPage(ctx, opCtx, initReq, pageCont)
			if err != nil {
				return Failed[result](err)
			}
			page := Page[PID, PV]{ID: body.InitialPageID, Value: pv}
			out := result{
				Kind:           PagingInitial,
				Page:           page,
				NextPageID:     body.PageIDAfter(page, initReq, opCtx),
				PreviousPageID: body.PageIDBefore(page, initReq, opCtx),
			}
			return Ok(out)
		}
	}
	return NewOperation[result](path, run)
}

func idFromRequest[PID comparable](req PagingRequest) PID {
	id, _ := req.PageID.(PID)
	return id
}

func idForYield[PID comparable, PV any](req PagingRequest, _ PaginatedBody[PID, PV]) PID {
	return idFromRequest[PID](req)
}

// pagesTrackerKey holds a snapshot of known pages for resuming a
// PagingAll run that was cancelled and re-entered.
var pagesTrackerKey = Key[pagesTracker]{id: keyPagesTracker, Default: pagesTracker{}}

type pagesTracker struct {
	pages []pageIDOnly
}

type pageIDOnly struct{ id any }
