package operation

import "sync"

// contextKey identifies a well-known entry in a Context. Using a private
// type rather than bare strings or ints prevents key collisions across
// packages, same rationale as stdlib context.Context documents.
type contextKey int

const (
	keyClock contextKey = iota
	keyBackoff
	keyDelayer
	keyRetryIndex
	keyRetryLimit
	keyTaskConfig
	keyClient
	keyRunningTaskID
	keyPageFetchType
	keyMutationArgs
	keyStalePredicates
	keyResultUpdateReason
	keyAutoExecCondition
	keyPagingRequest
	keyPagesTracker
	keyController
	keyDedupJoined
	keyEvictableUnderPressure
)

// Key is a statically declared Context entry. K is the value type stored
// under this key. Every Key has a Default value returned by Get when the
// key has never been written.
type Key[K any] struct {
	id      contextKey
	Default K
}

// NewKey declares a new Context key with the given default value. Callers
// outside this package use NewKey to define their own well-known entries
// (e.g. a mutation's argument type) the same way the shipped keys below
// are declared.
func NewKey[K any](def K) Key[K] {
	return Key[K]{id: contextKey(nextCustomKeyID()), Default: def}
}

var customKeySeq struct {
	mu  sync.Mutex
	val int
}

func nextCustomKeyID() int {
	customKeySeq.mu.Lock()
	defer customKeySeq.mu.Unlock()
	customKeySeq.val++
	// Offset well clear of the package's own enumerated keys so custom
	// keys declared by callers never alias a well-known one.
	return customKeySeq.val + 1<<20
}

// entry is one binding stored in a Context's backing table.
type entry struct {
	key   contextKey
	value any
}

// Context is a typed heterogeneous map flowing through every layer of the
// engine: tasks, modifiers, reducers, and operation bodies. It is
// value-semantic: calling With copies the whole backing table into a new
// one and never mutates the receiver, so a run may freely pass its context
// to children without those children observing each other's writes. A
// derived Context shares no storage with the Context it came from.
//
// The zero value is a valid, empty Context.
type Context struct {
	// table is shared only by copies of the same Context value; With
	// copies it into a new slice, so it is never mutated in place once
	// published.
	table *[]entry
}

// Get reads the value stored under key, or key's Default if it has never
// been written in c or any Context c was derived from.
func Get[K any](c Context, key Key[K]) K {
	if c.table != nil {
		for i := len(*c.table) - 1; i >= 0; i-- {
			e := (*c.table)[i]
			if e.key == key.id {
				if v, ok := e.value.(K); ok {
					return v
				}
			}
		}
	}
	return key.Default
}

// With returns a new Context equal to c except that key now maps to
// value. c itself is never mutated, so concurrent readers of c are
// unaffected.
func With[K any](c Context, key Key[K], value K) Context {
	var base []entry
	if c.table != nil {
		base = *c.table
	}
	next := make([]entry, len(base), len(base)+1)
	copy(next, base)
	next = append(next, entry{key: key.id, value: value})
	return Context{table: &next}
}

// Defined reports whether c is a real Context (produced by With) as
// opposed to a Context{} zero value used as a sentinel for "not supplied".
func (c Context) Defined() bool { return c.table != nil }

// Clone returns a deep-enough copy of c: mutating the returned Context via
// With never affects c, and vice versa. Because Context is already
// value-semantic with copy-on-write table, Clone is simply c itself — kept
// as a named operation so callers don't need to reason about the internal
// representation to get clone semantics.
func (c Context) Clone() Context { return c }

// builtin well-known keys.

// ClockKey overrides the wall-clock source used for timestamps.
var ClockKey = Key[Clock]{id: keyClock, Default: SystemClock{}}

// BackoffKey overrides the backoff function consulted by Retry.
var BackoffKey = Key[BackoffFunc]{id: keyBackoff, Default: ConstantBackoff(0)}

// DelayerKey overrides the ambient sleep mechanism.
var DelayerKey = Key[Delayer]{id: keyDelayer, Default: RealDelayer{}}

// RetryIndexKey holds the current (0-based) retry attempt, written by Retry.
var RetryIndexKey = Key[int]{id: keyRetryIndex, Default: 0}

// RetryLimitKey holds the configured retry limit, written by Retry.
var RetryLimitKey = Key[int]{id: keyRetryLimit, Default: 0}

// TaskConfigKey holds executor hints consumed when launching a Task.
var TaskConfigKey = Key[TaskConfig]{id: keyTaskConfig, Default: TaskConfig{}}

// RunningTaskIDKey holds the id of the task currently executing the
// operation body, if any.
var RunningTaskIDKey = Key[uint64]{id: keyRunningTaskID, Default: 0}

// MutationArgsKey holds the arguments for the in-flight mutation run, as
// an any so each Mutation[Args, V] can store its own Args type under it.
var MutationArgsKey = Key[any]{id: keyMutationArgs, Default: nil}

// ResultUpdateReasonKey records why the current result is being reported:
// ResultReasonYielded for an intermediate Continuation.Yield, or
// ResultReasonFinal for the run's terminal result.
var ResultUpdateReasonKey = Key[ResultUpdateReason]{id: keyResultUpdateReason, Default: ResultReasonFinal}

// ResultUpdateReason discriminates yielded from final results as they
// flow through the reducer and subscriber dispatch path.
type ResultUpdateReason int

const (
	// ResultReasonFinal tags a run's terminal result.
	ResultReasonFinal ResultUpdateReason = iota
	// ResultReasonYielded tags an intermediate value published via a
	// Continuation before the run returns.
	ResultReasonYielded
)

// PagingRequestKey holds the paging request descriptor (initial/next/
// previous/all) placed in context by the store before a paginated run.
var PagingRequestKey = Key[PagingRequest]{id: keyPagingRequest, Default: PagingRequest{Kind: PagingInitial}}

// StalePredicatesKey holds every staleness predicate registered by Stale
// modifiers wrapping this operation; a store consults them (OR'd together)
// to decide whether its current value should trigger a refetch on access.
var StalePredicatesKey = Key[[]StalePredicate]{id: keyStalePredicates, Default: nil}

// AutoExecConditionKey holds the Condition (if any) gating whether a store
// automatically runs when it gains its first subscriber.
var AutoExecConditionKey = Key[Condition]{id: keyAutoExecCondition, Default: StaticCondition(true)}

// ClientKey holds the Client that created the store currently running, so
// a run body can reach across to other stores in the same cache.
var ClientKey = Key[*Client]{id: keyClient, Default: nil}

// dedupJoinedKey carries a per-run shared flag a store installs before
// invoking its composed run function: a Dedup modifier sets *flag to true
// when it joins an already in-flight run rather than starting one, so the
// store can reconcile the shared result without bumping update counts a
// second time.
var dedupJoinedKey = Key[*bool]{id: keyDedupJoined, Default: nil}

// EvictableUnderPressureKey marks a store as eligible for removal by the
// Client's memory-pressure eviction, but only while it has zero
// subscribers. Set it via the EvictableUnderPressure modifier.
var EvictableUnderPressureKey = Key[bool]{id: keyEvictableUnderPressure, Default: false}

// TaskConfig carries executor hints for launching a Task's ambient async
// handle: a display name, a priority hint, and an optional executor
// preference (both opaque strings — the concrete async runtime interprets
// them).
type TaskConfig struct {
	Name     string
	Priority string
	Executor string
}
