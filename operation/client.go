package operation

import "sync"

// StoreCache is the pluggable backing storage for a Client's path-addressed
// stores. Implementations never serialize entries to disk; the cache only
// ever holds live, in-memory store instances.
type StoreCache interface {
	// Get returns the store previously recorded at path, its recorded
	// type name, and whether an entry exists.
	Get(path Path) (store any, typeName string, ok bool)
	// Set records store (of the given type name) at path, replacing any
	// existing entry.
	Set(path Path, typeName string, store any)
	// Delete removes any entry at path.
	Delete(path Path)
	// Paths returns every currently recorded path.
	Paths() []Path
}

// MemoryStoreCache is the default StoreCache: a mutex-guarded in-memory
// map. It never touches disk, matching the engine's requirement that all
// state stay in memory for the process lifetime.
type MemoryStoreCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	path     Path
	store    any
	typeName string
}

// NewMemoryStoreCache returns an empty MemoryStoreCache.
func NewMemoryStoreCache() *MemoryStoreCache {
	return &MemoryStoreCache{entries: make(map[string]cacheEntry)}
}

// Get implements StoreCache.
func (c *MemoryStoreCache) Get(path Path) (any, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[string(path.key())]
	if !ok {
		return nil, "", false
	}
	return e.store, e.typeName, true
}

// Set implements StoreCache.
func (c *MemoryStoreCache) Set(path Path, typeName string, store any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[string(path.key())] = cacheEntry{path: path, store: store, typeName: typeName}
}

// Delete implements StoreCache.
func (c *MemoryStoreCache) Delete(path Path) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, string(path.key()))
}

// Paths implements StoreCache.
func (c *MemoryStoreCache) Paths() []Path {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Path, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.path)
	}
	return out
}

// MemoryPressureSource is an optional capability a Client can consult to
// evict stores under memory pressure. Implementations typically wrap an OS
// or container-level signal.
type MemoryPressureSource interface {
	// Subscribe registers handler to be called when memory pressure is
	// detected; the returned Subscription stops delivery.
	Subscribe(handler func()) Subscription
}

// Client owns a cache of live Stores keyed by Path and the default
// Context every Store it creates is built from. A Client never persists
// anything to disk: ClearStore/ClearStores simply drop cache entries, and
// any in-flight tasks on a cleared store's path keep running to
// completion (cancelling them is the caller's job via the Store itself
// before clearing it).
type Client struct {
	cache   StoreCache
	baseCtx Context

	mu       sync.Mutex
	pressure Subscription
}

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithStoreCache overrides the Client's StoreCache (default: a fresh
// MemoryStoreCache).
func WithStoreCache(cache StoreCache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithDefaultContext overrides the base Context every Store the Client
// creates is built from.
func WithDefaultContext(ctx Context) ClientOption {
	return func(c *Client) { c.baseCtx = ctx }
}

// WithMemoryPressureEviction registers source so the Client evicts eligible
// stores whenever memory pressure is signaled: only stores with zero
// subscribers and built with the EvictableUnderPressure modifier enabled
// are dropped, so eviction never cancels an active task for a store with
// live observers.
func WithMemoryPressureEviction(source MemoryPressureSource) ClientOption {
	return func(c *Client) {
		c.pressure = source.Subscribe(func() { c.evictUnderPressure() })
	}
}

// NewClient returns a Client with a MemoryStoreCache and an empty default
// Context, as modified by opts.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{cache: NewMemoryStoreCache()}
	for _, opt := range opts {
		opt(c)
	}
	c.baseCtx = With(c.baseCtx, ClientKey, c)
	return c
}

// ClearStore drops the cached store at path, if any.
func (c *Client) ClearStore(path Path) { c.cache.Delete(path) }

// ClearStores drops every cached store whose path matches matching (nil
// means every cached store).
func (c *Client) ClearStores(matching func(Path) bool) {
	for _, p := range c.Stores(matching) {
		c.cache.Delete(p)
	}
}

// Stores returns the paths of every store matching predicate (nil means
// every path currently cached).
func (c *Client) Stores(matching func(Path) bool) []Path {
	all := c.cache.Paths()
	if matching == nil {
		return all
	}
	out := make([]Path, 0, len(all))
	for _, p := range all {
		if matching(p) {
			out = append(out, p)
		}
	}
	return out
}

// StoresOfType returns the paths of every store matching predicate (nil
// means every cached store) whose recorded type name equals typeName
// ("QueryStore", "PaginatedStore", or "MutationStore"). Because Go erases
// a cached store's generic value type once it is boxed as any, this
// filter can only discriminate by store kind, not by the concrete
// StateType a caller has in mind; callers wanting a specific StateType
// must type-assert the returned stores themselves.
func (c *Client) StoresOfType(matching func(Path) bool, typeName string) []Path {
	all := c.Stores(matching)
	out := make([]Path, 0, len(all))
	for _, p := range all {
		if _, have, ok := c.cache.Get(p); ok && have == typeName {
			out = append(out, p)
		}
	}
	return out
}

// StoreScope is the scoped view a WithStores/WithStoresResult closure
// receives: Paths lists the stores currently matching the scope, Remove
// evicts one of them, and the package-level CreateQueryStoreIn,
// CreatePaginatedStoreIn, and CreateMutationStoreIn functions add new
// stores through the scope's Client, so additions pick up the same
// default Context and cache as any direct QueryStoreFor/PaginatedStoreFor/
// MutationStoreFor call.
type StoreScope struct {
	client   *Client
	matching func(Path) bool
}

// Paths returns the paths currently matching the scope.
func (s *StoreScope) Paths() []Path { return s.client.Stores(s.matching) }

// Remove drops path from the scope's Client cache.
func (s *StoreScope) Remove(path Path) { s.client.cache.Delete(path) }

// CreateQueryStoreIn adds (or returns the existing) QueryStore at path in
// scope's Client.
func CreateQueryStoreIn[V any](scope *StoreScope, path Path, op *Operation[V], initial Option[V]) (*QueryStore[V], error) {
	return QueryStoreFor[V](scope.client, path, op, initial)
}

// CreatePaginatedStoreIn adds (or returns the existing) PaginatedStore at
// path in scope's Client.
func CreatePaginatedStoreIn[PID comparable, PV any](scope *StoreScope, path Path, op *Operation[PaginatedRunResult[PID, PV]], initialPageID PID) (*PaginatedStore[PID, PV], error) {
	return PaginatedStoreFor[PID, PV](scope.client, path, op, initialPageID)
}

// CreateMutationStoreIn adds (or returns the existing) MutationStore at
// path in scope's Client.
func CreateMutationStoreIn[Args any, V any](scope *StoreScope, path Path, op *Operation[V]) (*MutationStore[Args, V], error) {
	return MutationStoreFor[Args, V](scope.client, path, op)
}

// WithStores invokes perform with a StoreScope over every store whose path
// satisfies matching (nil means every cached store).
func (c *Client) WithStores(matching func(Path) bool, perform func(scope *StoreScope)) {
	perform(&StoreScope{client: c, matching: matching})
}

// WithStoresResult is WithStores for a perform closure that returns a
// value, since Go methods can't themselves be generic.
func WithStoresResult[T any](c *Client, matching func(Path) bool, perform func(scope *StoreScope) T) T {
	return perform(&StoreScope{client: c, matching: matching})
}

// pressureEvictable is the capability evictUnderPressure needs from a
// cached store. *Store[V]'s SubscriberCount and Context methods don't
// mention V in their signature, so *QueryStore[V], *PaginatedStore[PID,PV]
// and *MutationStore[Args,V] all satisfy this non-generic interface for
// any type arguments, letting the Client inspect a type-erased cache
// entry without knowing its generic value type.
type pressureEvictable interface {
	SubscriberCount() int
	Context() Context
}

// evictUnderPressure drops every cached store with zero subscribers whose
// Context carries EvictableUnderPressureKey set to true, leaving every
// other store (and any store with a live observer) untouched.
func (c *Client) evictUnderPressure() {
	for _, p := range c.cache.Paths() {
		store, _, ok := c.cache.Get(p)
		if !ok {
			continue
		}
		ev, ok := store.(pressureEvictable)
		if !ok || ev.SubscriberCount() != 0 {
			continue
		}
		if !Get(ev.Context(), EvictableUnderPressureKey) {
			continue
		}
		c.cache.Delete(p)
	}
}

// QueryStoreFor returns the QueryStore cached at path, creating it via op
// and initial if it doesn't exist yet. It returns a
// *DuplicatePathTypeMismatchError (and a transient, uncached store) if path
// already holds a store of a different type.
func QueryStoreFor[V any](c *Client, path Path, op *Operation[V], initial Option[V]) (*QueryStore[V], error) {
	const typeName = "QueryStore"
	if existing, have, ok := c.cache.Get(path); ok {
		if have != typeName {
			return NewQueryStore[V](path, op, initial, c.baseCtx, nil), &DuplicatePathTypeMismatchError{Path: path, Have: have, Want: typeName}
		}
		return existing.(*QueryStore[V]), nil
	}
	store := NewQueryStore[V](path, op, initial, c.baseCtx, nil)
	c.cache.Set(path, typeName, store)
	return store, nil
}

// PaginatedStoreFor returns the PaginatedStore cached at path, creating it
// via op and initialPageID if it doesn't exist yet.
func PaginatedStoreFor[PID comparable, PV any](c *Client, path Path, op *Operation[PaginatedRunResult[PID, PV]], initialPageID PID) (*PaginatedStore[PID, PV], error) {
	const typeName = "PaginatedStore"
	if existing, have, ok := c.cache.Get(path); ok {
		if have != typeName {
			return NewPaginatedStore[PID, PV](path, op, initialPageID, c.baseCtx, nil), &DuplicatePathTypeMismatchError{Path: path, Have: have, Want: typeName}
		}
		return existing.(*PaginatedStore[PID, PV]), nil
	}
	store := NewPaginatedStore[PID, PV](path, op, initialPageID, c.baseCtx, nil)
	c.cache.Set(path, typeName, store)
	return store, nil
}

// MutationStoreFor returns the MutationStore cached at path, creating it
// via op if it doesn't exist yet. Mutations are typically looked up by a
// path that doesn't vary per-call (e.g. {"updateProfile"}), with the
// varying part supplied as Mutate's argument instead.
func MutationStoreFor[Args any, V any](c *Client, path Path, op *Operation[V]) (*MutationStore[Args, V], error) {
	const typeName = "MutationStore"
	if existing, have, ok := c.cache.Get(path); ok {
		if have != typeName {
			return NewMutationStore[Args, V](path, op, c.baseCtx, nil), &DuplicatePathTypeMismatchError{Path: path, Have: have, Want: typeName}
		}
		return existing.(*MutationStore[Args, V]), nil
	}
	store := NewMutationStore[Args, V](path, op, c.baseCtx, nil)
	c.cache.Set(path, typeName, store)
	return store, nil
}

// DefaultQuery builds a query Operation with the engine's default
// resilience policy: up to 3 attempts with no backoff, and single-flight
// dedup across concurrent callers sharing the same path.
func DefaultQuery[V any](path Path, body QueryBody[V]) *Operation[V] {
	return NewQuery[V](path, body).
		Modifier(Retry[V](RetryPolicy{MaxAttempts: 3})).
		Modifier(Dedup[V](nil))
}

// DefaultPaginated builds a paginated Operation with the engine's default
// resilience policy, matching DefaultQuery.
func DefaultPaginated[PID comparable, PV any](path Path, body PaginatedBody[PID, PV]) *Operation[PaginatedRunResult[PID, PV]] {
	return NewPaginated[PID, PV](path, body).
		Modifier(Retry[PaginatedRunResult[PID, PV]](RetryPolicy{MaxAttempts: 3})).
		Modifier(Dedup[PaginatedRunResult[PID, PV]](nil))
}

// DefaultMutation builds a mutation Operation with the engine's default
// resilience policy: up to 3 attempts, no dedup (distinct invocations are
// never equivalent by default).
func DefaultMutation[Args any, V any](path Path, body MutationBody[Args, V]) *Operation[V] {
	return NewMutation[Args, V](path, body).
		Modifier(Retry[V](RetryPolicy{MaxAttempts: 3}))
}
