// Package operation provides an asynchronous operation state-management
// engine: a generic runtime for queries, paginated queries, and mutations
// that manages long-lived per-operation state, coordinates concurrent
// executions, and pushes events to subscribers.
package operation

import "errors"

// ErrCancelled is the sentinel error stored in a Task's result (and
// surfaced through a Store's state) when work is cancelled, either before
// it starts or while in flight. Compare with errors.Is, not ==, since the
// error may be wrapped by a Task or a modifier on its way to the caller.
var ErrCancelled = errors.New("operation: cancelled")

// ErrNoArguments is returned by a Mutation's run when ctx carries no
// mutation arguments and the store's history is empty, so there is
// nothing to retry.
var ErrNoArguments = errors.New("operation: no arguments provided and no prior mutation to retry")

// ErrInvalidRetryPolicy names a retry policy whose limit or delay bounds
// are nonsensical. RetryPolicy is not validated, and no function in this
// package returns this error.
var ErrInvalidRetryPolicy = errors.New("operation: invalid retry policy")

// ErrNoNextPage is returned by FetchNextPage when pages are already loaded
// and no next page id is known. A store with no pages fetches its initial
// page instead.
var ErrNoNextPage = errors.New("operation: no next page available")

// ErrNoPreviousPage is returned by FetchPreviousPage when pages are already
// loaded and no previous page id is known. A store with no pages fetches
// its initial page instead.
var ErrNoPreviousPage = errors.New("operation: no previous page available")

// DuplicatePathTypeMismatchError is the non-fatal diagnostic raised when a
// Client.Store call is made for a path that already has a store of a
// different state type recorded. The returned store in that case is
// transient: it is not retained in the client's cache.
type DuplicatePathTypeMismatchError struct {
	Path Path
	Have string
	Want string
}

func (e *DuplicatePathTypeMismatchError) Error() string {
	return "operation: path " + e.Path.String() + " already holds a store of type " + e.Have + ", got " + e.Want
}

// TaskError wraps an error produced by a Task's work closure with context
// about which task produced it (message + cause, Unwrap-able).
type TaskError struct {
	TaskID  uint64
	Message string
	Cause   error
}

func (e *TaskError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "operation: task failed"
}

func (e *TaskError) Unwrap() error { return e.Cause }

// IsCancelled reports whether err is, or wraps, ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
