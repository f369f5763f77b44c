// Copyright (c) 2015 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package core

// Error is our own defined error type for sending errors over an RPC layer.
// It is a plain integer so it travels over gob cleanly and can be compared
// cheaply, matching the taxonomy in the organizer's error handling design:
// transient resource failures are logged and swallowed by the caller,
// placement failures propagate up as an Error, and fatal OS failures never
// reach this type at all (they call log.Fatalf directly).
type Error int

const (
	// NoError means no error.
	NoError = Error(iota)

	//------ Transient resource failures (logged, non-fatal) ------//

	// ErrBufferNotFound is returned when a BufferID doesn't resolve to a
	// header on the node that's supposed to own it.
	ErrBufferNotFound

	// ErrTargetNotFound is returned when a TargetID isn't known locally.
	ErrTargetNotFound

	// ErrNoCapacity is returned when no target has enough remaining
	// capacity to host a candidate buffer.
	ErrNoCapacity

	// ErrLockFailed is returned when a blob's lock couldn't be acquired.
	ErrLockFailed

	// ErrQueueFull describes a task submitted when the worker pool's
	// configured queue depth bound has been reached. The organizer's Pool
	// itself reports that case with its own organizer.ErrQueueFull.
	ErrQueueFull

	//------ Placement failures ------//

	// ErrPlacementFailed is returned when the placement engine can't find a
	// schema that satisfies a requested size.
	ErrPlacementFailed

	// ErrNoSuchBlob is returned when a blob ID doesn't resolve in metadata.
	ErrNoSuchBlob

	//------ Meta-errors ------//

	// ErrInvalidArgument is returned for malformed caller input.
	ErrInvalidArgument

	// ErrRPC is a catch-all for transport-level RPC failures.
	ErrRPC

	// ErrNotOwner is returned when a request naming a bucket/blob/vbucket
	// is handled by a node that the name doesn't hash to.
	ErrNotOwner
)

var description = map[Error]string{
	NoError: "no error",

	ErrBufferNotFound: "buffer id not found on this node",
	ErrTargetNotFound: "target id not found",
	ErrNoCapacity:     "no target has sufficient remaining capacity",
	ErrLockFailed:     "couldn't acquire blob lock",
	ErrQueueFull:      "worker pool queue is full",

	ErrPlacementFailed: "placement engine could not produce a schema",
	ErrNoSuchBlob:       "blob does not exist",

	ErrInvalidArgument: "invalid argument",
	ErrRPC:             "RPC-level error",
	ErrNotOwner:        "this node does not own the requested name",
}

// String returns a human readable error message.
func (e Error) String() string {
	if s, ok := description[e]; ok {
		return s
	}
	return "no description for error, fix this"
}

// Error returns a golang error object with an error message corresponding to
// this core.Error, or nil if e is NoError.
func (e Error) Error() error {
	if e == NoError {
		return nil
	}
	return goError(e)
}

// Is checks whether the generic Go error 'g' is exactly the receiver's Go
// form, as returned by Error. It does not unwrap g; for a wrapped error,
// errors.Is(err, e.Error()) matches, since Go forms of equal Errors compare
// equal.
func (e Error) Is(g error) bool {
	b, ok := g.(goError)
	return ok && (Error)(b) == e
}

// goError is a wrapper type to make our Error act like Go's 'error'.
type goError Error

// Error implements the 'error' interface.
func (g goError) Error() string {
	return (Error)(g).String()
}

// FromError extracts the underlying core.Error from a Go error produced by
// Error.Error, if there is one.
func FromError(err error) (Error, bool) {
	e, ok := err.(goError)
	return Error(e), ok
}

// IsRetriable reports whether the operation that produced err might succeed
// if retried. The organizer itself never retries (see §7 of the design);
// this is exposed for collaborators that do.
func IsRetriable(err Error) bool {
	switch err {
	case ErrRPC, ErrLockFailed, ErrQueueFull:
		return true
	}
	return false
}
