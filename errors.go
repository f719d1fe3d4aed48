// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	"errors"
	"fmt"
)

var (
	// ErrRuntimeShutdown is returned by Spawn and BlockOn once Shutdown
	// has been called (or is in progress) against the Runtime.
	ErrRuntimeShutdown = errors.New("rt: runtime is shut down")

	// ErrRuntimeGone is returned by Context.Runtime when the owning
	// Runtime has already been shut down by the time a task asks for it.
	ErrRuntimeGone = errors.New("rt: runtime handle no longer valid")

	// ErrUnregisteredSource is returned by reactor operations against a
	// file descriptor that was never registered, or was already
	// deregistered.
	ErrUnregisteredSource = errors.New("rt: fd not registered with reactor")

	// ErrFDAlreadyRegistered is returned by Reactor.Register when the fd
	// is already tracked.
	ErrFDAlreadyRegistered = errors.New("rt: fd already registered with reactor")

	// ErrWakerListFull is the panic value raised when a single reactor
	// source's read or write waker list would exceed its capacity. This
	// indicates far more concurrent waiters on one fd than any single
	// connection should ever have; it is a programming error, not a
	// recoverable runtime condition, so it panics rather than returning
	// an error a caller could silently ignore.
	ErrWakerListFull = errors.New("rt: reactor waker list at capacity")
)

// ShutdownError wraps a recovered task panic value. BlockOn returns it
// when the root task panics, which aborts BlockOn itself, since there's
// no other owner left to observe the task's failure. A spawned task's
// panic is instead caught, logged, and treated as task completion; its
// Handle's Err then reports it as a ShutdownError too.
type ShutdownError struct {
	Cause error // non-nil if the panic value was an error
	Value any   // the raw recovered panic value
}

func (e *ShutdownError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rt: task panicked: %v", e.Cause)
	}
	return fmt.Sprintf("rt: task panicked: %v", e.Value)
}

func (e *ShutdownError) Unwrap() error {
	return e.Cause
}

func newShutdownError(v any) *ShutdownError {
	err, _ := v.(error)
	return &ShutdownError{Cause: err, Value: v}
}

// SelectorError wraps a syscall failure from the platform-specific
// readiness backend (epoll on Linux, kqueue on Darwin).
type SelectorError struct {
	Op  string // "new", "register" (also covers re-registration), "deregister", "pulse", "close"
	Err error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("rt: selector %s: %v", e.Op, e.Err)
}

func (e *SelectorError) Unwrap() error {
	return e.Err
}
