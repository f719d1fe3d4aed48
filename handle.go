// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	"runtime"
	"sync/atomic"
)

// Handle is the caller-facing awaitable returned by Spawn. It implements
// Future[T] itself, so a spawned task's result can be awaited from
// inside another task's Poll by delegating to it, or driven directly
// from BlockOn.
//
// Holding a Handle contributes one reference to the spawned task. Close
// releases it; a finalizer also calls Close as a safety net for a
// forgotten one, the same way *os.File guards against a missing Close,
// but that is not a substitute for calling it explicitly - the
// finalizer runs on the next GC cycle that notices the Handle is
// unreachable, which may be arbitrarily later.
//
// Awaiting a Handle a second time, after its result has already been
// taken, deterministically reports ready with the zero value of T - it
// never blocks forever, and it never panics.
type Handle[T any] struct {
	header *taskHeader
	closed atomic.Bool
	err    error
}

func newHandle[T any](h *taskHeader) *Handle[T] {
	handle := &Handle[T]{header: h}
	runtime.SetFinalizer(handle, func(h *Handle[T]) { h.Close() })
	return handle
}

// Poll implements Future[T]. If the spawned task panicked, Poll reports
// ready with the zero value of T; the panic is available from Err
// afterwards.
func (h *Handle[T]) Poll(cx *Context) (T, bool) {
	var out any
	ready := h.header.vt.review(h.header, &out, cx.Waker())
	if !ready {
		var zero T
		return zero, false
	}
	h.err = nil
	switch v := out.(type) {
	case consumedMarker:
		var zero T
		return zero, true
	case taskPanicMarker:
		h.err = newShutdownError(v.value)
		var zero T
		return zero, true
	default:
		return v.(T), true
	}
}

// Err returns the task's panic, if Poll's last ready result was caused
// by one. Returns nil otherwise, including for the "already consumed"
// case.
func (h *Handle[T]) Err() error {
	return h.err
}

// Close releases this Handle's reference to the spawned task. Safe to
// call more than once; only the first call has any effect.
func (h *Handle[T]) Close() {
	if h.closed.CompareAndSwap(false, true) {
		h.header.refDec()
	}
}
