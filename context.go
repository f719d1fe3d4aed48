// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

// Context is handed to a Future's Poll method on every invocation. It
// carries the Waker to register with whatever the future is waiting on,
// and a weak handle back to the owning Runtime.
//
// Unlike languages that resolve "the current runtime" through
// thread-local storage, Context carries it explicitly: a future gets its
// runtime from the same value it already receives every poll, rather
// than through ambient per-thread state that goroutines (which migrate
// across OS threads) can't support anyway.
type Context struct {
	waker Waker
	rt    *Runtime
}

// Waker returns the waker to register before returning pending. It is
// valid for the duration of this Poll call; call Clone on it to retain
// an independently-owned copy beyond that.
func (c *Context) Waker() Waker { return c.waker }

// Runtime returns a weak handle to the runtime driving this task, or
// ErrRuntimeGone if the runtime has since been shut down.
func (c *Context) Runtime() (RuntimeHandle, error) {
	if c.rt == nil || c.rt.closed.Load() {
		return RuntimeHandle{}, ErrRuntimeGone
	}
	return RuntimeHandle{rt: c.rt}, nil
}

// RuntimeHandle is a weak reference to a Runtime: holding one does not
// keep the runtime alive, and Upgrade reports ok=false once the runtime
// has been shut down.
type RuntimeHandle struct {
	rt *Runtime
}

// Upgrade returns the live *Runtime, or ok=false if it has been shut
// down.
func (h RuntimeHandle) Upgrade() (*Runtime, bool) {
	if h.rt == nil || h.rt.closed.Load() {
		return nil, false
	}
	return h.rt, true
}
