// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

// Future is a single poll-driven computation: the unit of work the
// runtime schedules. Poll returns (zero, false) when the future cannot
// yet make progress; before doing so it must arrange for cx.Waker() (or
// a Clone of it) to eventually be woken, or the task will never be
// polled again.
type Future[T any] interface {
	Poll(cx *Context) (T, bool)
}

// FutureFunc adapts a plain poll function to the Future interface,
// mirroring the common http.HandlerFunc shape for single-method
// interfaces.
type FutureFunc[T any] func(cx *Context) (T, bool)

// Poll implements Future.
func (f FutureFunc[T]) Poll(cx *Context) (T, bool) { return f(cx) }
