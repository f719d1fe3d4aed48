// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package rt implements a from-scratch cooperative async runtime: a task
// executor paired with an I/O reactor.
//
// A Future[T] is polled to completion by a worker goroutine. Futures that
// cannot make progress register a Waker with whatever they're waiting on
// (another task's Handle, a reactor-backed TCPStream, ...) and return
// (zero, false); the runtime never polls a task that hasn't been woken
// since its last pending result.
//
// Spawn hands a Future to the runtime and returns a Handle[T] the caller
// can poll for the result. BlockOn drives a root Future on the calling
// goroutine, running the executor's driver loop until that Future
// completes; concurrently spawned tasks are dispatched across a fixed
// worker pool sized from GOMAXPROCS by default.
//
// Every task is reference counted: the registry, the task's own
// poll-waker slot, the caller's Handle (or BlockOn's stack frame for the
// root task), and any reactor-source waker clone each hold one reference.
// The task is destroyed exactly once, when the count reaches zero.
package rt
