// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

// Waker is a cheap, cloneable handle that reschedules a task for polling.
// The zero Waker is valid and inert: every method on it is a no-op.
//
// Waker follows an explicit ownership contract: Clone produces a new,
// independently-owned reference (incrementing the task's refcount); Drop
// releases one (decrementing it); Wake is WakeByRef followed by Drop,
// for the common case of a one-shot waker that won't be used again.
type Waker struct {
	h *taskHeader
}

// Clone returns a new Waker referencing the same task, incrementing its
// refcount. The original remains valid and must still be separately
// dropped.
func (w Waker) Clone() Waker {
	if w.h != nil {
		w.h.refInc()
	}
	return w
}

// WakeByRef reschedules the task without consuming this Waker's
// reference; the caller retains ownership and may call WakeByRef or Wake
// again later.
func (w Waker) WakeByRef() {
	if w.h == nil {
		return
	}
	w.h.notify.send(w.h.id)
}

// Wake reschedules the task and consumes this Waker's reference. Use
// WakeByRef instead if the caller intends to keep using w afterwards.
func (w Waker) Wake() {
	w.WakeByRef()
	w.Drop()
}

// Drop releases this Waker's reference without waking the task. Required
// whenever a Waker is discarded without ever being woken, so the task's
// refcount still reaches zero.
func (w Waker) Drop() {
	if w.h != nil {
		w.h.refDec()
	}
}
