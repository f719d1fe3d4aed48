// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	"sync"
	"sync/atomic"
)

// dispatch is the monomorphised function table for a task's type-erased
// operations. Only poll, review and destroy touch the task's generic
// output type, so only those three are virtualised; set_waker,
// wake_handle and ref_inc/ref_dec operate purely on taskHeader fields and
// are implemented as ordinary methods below instead of table entries -
// there's nothing for them to dispatch over.
type dispatch struct {
	poll    func(h *taskHeader) bool
	review  func(h *taskHeader, out *any, waker Waker) bool
	destroy func(h *taskHeader)
}

// taskHeader is the non-generic prefix shared by every taskCore[T]. It is
// always the first field of taskCore[T], so a *taskHeader obtained from
// the registry, a Waker or a Handle can be reinterpreted back to the
// concrete *taskCore[T] via unsafe.Pointer inside the dispatch table's
// functions - the one unsafe cast in this package.
type taskHeader struct {
	id    uint64
	vt    *dispatch
	owner *Runtime
	// notify is the single central queue every live task (root or
	// spawned) sends its id to when woken. Only the executor driver
	// reads it; it fans tasks out to individual worker queues.
	notify *notifyQueue

	refs atomic.Int64

	pollMu       sync.Mutex
	pollWaker    Waker
	hasPollWaker bool

	handleMu       sync.Mutex
	handleWaker    Waker
	hasHandleWaker bool

	// panicMu/panicValue/panicState record a recovered poll panic for a
	// spawned task (the root task's panic instead surfaces directly from
	// BlockOn, which has no Handle to deliver it through). Modelled as
	// its own tri-state slot, parallel to taskOutput[T], since the panic
	// value's type has nothing to do with T.
	panicMu    sync.Mutex
	panicValue any
	panicState outputState
}

func (h *taskHeader) refInc() {
	h.refs.Add(1)
}

func (h *taskHeader) refDec() {
	if h.refs.Add(-1) == 0 {
		h.vt.destroy(h)
	}
}

// setPollWaker installs w as the task's own waker (has=true), or clears
// the slot (has=false). The previous occupant, if any, is dropped - this
// is the only place the task-side waker reference is retired.
func (h *taskHeader) setPollWaker(w Waker, has bool) {
	h.pollMu.Lock()
	old, hadOld := h.pollWaker, h.hasPollWaker
	h.pollWaker, h.hasPollWaker = w, has
	h.pollMu.Unlock()
	if hadOld {
		old.Drop()
	}
}

func (h *taskHeader) currentPollWaker() Waker {
	h.pollMu.Lock()
	defer h.pollMu.Unlock()
	return h.pollWaker
}

// attachHandleWaker installs the waker a Handle (or BlockOn, for the
// root task) should receive when this task next completes. w is
// borrowed - attachHandleWaker clones its own copy to own, so callers
// (Handle.Poll in particular) can pass cx.Waker() directly without
// worrying about whether this call will actually end up storing it. Any
// previously attached waker is dropped; only the most recent awaiter's
// waker is honoured, matching the single-consumer Handle contract.
func (h *taskHeader) attachHandleWaker(w Waker) {
	owned := w.Clone()
	h.handleMu.Lock()
	old, hadOld := h.handleWaker, h.hasHandleWaker
	h.handleWaker, h.hasHandleWaker = owned, true
	h.handleMu.Unlock()
	if hadOld {
		old.Drop()
	}
}

// setPanic records a recovered poll panic, to be delivered to whoever
// reviews this task next (see reviewTask).
func (h *taskHeader) setPanic(v any) {
	h.panicMu.Lock()
	h.panicValue = v
	h.panicState = outputReady
	h.panicMu.Unlock()
}

func (h *taskHeader) takePanic() (any, outputState) {
	h.panicMu.Lock()
	defer h.panicMu.Unlock()
	switch h.panicState {
	case outputReady:
		v := h.panicValue
		h.panicValue = nil
		h.panicState = outputConsumed
		return v, outputReady
	default:
		return nil, h.panicState
	}
}

func (h *taskHeader) wakeHandle() {
	h.handleMu.Lock()
	w, has := h.handleWaker, h.hasHandleWaker
	h.handleWaker, h.hasHandleWaker = Waker{}, false
	h.handleMu.Unlock()
	if has {
		w.Wake()
	}
}
