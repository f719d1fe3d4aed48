// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	"sync"
	"unsafe"
)

type outputState int

const (
	outputPending outputState = iota
	outputReady
	outputConsumed
)

// taskOutput holds a completed future's result until the awaiter takes
// it. take is destructive: once the value has been handed out once, it
// reports outputConsumed forever after, giving the "already consumed"
// marker a second await must deterministically see.
type taskOutput[T any] struct {
	mu    sync.Mutex
	state outputState
	value T
}

func (o *taskOutput[T]) set(v T) {
	o.mu.Lock()
	o.value = v
	o.state = outputReady
	o.mu.Unlock()
}

func (o *taskOutput[T]) take() (T, outputState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case outputReady:
		v := o.value
		var zero T
		o.value = zero
		o.state = outputConsumed
		return v, outputReady
	default:
		var zero T
		return zero, o.state
	}
}

// consumedMarker is what review reports, via the type-erased out
// parameter, when the handle asks for a result that was already taken.
type consumedMarker struct{}

// taskPanicMarker is what review reports when the task's Poll panicked.
// It carries the recovered value once, to the first reviewer; after
// that, takePanic reports outputConsumed and review falls back to
// consumedMarker like any other already-taken result.
type taskPanicMarker struct{ value any }

// taskCore is the generic body of a task. taskHeader must remain its
// first field: every dispatch function reconstructs *taskCore[T] from a
// bare *taskHeader via unsafe.Pointer, which is only valid because of
// that layout guarantee. This is the package's one unsafe cast; it
// exists because Go generics have no way to erase T at a call site the
// way an interface method table would, short of boxing every future in
// an interface{} (which is what this *is*, just with the indirection
// made explicit and cheap to specialise per T).
type taskCore[T any] struct {
	taskHeader
	future Future[T]
	output taskOutput[T]
}

// newDispatch builds the three type-specific dispatch entries for T. It
// allocates a small function-pointer struct per Spawn/BlockOn call
// rather than interning one per type: Go has no package-level generic
// variables to cache a &'static-style table in, and the struct itself is
// cheap enough (three function pointers) that per-call allocation isn't
// worth a sync.Map-based type registry.
func newDispatch[T any]() *dispatch {
	return &dispatch{
		poll:    pollTask[T],
		review:  reviewTask[T],
		destroy: destroyTask[T],
	}
}

func pollTask[T any](h *taskHeader) bool {
	core := (*taskCore[T])(unsafe.Pointer(h))
	cx := &Context{waker: h.currentPollWaker(), rt: h.owner}
	v, ready := core.future.Poll(cx)
	if !ready {
		return false
	}
	core.output.set(v)
	return true
}

func reviewTask[T any](h *taskHeader, out *any, waker Waker) bool {
	if pv, pstate := h.takePanic(); pstate != outputPending {
		if pstate == outputReady {
			*out = taskPanicMarker{value: pv}
		} else {
			*out = consumedMarker{}
		}
		return true
	}

	core := (*taskCore[T])(unsafe.Pointer(h))
	v, state := core.output.take()
	switch state {
	case outputReady:
		*out = v
		return true
	case outputConsumed:
		*out = consumedMarker{}
		return true
	default:
		h.attachHandleWaker(waker)
		return false
	}
}

func destroyTask[T any](h *taskHeader) {
	core := (*taskCore[T])(unsafe.Pointer(h))
	core.future = nil
	var zero T
	core.output.value = zero
	if h.owner != nil {
		logTaskDestroyed(h.owner.logger(), h.id)
	}
}

// newTaskHeader allocates a taskCore[T], wires its dispatch table, and
// establishes the two references every task starts life with: the
// registry's implicit ownership, and the task's own poll-waker slot. The
// caller (Spawn or BlockOn) is responsible for the third - the Handle's,
// or the driver stack frame's, for the root task.
func newTaskHeader[T any](id uint64, owner *Runtime, notify *notifyQueue, f Future[T]) *taskHeader {
	core := &taskCore[T]{future: f}
	h := &core.taskHeader
	h.id = id
	h.vt = newDispatch[T]()
	h.owner = owner
	h.notify = notify
	h.refs.Store(1) // the registry
	h.refInc()      // the task's own poll-waker slot, installed below
	h.setPollWaker(Waker{h: h}, true)
	return h
}
