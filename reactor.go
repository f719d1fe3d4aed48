// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Interest is a bitmask of the I/O readiness directions a source can be
// watched for.
type Interest uint8

const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

// defaultWakerListCapacity bounds how many wakers a single source may
// accumulate per direction before AttachWaker panics. 64 matches the
// original runtime's WAKER_AMNT constant; see ErrWakerListFull for why
// this is a panic rather than an error return.
const defaultWakerListCapacity = 64

// readyEvent is the selector's platform-independent readiness report for
// one file descriptor, or a wake-only pulse event used to interrupt a
// blocked wait call during shutdown.
type readyEvent struct {
	fd    int
	read  bool
	write bool
	wake  bool
}

// selector is the OS-specific readiness backend: epoll on Linux, kqueue
// on Darwin.
type selector interface {
	register(fd int, interest Interest) error
	reregister(fd int, interest Interest) error
	deregister(fd int) error
	wait(buf []readyEvent) (int, error)
	pulse() error
	close() error
}

// ioSource tracks the wakers waiting on one registered file descriptor.
type ioSource struct {
	mu          sync.Mutex
	fd          int
	readWakers  []Waker
	writeWakers []Waker
	registered  Interest
}

// Reactor is the I/O half of the runtime: a selector-backed readiness
// dispatcher running on its own goroutine, translating OS readiness
// events into Waker.Wake calls.
type Reactor struct {
	mu      sync.Mutex
	sources map[int]*ioSource
	sel     selector
	cap     int
	log     *logiface.Logger[*stumpy.Event]
	done    chan struct{}

	shutdown atomic.Bool
}

func newReactor(wakerCap int, logger *logiface.Logger[*stumpy.Event]) (*Reactor, error) {
	sel, err := newSelector()
	if err != nil {
		return nil, &SelectorError{Op: "new", Err: err}
	}
	if wakerCap <= 0 {
		wakerCap = defaultWakerListCapacity
	}
	return &Reactor{
		sources: make(map[int]*ioSource),
		sel:     sel,
		cap:     wakerCap,
		log:     logger,
		done:    make(chan struct{}),
	}, nil
}

// Register begins tracking fd. It must be called before AttachWaker.
func (r *Reactor) Register(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[fd]; exists {
		return ErrFDAlreadyRegistered
	}
	r.sources[fd] = &ioSource{fd: fd}
	return nil
}

// Deregister stops tracking fd and removes it from the selector if it
// had any active interest.
func (r *Reactor) Deregister(fd int) error {
	r.mu.Lock()
	src, ok := r.sources[fd]
	if ok {
		delete(r.sources, fd)
	}
	r.mu.Unlock()
	if !ok {
		return ErrUnregisteredSource
	}

	src.mu.Lock()
	registered := src.registered
	src.mu.Unlock()
	if registered != 0 {
		if err := r.sel.deregister(fd); err != nil {
			return &SelectorError{Op: "deregister", Err: err}
		}
	}
	return nil
}

// AttachWaker arranges for a wake of w to be delivered the next time fd
// becomes ready for direction dir, upgrading the selector's interest for
// fd as needed. w is borrowed - AttachWaker clones its own copy to
// store, so a Future implementation can pass cx.Waker() directly.
// Re-attaching on every pending poll - rather than comparing against a
// previously stored waker - is the safe rule: a future can be dropped
// and replaced by a new one polling the same fd, and a stale waker left
// behind would wake the wrong instance.
func (r *Reactor) AttachWaker(fd int, dir Interest, w Waker) error {
	r.mu.Lock()
	src, ok := r.sources[fd]
	r.mu.Unlock()
	if !ok {
		return ErrUnregisteredSource
	}

	src.mu.Lock()
	defer src.mu.Unlock()

	var list *[]Waker
	switch dir {
	case InterestRead:
		list = &src.readWakers
	case InterestWrite:
		list = &src.writeWakers
	default:
		return ErrUnregisteredSource
	}
	if len(*list) >= r.cap {
		panic(ErrWakerListFull)
	}
	*list = append(*list, w.Clone())

	want := src.registered | dir
	if want != src.registered {
		var err error
		if src.registered == 0 {
			err = r.sel.register(fd, want)
		} else {
			err = r.sel.reregister(fd, want)
		}
		if err != nil {
			return &SelectorError{Op: "register", Err: err}
		}
		src.registered = want
	}
	return nil
}

// Start launches the reactor's selector-polling goroutine.
func (r *Reactor) Start() {
	go func() {
		defer close(r.done)
		r.run()
	}()
}

func (r *Reactor) run() {
	buf := make([]readyEvent, 256)
	for {
		n, err := r.sel.wait(buf)
		if err != nil {
			if r.shutdown.Load() {
				return
			}
			logSelectorError(r.log, err)
			continue
		}
		for i := 0; i < n; i++ {
			ev := buf[i]
			if ev.wake {
				if r.shutdown.Load() {
					return
				}
				continue
			}
			r.dispatch(ev)
		}
	}
}

func (r *Reactor) dispatch(ev readyEvent) {
	r.mu.Lock()
	src, ok := r.sources[ev.fd]
	r.mu.Unlock()
	if !ok {
		return
	}

	src.mu.Lock()
	var readyRead, readyWrite []Waker
	if ev.read {
		readyRead = src.readWakers
		src.readWakers = nil
	}
	if ev.write {
		readyWrite = src.writeWakers
		src.writeWakers = nil
	}
	src.mu.Unlock()

	r.safeWake(readyRead)
	r.safeWake(readyWrite)
}

// safeWake invokes Wake on each waker, isolating the reactor loop from a
// panicking Waker (e.g. if it races a destroyed task in a way the
// refcounting contract was supposed to prevent - this is a last-resort
// guard, not an expected path).
func (r *Reactor) safeWake(ws []Waker) {
	for _, w := range ws {
		func() {
			defer func() {
				if p := recover(); p != nil {
					logWakerPanic(r.log, p)
				}
			}()
			w.Wake()
		}()
	}
}

// Shutdown pulses the selector to unblock its wait call and waits for
// the reactor goroutine to exit. Safe to call more than once.
func (r *Reactor) Shutdown() error {
	if !r.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	if err := r.sel.pulse(); err != nil {
		return &SelectorError{Op: "pulse", Err: err}
	}
	<-r.done
	return nil
}

// Close releases the selector's own file descriptors. Call only after
// Shutdown has returned.
func (r *Reactor) Close() error {
	if err := r.sel.close(); err != nil {
		return &SelectorError{Op: "close", Err: err}
	}
	return nil
}
