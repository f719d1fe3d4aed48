// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	stdruntime "runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"golang.org/x/sync/errgroup"
)

// Runtime ties together the task registry, the worker pool and the I/O
// reactor. Spawn and BlockOn are the two ways work enters it.
type Runtime struct {
	id uuid.UUID

	registry *registry
	central  *notifyQueue
	pool     *workerPool
	reactor  *Reactor
	log      *logiface.Logger[*stumpy.Event]

	closed       atomic.Bool
	shutdownOnce sync.Once
	blockOnMu    sync.Mutex // serialises BlockOn calls against the shared rootTaskID slot
}

// New creates a Runtime with a fixed-size worker pool (default
// runtime.GOMAXPROCS(0)) and starts its I/O reactor. Call Shutdown when
// done with it.
func New(opts ...RuntimeOption) (*Runtime, error) {
	cfg := resolveRuntimeOptions(opts)

	n := cfg.workers
	if n <= 0 {
		n = stdruntime.GOMAXPROCS(0)
		if n < 1 {
			n = 1
		}
	}

	reactor, err := newReactor(cfg.wakerListCapacity, cfg.logger)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		id:       uuid.New(),
		registry: newRegistry(cfg.registryCapacity),
		central:  newNotifyQueue(),
		reactor:  reactor,
		log:      cfg.logger,
	}
	rt.pool = newWorkerPool(n, rt)

	reactor.Start()
	rt.pool.start()

	return rt, nil
}

func (rt *Runtime) logger() *logiface.Logger[*stumpy.Event] {
	return rt.log
}

// ID returns this runtime's stable instance identifier, used to
// correlate log lines from multiple runtimes in the same process.
func (rt *Runtime) ID() uuid.UUID {
	return rt.id
}

// Reactor returns the runtime's I/O reactor, for registering file
// descriptors (see TCPListener / TCPStream).
func (rt *Runtime) Reactor() *Reactor {
	return rt.reactor
}

// Spawn hands f to the runtime and returns a Handle for its result. It
// may be called from outside any task, or from within one (via
// Context.Runtime().Upgrade()).
func Spawn[T any](rt *Runtime, f Future[T]) (*Handle[T], error) {
	if rt.closed.Load() {
		return nil, ErrRuntimeShutdown
	}

	id := rt.registry.reserve()
	h := newTaskHeader[T](id, rt, rt.central, f)
	rt.registry.insert(id, h)

	h.refInc() // +1 for the Handle returned below
	handle := newHandle[T](h)

	logSpawn(rt.log, id)
	rt.central.send(id)

	return handle, nil
}

// BlockOn drives f as the root task on the calling goroutine: it runs
// the executor's driver loop, dispatching woken spawned tasks to the
// worker pool, until f itself completes. Only one BlockOn call may be
// in flight on a given Runtime at a time, since the root task's id is
// fixed.
func BlockOn[T any](rt *Runtime, f Future[T]) (T, error) {
	var zero T

	rt.blockOnMu.Lock()
	defer rt.blockOnMu.Unlock()

	if rt.closed.Load() {
		return zero, ErrRuntimeShutdown
	}

	h := newTaskHeader[T](rootTaskID, rt, rt.central, f)
	rt.registry.insert(rootTaskID, h)
	h.refInc() // +1 for this stack frame's ownership of the root task

	defer h.refDec()

	rt.central.send(rootTaskID)

	for {
		id, ok := rt.central.recv()
		if !ok {
			return zero, ErrRuntimeShutdown
		}

		if id != rootTaskID {
			rt.pool.deploy(id)
			continue
		}

		ready, panicVal := pollSafely(h)
		if panicVal != nil {
			h.setPollWaker(Waker{}, false)
			rt.registry.remove(rootTaskID)
			return zero, newShutdownError(panicVal)
		}
		if !ready {
			continue
		}

		h.setPollWaker(Waker{}, false)
		rt.registry.remove(rootTaskID)

		var out any
		h.vt.review(h, &out, Waker{})
		return out.(T), nil
	}
}

// Shutdown signals the reactor to exit, broadcasts the worker shutdown
// sentinel, joins every worker and the reactor goroutine, and drops
// every task still tracked by the registry. Safe to call more than once;
// only the first call does anything.
func (rt *Runtime) Shutdown() error {
	var err error
	rt.shutdownOnce.Do(func() {
		rt.closed.Store(true)
		logShutdown(rt.log, rt.id.String())

		rt.central.close()
		rt.registry.drainAll()

		var g errgroup.Group
		g.Go(func() error {
			rt.pool.broadcastShutdown()
			rt.pool.join()
			return nil
		})
		g.Go(func() error {
			return rt.reactor.Shutdown()
		})
		err = g.Wait()

		if cerr := rt.reactor.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
