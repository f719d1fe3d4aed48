// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func alwaysReady(v int) Future[int] {
	return FutureFunc[int](func(cx *Context) (int, bool) { return v, true })
}

func TestWaker_RefcountLifecycleMatchesOwnerCount(t *testing.T) {
	notify := newNotifyQueue()
	h := newTaskHeader[int](1, nil, notify, alwaysReady(1))
	require.EqualValues(t, 2, h.refs.Load(), "registry + poll-waker slot")

	clone := h.currentPollWaker().Clone()
	require.EqualValues(t, 3, h.refs.Load())
	clone.Drop()
	require.EqualValues(t, 2, h.refs.Load())

	h.setPollWaker(Waker{}, false) // release the poll-waker slot
	require.EqualValues(t, 1, h.refs.Load())
	h.refDec() // release the registry's reference
	require.EqualValues(t, 0, h.refs.Load())
}

func TestWaker_WakeByRefDoesNotConsume(t *testing.T) {
	notify := newNotifyQueue()
	h := newTaskHeader[int](5, nil, notify, alwaysReady(0))
	w := h.currentPollWaker().Clone()
	before := h.refs.Load()

	w.WakeByRef()
	require.Equal(t, before, h.refs.Load())

	id, ok := notify.recv()
	require.True(t, ok)
	require.EqualValues(t, 5, id)

	w.Drop()
	require.Equal(t, before-1, h.refs.Load())
}

func TestWaker_WakeConsumes(t *testing.T) {
	notify := newNotifyQueue()
	h := newTaskHeader[int](6, nil, notify, alwaysReady(0))
	w := h.currentPollWaker().Clone()
	before := h.refs.Load()

	w.Wake()
	require.Equal(t, before-1, h.refs.Load())

	id, ok := notify.recv()
	require.True(t, ok)
	require.EqualValues(t, 6, id)
}

func TestWaker_ZeroValueIsInert(t *testing.T) {
	var w Waker
	require.NotPanics(t, func() {
		w.Clone().Wake()
		w.WakeByRef()
		w.Drop()
	})
}

// TestWaker_ConcurrentCloneDropRace stress-tests many goroutines racing
// Clone/Drop against one task's refcount, the way the teacher's
// poller_race_test.go races many goroutines against a single shared
// structure. Every Clone is matched by exactly one Drop, so the net
// effect after the race must be zero.
func TestWaker_ConcurrentCloneDropRace(t *testing.T) {
	notify := newNotifyQueue()
	h := newTaskHeader[int](1, nil, notify, alwaysReady(0))
	base := h.currentPollWaker()

	const goroutines = 32
	const iterations = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				c := base.Clone()
				c.Drop()
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 2, h.refs.Load(), "registry + poll-waker slot, unaffected by balanced clone/drop pairs")
}
