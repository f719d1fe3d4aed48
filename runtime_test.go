// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	r, err := New(WithWorkers(2))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, r.Shutdown())
	})
	return r
}

func TestBlockOn_ImmediateRootTask(t *testing.T) {
	r := newTestRuntime(t)

	v, err := BlockOn[int](r, FutureFunc[int](func(cx *Context) (int, bool) {
		return 42, true
	}))
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestBlockOn_PendingThenReady(t *testing.T) {
	r := newTestRuntime(t)

	polls := 0
	v, err := BlockOn[string](r, FutureFunc[string](func(cx *Context) (string, bool) {
		polls++
		if polls < 3 {
			cx.Waker().Clone().Wake()
			return "", false
		}
		return "done", true
	}))
	require.NoError(t, err)
	require.Equal(t, "done", v)
	require.GreaterOrEqual(t, polls, 3)
}

func TestBlockOn_SpawnAndAwaitHandle(t *testing.T) {
	r := newTestRuntime(t)

	var handle *Handle[int]
	v, err := BlockOn[int](r, FutureFunc[int](func(cx *Context) (int, bool) {
		if handle == nil {
			var spawnErr error
			handle, spawnErr = Spawn(r, FutureFunc[int](func(cx *Context) (int, bool) {
				return 7, true
			}))
			if spawnErr != nil {
				panic(spawnErr)
			}
		}
		n, ready := handle.Poll(cx)
		if !ready {
			return 0, false
		}
		handle.Close()
		return n * 6, true
	}))
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestBlockOn_RootPanicSurfacesAsShutdownError(t *testing.T) {
	r := newTestRuntime(t)

	_, err := BlockOn[int](r, FutureFunc[int](func(cx *Context) (int, bool) {
		panic(errors.New("boom"))
	}))

	var shutdownErr *ShutdownError
	require.Error(t, err)
	require.ErrorAs(t, err, &shutdownErr)
	require.EqualError(t, shutdownErr.Cause, "boom")
}

func TestSpawn_AfterShutdownFails(t *testing.T) {
	r, err := New(WithWorkers(1))
	require.NoError(t, err)
	require.NoError(t, r.Shutdown())

	_, err = Spawn(r, FutureFunc[int](func(cx *Context) (int, bool) { return 0, true }))
	require.ErrorIs(t, err, ErrRuntimeShutdown)

	_, err = BlockOn[int](r, FutureFunc[int](func(cx *Context) (int, bool) { return 0, true }))
	require.ErrorIs(t, err, ErrRuntimeShutdown)
}
