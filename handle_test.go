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

func TestHandle_AlreadyConsumedIsDeterministic(t *testing.T) {
	r := newTestRuntime(t)

	var handle *Handle[int]
	var firstValue, secondValue int
	var secondErr error

	_, err := BlockOn[struct{}](r, FutureFunc[struct{}](func(cx *Context) (struct{}, bool) {
		if handle == nil {
			var spawnErr error
			handle, spawnErr = Spawn(r, FutureFunc[int](func(cx *Context) (int, bool) {
				return 9, true
			}))
			require.NoError(t, spawnErr)
		}

		v, ready := handle.Poll(cx)
		if !ready {
			return struct{}{}, false
		}
		if firstValue == 0 {
			firstValue = v
			// Poll a second time in the same completed state, on the
			// same goroutine, to observe the deterministic
			// already-consumed marker.
			secondValue, _ = handle.Poll(cx)
			secondErr = handle.Err()
			return struct{}{}, true
		}
		return struct{}{}, true
	}))
	require.NoError(t, err)

	require.Equal(t, 9, firstValue)
	require.Zero(t, secondValue)
	require.NoError(t, secondErr)
	handle.Close()
}

func TestHandle_SpawnedTaskPanicIsIsolated(t *testing.T) {
	r := newTestRuntime(t)

	var handle *Handle[int]
	out, err := BlockOn[int](r, FutureFunc[int](func(cx *Context) (int, bool) {
		if handle == nil {
			var spawnErr error
			handle, spawnErr = Spawn(r, FutureFunc[int](func(cx *Context) (int, bool) {
				panic(errors.New("spawned task exploded"))
			}))
			require.NoError(t, spawnErr)
		}

		_, ready := handle.Poll(cx)
		if !ready {
			return 0, false
		}
		if handle.Err() != nil {
			return -1, true
		}
		return 1, true
	}))

	require.NoError(t, err)
	require.Equal(t, -1, out)
}
