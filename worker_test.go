// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestWorkerPool(n int) *workerPool {
	return newWorkerPool(n, nil)
}

func TestWorkerPool_DeployPrefersIdleOverBusy(t *testing.T) {
	p := newTestWorkerPool(3)
	p.workers[0].busy.Store(true)
	p.workers[0].received.Store(0) // fewest lifetime count, but busy
	p.workers[1].received.Store(5)
	p.workers[2].received.Store(5)

	p.deploy(1)

	require.EqualValues(t, 1, p.workers[1].queue.len()+p.workers[2].queue.len())
	require.Zero(t, p.workers[0].queue.len(), "busy worker must never be chosen while an idle one exists")
}

func TestWorkerPool_DeployPicksFewestLifetimeReceivedAmongIdle(t *testing.T) {
	p := newTestWorkerPool(3)
	p.workers[0].received.Store(10)
	p.workers[1].received.Store(2)
	p.workers[2].received.Store(7)

	p.deploy(1)

	require.EqualValues(t, 1, p.workers[1].queue.len())
	require.Zero(t, p.workers[0].queue.len())
	require.Zero(t, p.workers[2].queue.len())
	require.EqualValues(t, 3, p.workers[1].received.Load())
}

func TestWorkerPool_DeployTiesBreakByLowestSlotIndex(t *testing.T) {
	p := newTestWorkerPool(3)
	// All idle, all equal lifetime counts: must pick slot 0.
	p.deploy(1)

	require.EqualValues(t, 1, p.workers[0].queue.len())
	require.Zero(t, p.workers[1].queue.len())
	require.Zero(t, p.workers[2].queue.len())
}

func TestWorkerPool_DeployFallsBackToLeastLoadedWhenAllBusy(t *testing.T) {
	p := newTestWorkerPool(3)
	for _, w := range p.workers {
		w.busy.Store(true)
	}
	p.workers[0].received.Store(9)
	p.workers[1].received.Store(1)
	p.workers[2].received.Store(4)

	p.deploy(1)

	require.EqualValues(t, 1, p.workers[1].queue.len(), "with none idle, falls back to fewest lifetime received over all workers")
}
