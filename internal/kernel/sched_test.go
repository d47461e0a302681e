package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerPicksHighestPriorityHeadFirst(t *testing.T) {
	k := booted(t, nil)
	root := k.initproc

	a, err := k.fork(root, nil)
	require.NoError(t, err)
	b, err := k.fork(root, nil)
	require.NoError(t, err)
	require.NoError(t, k.SetPriority(root.pid, 1))
	require.NoError(t, k.SetPriority(a, 2))

	var order []int
	for i := 0; i < 4; i++ {
		p := step(k, k.yieldLocked)
		require.NotNil(t, p)
		order = append(order, p.pid)
	}
	// b alone at max, then b again, since it yields back to the same level
	assert.Equal(t, []int{b, b, b, b}, order)

	require.NoError(t, k.SetPriority(b, 0))
	order = order[:0]
	for i := 0; i < 3; i++ {
		order = append(order, step(k, k.yieldLocked).pid)
	}
	assert.Equal(t, []int{a, a, a}, order)
}

func TestSchedulerRoundRobinWithinLevel(t *testing.T) {
	k := booted(t, nil)
	a, err := k.fork(k.initproc, nil)
	require.NoError(t, err)
	b, err := k.fork(k.initproc, nil)
	require.NoError(t, err)

	var order []int
	for i := 0; i < 6; i++ {
		order = append(order, step(k, k.yieldLocked).pid)
	}
	assert.Equal(t, []int{1, a, b, 1, a, b}, order)
}

func TestSchedulerIdleRound(t *testing.T) {
	k := newTestKernel(t, nil)

	assert.Nil(t, step(k, nil))
	assert.Nil(t, k.cpus[0].proc)
}

func TestRunningProcessIsBoundToCPU(t *testing.T) {
	k := booted(t, nil)

	step(k, func(p *Proc) {
		c := k.cpus[0]
		assert.Same(t, p, c.proc)
		assert.Same(t, c, p.cpu)
		assert.Equal(t, Running, p.state)
		assert.Equal(t, p.slot, k.t.lists[Running].head)
		k.yieldLocked(p)
	})
	assert.Nil(t, k.cpus[0].proc)
}

func TestBudgetDemotesOnExhaustion(t *testing.T) {
	k := booted(t, nil)
	root := k.initproc

	step(k, func(p *Proc) {
		advance(k, 3)
		k.yieldLocked(p)
	})
	assert.Equal(t, 3, root.priority)
	assert.Equal(t, 7, root.budget)

	step(k, func(p *Proc) {
		advance(k, 7)
		k.yieldLocked(p)
	})
	assert.Equal(t, 2, root.priority)
	assert.Equal(t, 10, root.budget)
	assert.Equal(t, []int{1}, readyPIDs(k, 2))

	// sleeping is an interval end too
	step(k, func(p *Proc) {
		advance(k, 25)
		k.sleepLocked(p, "disk")
	})
	assert.Equal(t, 1, root.priority)
	assert.Equal(t, 10, root.budget)
}

func TestBudgetNeverDemotesBelowZero(t *testing.T) {
	k := booted(t, nil)
	require.NoError(t, k.SetPriority(1, 0))

	step(k, func(p *Proc) {
		advance(k, 50)
		k.yieldLocked(p)
	})
	assert.Equal(t, 0, k.initproc.priority)
	assert.Equal(t, 10, k.initproc.budget)
}

func TestPromotionMovesEachRecordOneLevel(t *testing.T) {
	k := booted(t, nil)
	var pids []int
	for prio := 0; prio < 3; prio++ {
		pid, err := k.fork(k.initproc, nil)
		require.NoError(t, err)
		require.NoError(t, k.SetPriority(pid, prio))
		pids = append(pids, pid)
	}

	k.t.Lock()
	k.promoteLocked()
	k.t.Unlock()

	for i, pid := range pids {
		assert.Equal(t, i+1, procOf(t, k, pid).priority, "pid %d", pid)
	}
	assert.Equal(t, []int{1, pids[2]}, readyPIDs(k, 3))
	assert.Empty(t, readyPIDs(k, 0))
	require.NoError(t, k.Check())
}

func TestPromotionKeepsFIFOOrderWithinLevel(t *testing.T) {
	k := booted(t, nil)
	var pids []int
	for i := 0; i < 3; i++ {
		pid, err := k.fork(k.initproc, nil)
		require.NoError(t, err)
		require.NoError(t, k.SetPriority(pid, 0))
		pids = append(pids, pid)
	}

	k.t.Lock()
	k.promoteLocked()
	k.t.Unlock()

	assert.Equal(t, pids, readyPIDs(k, 1))
}

func TestPromotionAgesStarvedProcessesToMax(t *testing.T) {
	k := booted(t, nil)
	low1, err := k.fork(k.initproc, nil)
	require.NoError(t, err)
	low2, err := k.fork(k.initproc, nil)
	require.NoError(t, err)
	require.NoError(t, k.SetPriority(low1, 0))
	require.NoError(t, k.SetPriority(low2, 0))

	// root hogs the CPU at max priority, well within its budget
	hog := func(p *Proc) {
		k.yieldLocked(p)
	}

	advance(k, 100)
	assert.Same(t, k.initproc, step(k, hog))
	assert.Equal(t, 1, procOf(t, k, low1).priority)
	assert.Equal(t, 1, procOf(t, k, low2).priority)
	assert.Equal(t, uint64(200), k.t.promoteAt)

	// levels × interval is enough to reach the top
	for i := 0; i < 2; i++ {
		advance(k, 100)
		step(k, hog)
	}
	assert.Equal(t, 3, procOf(t, k, low1).priority)
	assert.Equal(t, 3, procOf(t, k, low2).priority)
}

func TestPromotionRaisesSleepingAndRunning(t *testing.T) {
	k := booted(t, nil)
	sleeper, err := k.fork(k.initproc, nil)
	require.NoError(t, err)

	step(k, k.yieldLocked)
	step(k, func(p *Proc) { k.sleepLocked(p, "pipe") })
	require.NoError(t, k.SetPriority(sleeper, 1))

	require.NoError(t, k.SetPriority(1, 2))
	step(k, func(p *Proc) {
		k.promoteLocked()
		assert.Equal(t, 3, p.priority)
		k.yieldLocked(p)
	})
	assert.Equal(t, 2, procOf(t, k, sleeper).priority)
	assert.Equal(t, []int{1}, readyPIDs(k, 3))
}

func TestSetPriority(t *testing.T) {
	k := booted(t, nil)
	pid, err := k.fork(k.initproc, nil)
	require.NoError(t, err)
	p := procOf(t, k, pid)
	p.budget = 4

	require.NoError(t, k.SetPriority(pid, 1))
	assert.Equal(t, []int{pid}, readyPIDs(k, 1))
	assert.Equal(t, []int{1}, readyPIDs(k, 3))
	assert.Equal(t, 10, p.budget)

	prio, err := k.GetPriority(pid)
	require.NoError(t, err)
	assert.Equal(t, 1, prio)

	assert.ErrorIs(t, k.SetPriority(pid, 4), ErrBadPriority)
	assert.ErrorIs(t, k.SetPriority(pid, -1), ErrBadPriority)
	assert.ErrorIs(t, k.SetPriority(77, 1), ErrNoProc)
	_, err = k.GetPriority(77)
	assert.ErrorIs(t, err, ErrNoProc)
	require.NoError(t, k.Check())
}

func TestGetPriorityOfZombie(t *testing.T) {
	k := booted(t, nil)
	pid, err := k.fork(k.initproc, nil)
	require.NoError(t, err)
	require.NoError(t, k.SetPriority(pid, 2))

	step(k, func(p *Proc) { k.sleepLocked(p, p) })
	assert.Equal(t, pid, step(k, k.exitLocked).pid)

	prio, err := k.GetPriority(pid)
	require.NoError(t, err)
	assert.Equal(t, 2, prio)
	assert.ErrorIs(t, k.SetPriority(pid, 1), ErrNoProc)
}

func TestSchedulerAccountsCPUTicks(t *testing.T) {
	k := booted(t, nil)

	step(k, func(p *Proc) {
		assert.Equal(t, uint64(0), p.cpuTicksIn)
		advance(k, 4)
		k.yieldLocked(p)
	})
	// sched does the CPU accounting; step bypasses it
	assert.Equal(t, uint64(0), k.initproc.cpuTicksTotal)
	assert.Equal(t, 6, k.initproc.budget)
}

func TestSetIDRange(t *testing.T) {
	k := booted(t, nil)
	root := k.initproc

	require.NoError(t, k.setID(&root.uid, maxID))
	assert.Equal(t, maxID, root.uid)
	require.NoError(t, k.setID(&root.gid, 0))

	assert.ErrorIs(t, k.setID(&root.uid, maxID+1), ErrBadID)
	assert.ErrorIs(t, k.setID(&root.gid, -1), ErrBadID)
	assert.Equal(t, maxID, root.uid, "rejected id leaves the field alone")
}
