package kernel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	k := booted(t, nil)
	root := k.initproc
	root.uid, root.gid = 5, 6

	child, err := k.fork(root, nil)
	require.NoError(t, err)
	advance(k, 1500)

	// an embryo never shows up
	embryo, err := k.allocate()
	require.NoError(t, err)
	defer k.freeEmbryo(embryo)

	infos, err := k.Snapshot(k.NProc())
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, ProcInfo{
		PID:          1,
		UID:          5,
		GID:          6,
		PPID:         1,
		Priority:     3,
		ElapsedTicks: 1500,
		State:        "runble",
		Size:         pageSize,
		Name:         "initcode",
	}, infos[0])
	assert.Equal(t, child, infos[1].PID)
	assert.Equal(t, 1, infos[1].PPID)

	infos, err = k.Snapshot(1)
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	infos, err = k.Snapshot(0)
	require.NoError(t, err)
	assert.Empty(t, infos)

	_, err = k.Snapshot(k.NProc() + 1)
	assert.ErrorIs(t, err, ErrSnapshotTooLarge)
}

func TestProcDump(t *testing.T) {
	k := booted(t, nil)
	advance(k, 2047)

	var b bytes.Buffer
	k.ProcDump(&b)

	out := b.String()
	assert.Contains(t, out, "PID\tName         UID\tGID\tPPID\tPrio\tElapsed\tCPU\tState\tSize")
	assert.Contains(t, out, "1\tinitcode     0\t0\t1\t3\t2.047\t0.000\trunble\t4096")
}

func TestPrintLists(t *testing.T) {
	k := booted(t, nil)
	a, err := k.fork(k.initproc, nil)
	require.NoError(t, err)
	_, err = k.fork(k.initproc, nil)
	require.NoError(t, err)

	step(k, func(p *Proc) { k.sleepLocked(p, p) })
	step(k, k.exitLocked)

	var b bytes.Buffer
	require.NoError(t, k.PrintList(&b, Zombie))
	assert.Equal(t, "\nZombie List Processes:\n(2, 1)\n", b.String())

	b.Reset()
	require.NoError(t, k.PrintList(&b, Sleeping))
	assert.Equal(t, "\nSleep List Processes:\n(NULL)\n", b.String())

	b.Reset()
	require.NoError(t, k.PrintList(&b, Runnable))
	assert.Equal(t, "Ready List Processes:\n3: (3, 10) -> (1, 10)\n2: (NULL)\n1: (NULL)\n0: (NULL)\n", b.String())

	b.Reset()
	require.NoError(t, k.PrintList(&b, Unused))
	assert.Equal(t, "\nFree List Size: 5 processes\n", b.String())

	assert.Error(t, k.PrintList(&b, State(42)))
	assert.Equal(t, 2, a)
}

func TestPrintListStats(t *testing.T) {
	k := booted(t, nil)

	var b bytes.Buffer
	k.PrintListStats(&b)

	out := b.String()
	assert.Contains(t, out, "\nunused list has  7 processes")
	assert.Contains(t, out, "\nrunble list has  1 processes")
	assert.Contains(t, out, "Total on lists is: 8. NPROC = 8. Congratulations!")
}

func TestCheckDetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(k *Kernel)
		want    string
	}{
		{
			name: "wrong tag",
			corrupt: func(k *Kernel) {
				k.t.procs[3].state = Zombie
			},
			want: "slot on unused list has state zombie",
		},
		{
			name: "unlinked slot",
			corrupt: func(k *Kernel) {
				k.t.procs[6].next = nilSlot
				k.t.lists[Unused].tail = 6
			},
			want: "slot 7 is on 0 lists",
		},
		{
			name: "wrong ready level",
			corrupt: func(k *Kernel) {
				k.initproc.priority = 1
			},
			want: "slot on ready list 3 has priority 1",
		},
		{
			name: "cycle",
			corrupt: func(k *Kernel) {
				k.t.procs[7].next = 1
			},
			want: "unused list is cyclic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := booted(t, nil)
			require.NoError(t, k.Check())

			k.t.Lock()
			tt.corrupt(k)
			k.t.Unlock()

			err := k.Check()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDebugSchedulerHaltsOnCorruption(t *testing.T) {
	k := booted(t, func(o *Options) { o.Debug = true })

	k.t.Lock()
	k.t.procs[4].state = Sleeping
	k.t.Unlock()

	assert.Panics(t, func() {
		step(k, k.yieldLocked)
	})
	assert.True(t, k.stopping())
}

func TestRemovalFailureHalts(t *testing.T) {
	k := booted(t, nil)

	k.t.Lock()
	defer k.t.Unlock()
	require.PanicsWithError(t,
		"kernel panic: wakeup: failed to remove pid 1 from sleep list: process not on list",
		func() { k.transition(k.initproc, Sleeping, Runnable, "wakeup") })
}

func TestAssertStateHalts(t *testing.T) {
	k := booted(t, nil)

	k.t.Lock()
	defer k.t.Unlock()
	k.initproc.state = Zombie
	require.PanicsWithError(t,
		"kernel panic: yield: proc state is zombie and should be runble",
		func() { k.detach(k.initproc, Runnable, "yield") })
}

func TestWriteMetrics(t *testing.T) {
	k := booted(t, nil)
	_, err := k.fork(k.initproc, nil)
	require.NoError(t, err)
	step(k, k.yieldLocked)

	var b bytes.Buffer
	k.WriteMetrics(&b)

	out := b.String()
	assert.Contains(t, out, "pdxkernel_forks_total 1")
	assert.Contains(t, out, "pdxkernel_context_switches_total 1")
	assert.Contains(t, out, `pdxkernel_procs{state="runble"} 2`)
	assert.Contains(t, out, `pdxkernel_procs{state="unused"} 6`)
	assert.Contains(t, out, "pdxkernel_kstacks_in_use 2")
	assert.Contains(t, out, "pdxkernel_kstacks_capacity 8")
}
