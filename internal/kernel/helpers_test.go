package kernel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testOptions() Options {
	o := DefaultOptions()
	o.NProc = 8
	o.NCPU = 1
	o.MaxPriority = 3
	o.DefaultBudget = 10
	o.TicksToPromote = 100
	return o
}

func newTestKernel(t *testing.T, mutate func(o *Options), options ...Option) *Kernel {
	t.Helper()
	opts := testOptions()
	if mutate != nil {
		mutate(&opts)
	}
	k, err := New(zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)), opts, options...)
	require.NoError(t, err)
	return k
}

// booted returns a kernel with the root process runnable.
func booted(t *testing.T, mutate func(o *Options), options ...Option) *Kernel {
	t.Helper()
	k := newTestKernel(t, mutate, options...)
	require.NoError(t, k.UserInit(nil))
	return k
}

// step runs one scheduling round on cpu 0. fn plays the selected process:
// it runs with the table lock held and must move p out of running.
func step(k *Kernel, fn func(p *Proc)) *Proc {
	var ran *Proc
	k.run = func(c *CPU, p *Proc) {
		ran = p
		if fn != nil {
			fn(p)
		}
	}
	k.t.Lock()
	k.scheduleOnce(k.cpus[0])
	k.t.Unlock()
	return ran
}

// advance moves the clock forward without waking anyone.
func advance(k *Kernel, n int) {
	for i := 0; i < n; i++ {
		k.clock.Tick(nil)
	}
}

func procOf(t *testing.T, k *Kernel, pid int) *Proc {
	t.Helper()
	k.t.Lock()
	defer k.t.Unlock()
	p := k.t.find(pid, Embryo, Sleeping, Runnable, Running, Zombie)
	require.NotNil(t, p, "pid %d not found", pid)
	return p
}

func readyPIDs(k *Kernel, prio int) []int {
	k.t.Lock()
	defer k.t.Unlock()
	var pids []int
	k.t.walk(&k.t.ready[prio], func(p *Proc) bool {
		pids = append(pids, p.pid)
		return true
	})
	return pids
}

type failingVM struct {
	memVM
}

func (failingVM) Copy(AddressSpace, int) (AddressSpace, error) {
	return nil, errors.New("out of memory")
}

type countingFiles struct {
	dups   *int
	closes *int
}

func (f countingFiles) Dup() Files {
	*f.dups++
	return f
}

func (f countingFiles) Close() { *f.closes++ }
