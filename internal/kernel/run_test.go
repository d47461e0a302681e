package kernel

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 5 * time.Second

// runKernel starts the scheduler loops and stops them when the test ends.
func runKernel(t *testing.T, k *Kernel) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Error("kernel did not stop")
		}
	})
}

// idle parks the caller for good. Without a ticker the deadline never
// comes; shutdown reclaims the goroutine.
func idle(s *Sys) {
	for {
		s.SleepTicks(math.MaxInt32)
	}
}

// startKernel runs the kernel until the returned cancel is called and
// hands back Run's result.
func startKernel(k *Kernel) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()
	return cancel, done
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitFor):
		require.FailNow(t, "timed out waiting for the kernel")
	}
	var zero T
	return zero
}

func TestRunForkWaitExit(t *testing.T) {
	k := newTestKernel(t, func(o *Options) { o.NCPU = 2 })

	type result struct{ forked, reaped, again int }
	results := make(chan result, 1)
	require.NoError(t, k.UserInit(func(s *Sys) {
		pid := s.Fork(func(c *Sys) {
			c.Printf("hello from %d\n", c.PID())
		})
		r := result{forked: pid, reaped: s.Wait()}
		r.again = s.Wait()
		results <- r
		idle(s)
	}))
	runKernel(t, k)

	r := receive(t, results)
	assert.Equal(t, 2, r.forked)
	assert.Equal(t, 2, r.reaped)
	assert.Equal(t, -1, r.again)

	lines, ok := k.Console().ProcOutput(2, 10)
	require.True(t, ok)
	assert.Equal(t, []string{"hello from 2"}, lines)

	require.Eventually(t, func() bool {
		return k.Check() == nil && k.Stats().Lists[Sleeping].Count == 1
	}, waitFor, time.Millisecond)
}

func TestRunOrphansAreReapedByRoot(t *testing.T) {
	k := newTestKernel(t, func(o *Options) { o.NCPU = 2 })

	reaped := make(chan int, 4)
	require.NoError(t, k.UserInit(func(s *Sys) {
		s.Fork(func(mid *Sys) {
			mid.Fork(func(leaf *Sys) {
				leaf.Yield()
			})
			// exits without waiting; the leaf goes to root
		})
		for {
			pid := s.Wait()
			if pid < 0 {
				idle(s)
			}
			reaped <- pid
		}
	}))
	runKernel(t, k)

	got := []int{receive(t, reaped), receive(t, reaped)}
	assert.ElementsMatch(t, []int{2, 3}, got)
}

func TestRunTimedSleep(t *testing.T) {
	k := newTestKernel(t, nil, WithTickInterval(time.Millisecond))

	slept := make(chan uint64, 1)
	require.NoError(t, k.UserInit(func(s *Sys) {
		start := s.Uptime()
		if s.SleepTicks(5) == 0 {
			slept <- s.Uptime() - start
		}
		idle(s)
	}))
	runKernel(t, k)

	assert.GreaterOrEqual(t, receive(t, slept), uint64(5))
}

func TestRunKillSleepingChild(t *testing.T) {
	k := newTestKernel(t, func(o *Options) { o.NCPU = 2 })

	type result struct{ child, kill, reaped int }
	results := make(chan result, 1)
	require.NoError(t, k.UserInit(func(s *Sys) {
		pid := s.Fork(func(c *Sys) {
			c.SleepTicks(math.MaxInt32)
			c.Trap()
			c.Printf("still running\n")
		})
		r := result{child: pid, kill: s.Kill(pid)}
		r.reaped = s.Wait()
		results <- r
		idle(s)
	}))
	runKernel(t, k)

	r := receive(t, results)
	assert.Equal(t, 0, r.kill)
	assert.Equal(t, r.child, r.reaped)
	_, printed := k.Console().ProcOutput(r.child, 1)
	assert.False(t, printed)
}

func TestRunTimerPreemptsCPUBoundProcesses(t *testing.T) {
	k := newTestKernel(t, nil, WithTickInterval(time.Millisecond))

	var spins [2]atomic.Int64
	require.NoError(t, k.UserInit(func(s *Sys) {
		for i := range spins {
			n := &spins[i]
			s.Fork(func(c *Sys) {
				for {
					n.Add(1)
					c.Trap()
				}
			})
		}
		idle(s)
	}))
	runKernel(t, k)

	// one CPU: the second spinner only runs if the first is preempted
	require.Eventually(t, func() bool {
		return spins[0].Load() > 0 && spins[1].Load() > 0
	}, waitFor, time.Millisecond)

	require.Eventually(t, func() bool {
		infos, err := k.Snapshot(k.NProc())
		if err != nil || len(infos) != 3 {
			return false
		}
		return infos[1].CPUTotalTicks > 0 && infos[2].CPUTotalTicks > 0
	}, waitFor, time.Millisecond)
}

func TestRunSyscalls(t *testing.T) {
	k := newTestKernel(t, nil)

	type result struct {
		ppid, childPPID        int
		setUID, badUID, uid    int
		setGID, gid            int
		brk, size              int
		setPrio, prio, badPrio int
		procs                  int
		name                   string
	}
	results := make(chan result, 1)
	require.NoError(t, k.UserInit(func(s *Sys) {
		var r result
		r.ppid = s.PPID()
		r.setUID = s.SetUID(100)
		r.badUID = s.SetUID(40000)
		r.uid = s.GetUID()
		r.setGID = s.SetGID(200)
		r.gid = s.GetGID()
		r.brk = s.Sbrk(pageSize)
		r.size = s.Sbrk(0)
		r.setPrio = s.SetPriority(s.PID(), 2)
		r.prio = s.GetPriority(s.PID())
		r.badPrio = s.SetPriority(s.PID(), 9)

		ppids := make(chan int, 1)
		names := make(chan string, 1)
		s.Fork(func(c *Sys) {
			c.Exec("child", func(c *Sys) {
				ppids <- c.PPID()
				names <- c.Name()
			})
		})
		s.Wait()
		r.childPPID = <-ppids
		r.name = <-names

		infos, _ := s.GetProcs(k.NProc())
		r.procs = len(infos)
		results <- r
		idle(s)
	}))
	runKernel(t, k)

	r := receive(t, results)
	assert.Equal(t, 1, r.ppid)
	assert.Equal(t, 1, r.childPPID)
	assert.Equal(t, 0, r.setUID)
	assert.Equal(t, -1, r.badUID)
	assert.Equal(t, 100, r.uid)
	assert.Equal(t, 0, r.setGID)
	assert.Equal(t, 200, r.gid)
	assert.Equal(t, pageSize, r.brk)
	assert.Equal(t, 2*pageSize, r.size)
	assert.Equal(t, 0, r.setPrio)
	assert.Equal(t, 2, r.prio)
	assert.Equal(t, -1, r.badPrio)
	assert.Equal(t, "child", r.name)
	assert.Equal(t, 1, r.procs)
}

func TestShutdownUnwindsTimedSleeper(t *testing.T) {
	k := newTestKernel(t, nil)

	unwound := make(chan struct{})
	require.NoError(t, k.UserInit(func(s *Sys) {
		defer close(unwound)
		s.SleepTicks(math.MaxInt32)
	}))
	cancel, done := startKernel(k)

	require.Eventually(t, func() bool {
		return k.Stats().Lists[Sleeping].Count == 1
	}, waitFor, time.Millisecond)

	cancel()
	assert.NoError(t, receive(t, done))
	receive(t, unwound)

	// the tick lock was handed back and the deadline dropped
	pending := make(chan int, 1)
	go func() { pending <- k.clock.Pending() }()
	assert.Equal(t, 0, receive(t, pending))
	require.True(t, k.t.mu.TryLock(), "table lock left held")
	k.t.mu.Unlock()
}

func TestShutdownReleasesSleepLock(t *testing.T) {
	k := newTestKernel(t, nil)

	var mu sync.Mutex
	cond := new(int)
	unwound := make(chan struct{})
	require.NoError(t, k.UserInit(func(s *Sys) {
		defer close(unwound)
		mu.Lock()
		defer mu.Unlock()
		for {
			s.Sleep(cond, &mu)
		}
	}))
	cancel, done := startKernel(k)

	require.Eventually(t, func() bool {
		return k.Stats().Lists[Sleeping].Count == 1
	}, waitFor, time.Millisecond)

	k.Shutdown()
	receive(t, unwound)
	assert.NoError(t, receive(t, done))
	cancel()

	require.True(t, mu.TryLock(), "caller's lock left held")
	mu.Unlock()
	require.True(t, k.t.mu.TryLock(), "table lock left held")
	k.t.mu.Unlock()
}

func TestRunSleepReturnsWhenKilled(t *testing.T) {
	k := newTestKernel(t, func(o *Options) { o.NCPU = 2 })

	var mu sync.Mutex
	cond := new(int)
	results := make(chan int, 2)
	require.NoError(t, k.UserInit(func(s *Sys) {
		pid := s.Fork(func(c *Sys) {
			mu.Lock()
			rc := 0
			for rc == 0 {
				rc = c.Sleep(cond, &mu)
			}
			mu.Unlock()
			results <- rc
			// killed before sleeping: still refused
			mu.Lock()
			results <- c.Sleep(cond, &mu)
			mu.Unlock()
		})
		for k.Stats().Lists[Sleeping].Count == 0 {
			s.Yield()
		}
		s.Kill(pid)
		s.Wait()
		idle(s)
	}))
	runKernel(t, k)

	assert.Equal(t, -1, receive(t, results))
	assert.Equal(t, -1, receive(t, results))
}

func TestRunReturnsHalt(t *testing.T) {
	k := booted(t, nil)
	step(k, func(p *Proc) { k.sleepLocked(p, p) })

	k.t.Lock()
	k.initproc.state = Zombie
	k.t.Unlock()

	// the dump halts on the caller's goroutine
	var b bytes.Buffer
	assert.Panics(t, func() { _ = k.PrintList(&b, Sleeping) })
	require.True(t, k.t.mu.TryLock(), "table lock left held")
	k.t.mu.Unlock()

	var halt *Panic
	require.True(t, errors.As(k.Halted(), &halt))
	assert.Contains(t, halt.Reason, "corrupted list: pid 1 tagged zombie on sleep list")

	cancel, done := startKernel(k)
	defer cancel()
	assert.Same(t, halt, receive(t, done))
}

func TestRunReturnsNilWithoutHalt(t *testing.T) {
	k := booted(t, nil)
	assert.NoError(t, k.Halted())

	cancel, done := startKernel(k)
	cancel()
	assert.NoError(t, receive(t, done))
	assert.NoError(t, k.Halted())
}
