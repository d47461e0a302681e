package workload

import (
	"fmt"
	"strconv"

	"github.com/edirooss/pdxkernel/internal/kernel"
)

// TPS is the number of clock ticks per second.
const TPS = 1000

// idleTicks is how long init naps when it has no children to wait for.
const idleTicks = TPS

// ticksString renders ticks as seconds with millisecond precision.
func ticksString(ticks uint64) string {
	return fmt.Sprintf("%d.%03d", ticks/TPS, ticks%TPS)
}

func atoi(s *kernel.Sys, argv []string, i int, what string) (int, bool) {
	if i >= len(argv) {
		s.Printf("usage: %s: missing %s\n", argv[0], what)
		return 0, false
	}
	n, err := strconv.Atoi(argv[i])
	if err != nil {
		s.Printf("%s: bad %s %q\n", argv[0], what, argv[i])
		return 0, false
	}
	return n, true
}

// initMain is the root process. It starts the command in argv[1:], if any,
// then reaps children forever, including orphans handed to it.
func (r *Registry) initMain(s *kernel.Sys, argv []string) {
	if len(argv) > 1 {
		if pid := r.Spawn(s, argv[1:]); pid < 0 {
			s.Printf("init: fork failed\n")
		} else {
			s.Printf("init: starting %s as pid %d\n", argv[1], pid)
		}
	}
	for {
		if pid := s.Wait(); pid < 0 {
			s.SleepTicks(idleTicks)
		}
	}
}

// timeMain runs argv[1:] in a child and reports how long it took.
func (r *Registry) timeMain(s *kernel.Sys, argv []string) {
	if len(argv) < 2 {
		s.Printf("usage: time <program> [args...]\n")
		return
	}

	start := s.Uptime()
	pid := r.Spawn(s, argv[1:])
	if pid < 0 {
		s.Printf("FAILED: fork failed\n")
		return
	}
	s.Wait()
	s.Printf("%s ran in %s seconds\n", argv[1], ticksString(s.Uptime()-start))
}

// psMain prints the process table: ps [max].
func psMain(s *kernel.Sys, argv []string) {
	max := s.NProc()
	if len(argv) > 1 {
		n, ok := atoi(s, argv, 1, "max")
		if !ok {
			return
		}
		max = n
	}

	procs, err := s.GetProcs(max)
	if err != nil {
		s.Printf("Error: ps call failed: %v\n", err)
		return
	}
	s.Printf("PID\tName\tUID\tGID\tPPID\tPrio\tElapsed\tCPU\tState\tSize\n")
	for _, p := range procs {
		s.Printf("%d\t%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%d\n",
			p.PID, p.Name, p.UID, p.GID, p.PPID, p.Priority,
			ticksString(p.ElapsedTicks), ticksString(p.CPUTotalTicks), p.State, p.Size)
	}
}

func setPriorityMain(s *kernel.Sys, argv []string) {
	pid, ok := atoi(s, argv, 1, "pid")
	if !ok {
		return
	}
	prio, ok := atoi(s, argv, 2, "priority")
	if !ok {
		return
	}
	if s.SetPriority(pid, prio) < 0 {
		s.Printf("An error has occurred while setting priority\n")
		return
	}
	s.Printf("Priority set successfully\n")
}

func getPriorityMain(s *kernel.Sys, argv []string) {
	pid, ok := atoi(s, argv, 1, "pid")
	if !ok {
		return
	}
	prio := s.GetPriority(pid)
	if prio < 0 {
		s.Printf("An error has occurred while getting priority\n")
		return
	}
	s.Printf("Priority is: %d\n", prio)
}

func killMain(s *kernel.Sys, argv []string) {
	for i := 1; i < len(argv); i++ {
		pid, ok := atoi(s, argv, i, "pid")
		if !ok {
			return
		}
		if s.Kill(pid) < 0 {
			s.Printf("kill %d failed\n", pid)
		}
	}
}

// spinMain burns CPU for the given number of ticks (default one second),
// trapping often enough to be preempted.
func spinMain(s *kernel.Sys, argv []string) {
	ticks := TPS
	if len(argv) > 1 {
		n, ok := atoi(s, argv, 1, "ticks")
		if !ok {
			return
		}
		ticks = n
	}

	start := s.Uptime()
	for s.Uptime()-start < uint64(ticks) {
		s.Trap()
	}
}

func sleepMain(s *kernel.Sys, argv []string) {
	n, ok := atoi(s, argv, 1, "ticks")
	if !ok {
		return
	}
	s.SleepTicks(n)
}

func uptimeMain(s *kernel.Sys, _ []string) {
	s.Printf("%s\n", ticksString(s.Uptime()))
}

// forkTestMain forks until the table is full, then waits for every child:
// forktest [n].
func forkTestMain(s *kernel.Sys, argv []string) {
	limit := 1000
	if len(argv) > 1 {
		n, ok := atoi(s, argv, 1, "count")
		if !ok {
			return
		}
		limit = n
	}

	n := 0
	for ; n < limit; n++ {
		pid := s.Fork(func(c *kernel.Sys) {})
		if pid < 0 {
			break
		}
	}
	s.Printf("fork test: %d children\n", n)

	for i := 0; i < n; i++ {
		if s.Wait() < 0 {
			s.Printf("wait stopped early\n")
			return
		}
	}
	if s.Wait() != -1 {
		s.Printf("wait got too many\n")
		return
	}
	s.Printf("fork test OK\n")
}

// sleepForkMain sleeps, forks a child that sleeps too, and waits for it.
func sleepForkMain(s *kernel.Sys, _ []string) {
	s.Printf("Process is sleeping now\n")
	s.SleepTicks(5 * TPS)
	s.Printf("Forking\n")
	pid := s.Fork(func(c *kernel.Sys) {
		c.Printf("Child process is in SLEEPING state\n")
		c.SleepTicks(5 * TPS)
	})
	if pid < 0 {
		s.Printf("An error has occurred while forking!\n")
		return
	}
	s.Wait()
	s.Printf("Child process has exited\n")
}

// waitDemoMain leaves a zombie around for a while before reaping it.
func waitDemoMain(s *kernel.Sys, _ []string) {
	s.Printf("Forking\n")
	pid := s.Fork(func(c *kernel.Sys) {
		c.SleepTicks(10 * TPS)
		c.Printf("Child process is exiting normally.\n")
	})
	if pid < 0 {
		s.Printf("An error has occurred while forking!\n")
		return
	}
	s.Printf("Wait for the child to exit normally.\n")
	s.Printf("Before Wait(). Sleeping for 5 seconds.\n")
	s.SleepTicks(5 * TPS)
	s.Wait()
	s.Printf("After Wait(). Sleeping for 5 seconds.\n")
	s.SleepTicks(5 * TPS)
}

// mlfqMain starts n CPU-bound children of the given length and one that
// mostly sleeps, then waits for all of them: mlfq [n] [ticks].
func (r *Registry) mlfqMain(s *kernel.Sys, argv []string) {
	n, ticks := 3, 2*TPS
	if len(argv) > 1 {
		v, ok := atoi(s, argv, 1, "count")
		if !ok {
			return
		}
		n = v
	}
	if len(argv) > 2 {
		v, ok := atoi(s, argv, 2, "ticks")
		if !ok {
			return
		}
		ticks = v
	}

	spawned := 0
	for i := 0; i < n; i++ {
		if r.Spawn(s, []string{"spin", strconv.Itoa(ticks)}) > 0 {
			spawned++
		}
	}
	if s.Fork(func(c *kernel.Sys) {
		for i := 0; i < 10; i++ {
			c.SleepTicks(ticks / 10)
		}
	}) > 0 {
		spawned++
	}

	for i := 0; i < spawned; i++ {
		s.Wait()
	}
	s.Printf("mlfq: %d children done\n", spawned)
}
