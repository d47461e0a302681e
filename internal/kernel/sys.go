package kernel

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Highest uid/gid a process may take.
const maxID = 32767

// Sys is the system-call handle of one process. Programs receive it as
// their only argument and must use it only from their own goroutine.
//
// Calls follow the kernel's integer convention: a pid or zero on success,
// -1 on failure.
type Sys struct {
	k *Kernel
	p *Proc
}

// PID returns the caller's pid.
func (s *Sys) PID() int { return s.p.pid }

// PPID returns the parent's pid, or the caller's own for the root.
func (s *Sys) PPID() int {
	s.k.t.Lock()
	defer s.k.t.Unlock()
	return s.k.ppidLocked(s.p)
}

// NProc returns the process table capacity.
func (s *Sys) NProc() int { return s.k.NProc() }

// Name returns the process name.
func (s *Sys) Name() string {
	s.k.t.Lock()
	defer s.k.t.Unlock()
	return s.p.name
}

// Fork creates a child running child, or the caller's own program when
// child is nil. It returns the child's pid or -1.
func (s *Sys) Fork(child Program) int {
	pid, err := s.k.fork(s.p, child)
	if err != nil {
		s.k.log.Debug("fork failed", zap.Int("pid", s.p.pid), zap.Error(err))
		return -1
	}
	return pid
}

// Exec replaces the running program with prog under a new name. It does
// not return: the process exits when prog does.
func (s *Sys) Exec(name string, prog Program) {
	s.k.t.Lock()
	s.p.name = name
	s.p.tf.Entry = prog
	s.k.t.Unlock()

	prog(s)
	s.Exit()
}

// Exit terminates the caller. It does not return.
func (s *Sys) Exit() {
	s.k.exit(s.p)
}

// Wait reaps an exited child and returns its pid, or -1 when the caller
// has no children.
func (s *Sys) Wait() int {
	pid, err := s.k.wait(s.p)
	if err != nil {
		return -1
	}
	return pid
}

// Kill marks pid killed.
func (s *Sys) Kill(pid int) int {
	if err := s.k.Kill(pid); err != nil {
		return -1
	}
	return 0
}

// Killed reports whether the caller has been killed.
func (s *Sys) Killed() bool {
	s.k.t.Lock()
	defer s.k.t.Unlock()
	return s.p.killed
}

// Yield gives up the CPU for one scheduling round.
func (s *Sys) Yield() {
	s.k.yield(s.p)
}

// Sleep blocks on ch, releasing lk while asleep, and returns 0 once woken.
// It returns -1 without sleeping, lk still held, if the caller has been
// killed; loops waiting on a condition must stop on -1 or they spin.
func (s *Sys) Sleep(ch Chan, lk sync.Locker) int {
	if s.k.sleep(s.p, ch, lk) {
		return -1
	}
	return 0
}

// Wakeup wakes every process sleeping on ch.
func (s *Sys) Wakeup(ch Chan) {
	s.k.Wakeup(ch)
}

// SleepTicks blocks for n clock ticks. It returns -1 if the caller is
// killed while asleep.
func (s *Sys) SleepTicks(n int) int {
	clk := s.k.clock
	pid := s.p.pid

	// sleep hands clk back locked even when the goroutine unwinds on
	// shutdown, so the deferred Unlock always balances.
	clk.Lock()
	defer clk.Unlock()

	deadline := clk.Now() + uint64(max(n, 0))
	clk.Arm(pid, deadline)
	defer clk.Disarm(pid)
	for clk.Now() < deadline {
		if s.Killed() {
			return -1
		}
		s.k.sleep(s.p, clk, clk)
	}
	return 0
}

// Uptime returns the ticks since boot.
func (s *Sys) Uptime() uint64 {
	return s.k.clock.Now()
}

// SetPriority sets the priority of pid.
func (s *Sys) SetPriority(pid, prio int) int {
	if err := s.k.SetPriority(pid, prio); err != nil {
		return -1
	}
	return 0
}

// GetPriority returns the priority of pid or -1.
func (s *Sys) GetPriority(pid int) int {
	prio, err := s.k.GetPriority(pid)
	if err != nil {
		return -1
	}
	return prio
}

// GetProcs returns up to max process entries.
func (s *Sys) GetProcs(max int) ([]ProcInfo, error) {
	return s.k.Snapshot(max)
}

// Sbrk grows memory by n bytes and returns the previous size, or -1.
func (s *Sys) Sbrk(n int) int {
	s.k.t.Lock()
	old := s.p.size
	s.k.t.Unlock()

	if err := s.k.growproc(s.p, n); err != nil {
		return -1
	}
	return old
}

// SetUID sets the caller's uid.
func (s *Sys) SetUID(uid int) int {
	return s.setID(&s.p.uid, uid)
}

// SetGID sets the caller's gid.
func (s *Sys) SetGID(gid int) int {
	return s.setID(&s.p.gid, gid)
}

// GetUID returns the caller's uid.
func (s *Sys) GetUID() int {
	s.k.t.Lock()
	defer s.k.t.Unlock()
	return s.p.uid
}

// GetGID returns the caller's gid.
func (s *Sys) GetGID() int {
	s.k.t.Lock()
	defer s.k.t.Unlock()
	return s.p.gid
}

func (s *Sys) setID(field *int, id int) int {
	if err := s.k.setID(field, id); err != nil {
		return -1
	}
	return 0
}

// Trap is the return-to-user boundary. A killed process exits here; a
// process whose CPU took a timer interrupt, or whose kernel is going
// down, yields.
func (s *Sys) Trap() {
	if s.Killed() {
		s.Exit()
	}
	if s.k.stopping() {
		s.Yield()
		return
	}
	if c := s.p.cpu; c != nil && c.resched.SetToIf(true, false) {
		s.Yield()
	}
}

// Printf writes formatted output to the caller's console stream.
func (s *Sys) Printf(format string, args ...any) {
	fmt.Fprintf(s.k.console.Proc(s.p.pid), format, args...)
}
