package kernel

import (
	"fmt"

	"go.uber.org/zap"
)

// allocate takes the head of the unused list, gives it a fresh pid and
// parks it on the embryo list, then sets up its kernel stack and context
// outside the lock. On stack failure the slot goes back to unused.
func (k *Kernel) allocate() (*Proc, error) {
	k.t.Lock()
	p := k.t.front(&k.t.lists[Unused])
	if p == nil {
		k.t.Unlock()
		k.metrics.allocFailures.Inc()
		return nil, ErrNoFreeSlot
	}
	pid, err := k.pids.Alloc()
	if err != nil {
		k.t.Unlock()
		k.metrics.allocFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrNoFreeSlot, err)
	}
	k.transition(p, Unused, Embryo, "allocproc")
	p.pid = pid
	p.parent = nilSlot
	p.killed = false
	p.sleepChan = nil
	p.priority = k.opts.MaxPriority
	p.budget = k.opts.DefaultBudget
	p.startTicks = k.clock.Now()
	p.cpuTicksIn = 0
	p.cpuTicksTotal = 0
	k.t.Unlock()

	if !k.stacks.TryAcquire(pid) {
		k.t.Lock()
		k.transition(p, Embryo, Unused, "allocproc")
		p.pid = 0
		k.t.Unlock()
		k.pids.Release(pid)
		k.metrics.allocFailures.Inc()
		k.log.Warn("kernel stack allocation failed", zap.Int("pid", pid))
		return nil, ErrStackSetup
	}
	p.ctx = newContext(k.down, func() { k.forkret(p) })
	return p, nil
}

// freeEmbryo undoes allocate for a process that never became runnable.
func (k *Kernel) freeEmbryo(p *Proc) {
	pid := p.pid
	k.stacks.Release(pid)
	p.ctx.free()
	p.ctx = nil

	k.t.Lock()
	k.transition(p, Embryo, Unused, "freeEmbryo")
	p.pid = 0
	p.parent = nilSlot
	p.killed = false
	k.t.Unlock()

	k.pids.Release(pid)
}

// forkret is the first code a new process runs. The scheduler switched to
// it with the table lock held.
func (k *Kernel) forkret(p *Proc) {
	k.t.Unlock()

	sys := &Sys{k: k, p: p}
	if entry := p.tf.Entry; entry != nil {
		entry(sys)
	}
	sys.Exit()
}

// fork creates a runnable child of cur that starts at entry (or at cur's
// own entry when nil) and returns the child's pid.
func (k *Kernel) fork(cur *Proc, entry Program) (int, error) {
	np, err := k.allocate()
	if err != nil {
		return -1, fmt.Errorf("fork: %w", err)
	}

	as, err := k.vm.Copy(cur.as, cur.size)
	if err != nil {
		k.freeEmbryo(np)
		k.metrics.allocFailures.Inc()
		return -1, fmt.Errorf("fork: copy address space: %w", err)
	}

	tf := cur.tf
	tf.Ret = 0
	if entry != nil {
		tf.Entry = entry
	}
	var files Files
	if cur.files != nil {
		files = cur.files.Dup()
	}

	k.t.Lock()
	np.as = as
	np.size = cur.size
	np.parent = cur.slot
	np.tf = tf
	np.files = files
	np.name = cur.name
	np.uid = cur.uid
	np.gid = cur.gid
	np.priority = k.opts.MaxPriority
	np.budget = k.opts.DefaultBudget
	pid := np.pid
	k.transition(np, Embryo, Runnable, "fork")
	k.t.Unlock()

	k.metrics.forks.Inc()
	k.kickAll()
	return pid, nil
}

// exit terminates cur. It does not return: the process stays a zombie
// until its parent reaps it.
func (k *Kernel) exit(cur *Proc) {
	if cur == k.initproc {
		k.panic("init exiting")
	}

	if cur.files != nil {
		cur.files.Close()
		cur.files = nil
	}

	k.t.Lock()
	defer k.t.Unlock()
	k.exitLocked(cur)
	k.sched(cur)
	k.panic("zombie exit")
}

// exitLocked performs the state side of exit: wake the parent, hand
// children to init, become a zombie.
func (k *Kernel) exitLocked(cur *Proc) {
	if cur.parent != nilSlot {
		// Parent might be sleeping in wait().
		k.wakeupLocked(&k.t.procs[cur.parent])
	}

	adoptedZombie := false
	k.t.each(func(p *Proc) bool {
		if p.parent == cur.slot {
			p.parent = k.initproc.slot
			if p.state == Zombie {
				adoptedZombie = true
			}
		}
		return true
	})
	if adoptedZombie {
		k.wakeupLocked(k.initproc)
	}

	k.transition(cur, Running, Zombie, "exit")
	cur.size = 0
	k.metrics.exits.Inc()
}

// wait reaps one zombie child of cur and returns its pid. It sleeps while
// cur has children but none has exited.
func (k *Kernel) wait(cur *Proc) (int, error) {
	k.t.Lock()
	defer k.t.Unlock()
	for {
		pid, haveKids := k.reapLocked(cur)
		if pid > 0 {
			return pid, nil
		}

		// No point waiting if we don't have any children.
		if !haveKids || cur.killed {
			return -1, ErrNoChildren
		}

		k.sleep(cur, cur, k.t)
	}
}

// reapLocked scans every list once for children of cur. If one of them is
// a zombie it is returned to the unused list and its former pid returned.
func (k *Kernel) reapLocked(cur *Proc) (pid int, haveKids bool) {
	var zombie *Proc
	k.t.each(func(p *Proc) bool {
		if p.parent != cur.slot {
			return true
		}
		haveKids = true
		if p.state == Zombie {
			zombie = p
			return false
		}
		return true
	})
	if zombie == nil {
		return 0, haveKids
	}

	pid = zombie.pid
	k.stacks.Release(pid)
	zombie.ctx.free()
	zombie.ctx = nil
	k.vm.Free(zombie.as)
	zombie.as = nil
	zombie.tf = TrapFrame{}
	zombie.pid = 0
	zombie.parent = nilSlot
	zombie.name = ""
	zombie.uid = 0
	zombie.gid = 0
	zombie.killed = false
	k.transition(zombie, Zombie, Unused, "wait")
	k.pids.Release(pid)
	k.metrics.reaps.Inc()
	return pid, true
}

// Kill marks the process killed. A sleeping target is made runnable so it
// notices promptly; otherwise the flag is checked at its next trap.
// Zombies and free slots are not found.
func (k *Kernel) Kill(pid int) error {
	k.t.Lock()
	defer k.t.Unlock()

	p := k.t.find(pid, Embryo, Sleeping, Runnable, Running)
	if p == nil {
		return fmt.Errorf("kill %d: %w", pid, ErrNoProc)
	}
	p.killed = true
	if p.state == Sleeping {
		p.sleepChan = nil
		k.transition(p, Sleeping, Runnable, "kill")
		k.kickAll()
	}
	k.metrics.kills.Inc()
	k.log.Debug("process killed", zap.Int("pid", pid), zap.Stringer("state", p.state))
	return nil
}

// growproc grows (or with a negative n shrinks) the memory of cur.
func (k *Kernel) growproc(cur *Proc, n int) error {
	sz, err := k.vm.Resize(cur.as, cur.size, cur.size+n)
	if err != nil {
		return fmt.Errorf("growproc: %w", err)
	}
	k.t.Lock()
	cur.size = sz
	k.t.Unlock()
	k.vm.Activate(cur.as)
	return nil
}
