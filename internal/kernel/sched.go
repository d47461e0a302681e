package kernel

import (
	"context"
	"runtime"

	"go.uber.org/zap"
)

// scheduler is the per-CPU loop. It never returns while the kernel is up:
// each round it takes the table lock, runs the highest-priority ready
// process until that process gives the CPU back, and releases the lock.
// With nothing to run it waits for a kick.
func (k *Kernel) scheduler(ctx context.Context, c *CPU) error {
	k.log.Debug("cpu online", zap.Int("cpu", c.id))
	defer k.log.Debug("cpu offline", zap.Int("cpu", c.id))

	for {
		if ctx.Err() != nil || k.stopping() {
			return nil
		}

		k.t.Lock()
		ran := k.scheduleOnce(c)
		k.t.Unlock()
		if ran {
			continue
		}

		select {
		case <-c.kick:
		case <-ctx.Done():
			return nil
		case <-k.down:
			return nil
		}
	}
}

// scheduleOnce runs at most one process on c and reports whether it did.
// Table lock must be held.
func (k *Kernel) scheduleOnce(c *CPU) bool {
	ran := false
	if p := k.pickLocked(); p != nil {
		c.proc = p
		p.cpu = c
		k.vm.Activate(p.as)
		k.transition(p, Runnable, Running, "scheduler")
		p.cpuTicksIn = k.clock.Now()
		k.metrics.switches.Inc()
		c.resched.UnSet()

		k.run(c, p)

		// Process is done running for now. It changed its state before
		// coming back.
		c.proc = nil
		ran = true
	}

	if now := k.clock.Now(); now >= k.t.promoteAt {
		k.promoteLocked()
		k.t.promoteAt = now + k.opts.TicksToPromote
	}

	if k.opts.Debug {
		k.checkProcs("scheduler")
	}
	return ran
}

// pickLocked returns the head of the highest non-empty ready list, or nil.
func (k *Kernel) pickLocked() *Proc {
	for i := len(k.t.ready) - 1; i >= 0; i-- {
		if p := k.t.front(&k.t.ready[i]); p != nil {
			return p
		}
	}
	return nil
}

// switchTo is the default run: hand the processor to p's goroutine and
// park the scheduler until p switches back.
func (k *Kernel) switchTo(c *CPU, p *Proc) {
	if k.stopping() {
		return
	}
	if !swtch(c.scheduler, p.ctx) {
		k.log.Debug("switch aborted", zap.Int("cpu", c.id), zap.Int("pid", p.pid))
	}
}

// sched gives the CPU back to the scheduler. The caller holds the table
// lock and has already moved p out of running; sched returns, still
// holding the lock, when p is scheduled again.
//
// If p is reaped or the kernel goes down while p is switched out, p's
// goroutine exits from here instead. It first re-acquires the table lock,
// as a normal return would, so callers must release the table lock (and
// restore any lock they swapped out) in defers.
func (k *Kernel) sched(p *Proc) {
	if !k.t.held {
		k.panic("sched ptable.lock")
	}
	if p.state == Running {
		k.panic("sched running")
	}
	c := p.cpu
	if c == nil || c.proc != p {
		k.panic("sched pid %d not on a cpu", p.pid)
	}

	p.cpuTicksTotal += k.clock.Now() - p.cpuTicksIn
	p.cpu = nil
	if !swtch(p.ctx, c.scheduler) {
		k.t.Lock()
		runtime.Goexit()
	}
}

// yield gives up the CPU for one scheduling round.
func (k *Kernel) yield(p *Proc) {
	k.t.Lock()
	defer k.t.Unlock()
	k.yieldLocked(p)
	k.sched(p)
}

func (k *Kernel) yieldLocked(p *Proc) {
	k.detach(p, Running, "yield")
	k.chargeBudget(p)
	k.attach(p, Runnable)
	k.kickAll()
}
