package kernel

import "sync"

// sleep atomically releases lk and blocks p on ch. lk is re-acquired
// before sleep returns, also when p's goroutine unwinds on shutdown.
// Callers re-check their condition and the killed flag in a loop.
//
// sleep reports whether p has been killed. A killed p does not sleep at
// all, so a caller that loops without checking would spin.
//
// Once the table lock is held no wakeup can be missed: wakeup runs with
// the table lock, so it is safe to release lk.
func (k *Kernel) sleep(p *Proc, ch Chan, lk sync.Locker) (killed bool) {
	if p == nil {
		k.panic("sleep")
	}
	if lk == nil {
		k.panic("sleep without lk")
	}

	if lk != sync.Locker(k.t) {
		k.t.Lock()
		lk.Unlock()
		defer func() {
			k.t.Unlock()
			lk.Lock()
		}()
	}

	// A killed process would be woken by kill anyway; if the kill landed
	// before we got the table lock, don't go to sleep at all.
	if p.killed {
		return true
	}
	k.sleepLocked(p, ch)
	k.sched(p)

	// Tidy up.
	p.sleepChan = nil
	return p.killed
}

func (k *Kernel) sleepLocked(p *Proc, ch Chan) {
	p.sleepChan = ch
	k.detach(p, Running, "sleep")
	k.chargeBudget(p)
	k.attach(p, Sleeping)
}

// wakeupLocked makes every process sleeping on ch runnable. Channels are
// compared with ==, so ch must be comparable. Table lock must be held.
func (k *Kernel) wakeupLocked(ch Chan) {
	woke := false
	k.t.walk(&k.t.lists[Sleeping], func(p *Proc) bool {
		if p.sleepChan == ch {
			p.sleepChan = nil
			k.transition(p, Sleeping, Runnable, "wakeup")
			woke = true
		}
		return true
	})
	if woke {
		k.kickAll()
	}
}

// Wakeup wakes every process sleeping on ch.
func (k *Kernel) Wakeup(ch Chan) {
	k.t.Lock()
	k.wakeupLocked(ch)
	k.t.Unlock()
}
