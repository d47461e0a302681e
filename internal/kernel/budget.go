package kernel

// chargeBudget charges p for the interval it just spent running. A process
// that used up its budget drops one priority level (never below zero) and
// gets a fresh budget. Called on every transition out of running.
func (k *Kernel) chargeBudget(p *Proc) {
	p.budget -= int(k.clock.Now() - p.cpuTicksIn)
	if p.budget > 0 {
		return
	}
	if p.priority > 0 {
		p.priority--
		k.metrics.demotions.Inc()
	}
	p.budget = k.opts.DefaultBudget
}

// promoteLocked raises every running, ready and sleeping process below the
// maximum by one level. Ready lists are shifted from the top down so each
// record moves exactly once and keeps its FIFO position.
func (k *Kernel) promoteLocked() {
	max := k.opts.MaxPriority

	k.t.walk(&k.t.lists[Running], func(p *Proc) bool {
		if p.priority < max {
			p.priority++
		}
		return true
	})

	for i := max - 1; i >= 0; i-- {
		k.t.walk(&k.t.ready[i], func(p *Proc) bool {
			k.detach(p, Runnable, "promote")
			p.priority++
			k.attach(p, Runnable)
			return true
		})
	}

	k.t.walk(&k.t.lists[Sleeping], func(p *Proc) bool {
		if p.priority < max {
			p.priority++
		}
		return true
	})

	k.metrics.promotions.Inc()
}
