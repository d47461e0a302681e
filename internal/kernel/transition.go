package kernel

import "go.uber.org/zap"

// detach removes p from the list of state from and checks its tag. Both
// failures mean the table is corrupt and halt the kernel.
func (k *Kernel) detach(p *Proc, from State, where string) {
	if err := k.t.remove(k.t.listOf(from, p.priority), p); err != nil {
		k.panic("%s: failed to remove pid %d from %s list: %v", where, p.pid, from, err)
	}
	k.assertState(p, from, where)
}

// attach tags p with state to and appends it to the matching list.
func (k *Kernel) attach(p *Proc, to State) {
	p.state = to
	k.t.add(k.t.listOf(to, p.priority), p)
}

// transition moves p between lifecycle lists. Table lock must be held.
func (k *Kernel) transition(p *Proc, from, to State, where string) {
	k.detach(p, from, where)
	k.attach(p, to)
	k.log.Debug("state transition",
		zap.Int("pid", p.pid),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.String("where", where))
}

// assertState halts if p is not tagged s.
func (k *Kernel) assertState(p *Proc, s State, where string) {
	if p.state == s {
		return
	}
	k.panic("%s: proc state is %s and should be %s", where, p.state, s)
}
