package kernel

import "sync"

// table is the process table: a fixed array of slots, one list per
// lifecycle state and one ready list per priority level, all guarded by a
// single lock.
//
// Runnable records live on ready[priority]; lists[Runnable] stays empty.
type table struct {
	mu   sync.Mutex
	held bool // true while mu is held; read only by the holder

	procs []Proc
	lists [numStates]stateList
	ready []stateList

	promoteAt uint64
}

func newTable(nproc, maxPriority int) *table {
	t := &table{
		procs: make([]Proc, nproc),
		ready: make([]stateList, maxPriority+1),
	}
	for i := range t.lists {
		t.lists[i] = emptyList()
	}
	for i := range t.ready {
		t.ready[i] = emptyList()
	}
	for i := range t.procs {
		p := &t.procs[i]
		p.slot = i
		p.parent = nilSlot
		p.state = Unused
		t.add(&t.lists[Unused], p)
	}
	return t
}

// Lock acquires the table lock. *table is a sync.Locker so it can be
// handed to sleep like any other lock.
func (t *table) Lock() {
	t.mu.Lock()
	t.held = true
}

// Unlock releases the table lock. It may be called from a different
// goroutine than the one that locked it: the lock travels with the CPU
// across a context switch.
func (t *table) Unlock() {
	t.held = false
	t.mu.Unlock()
}

// listOf returns the list a record tagged s at priority prio belongs on.
func (t *table) listOf(s State, prio int) *stateList {
	if s == Runnable {
		return &t.ready[prio]
	}
	return &t.lists[s]
}

// each visits every record that is not unused: embryo, sleeping, ready
// from the highest level down, running, zombie. It stops when fn returns
// false.
func (t *table) each(fn func(p *Proc) bool) {
	stop := false
	visit := func(p *Proc) bool {
		if !fn(p) {
			stop = true
		}
		return !stop
	}

	t.walk(&t.lists[Embryo], visit)
	if stop {
		return
	}
	t.walk(&t.lists[Sleeping], visit)
	for i := len(t.ready) - 1; i >= 0 && !stop; i-- {
		t.walk(&t.ready[i], visit)
	}
	if stop {
		return
	}
	t.walk(&t.lists[Running], visit)
	if stop {
		return
	}
	t.walk(&t.lists[Zombie], visit)
}

// find returns the live record with the given pid among the listed
// states, or nil. Runnable covers every ready list.
func (t *table) find(pid int, states ...State) *Proc {
	var found *Proc
	for _, s := range states {
		match := func(p *Proc) bool {
			if p.pid == pid {
				found = p
				return false
			}
			return true
		}
		if s == Runnable {
			for i := len(t.ready) - 1; i >= 0 && found == nil; i-- {
				t.walk(&t.ready[i], match)
			}
		} else {
			t.walk(&t.lists[s], match)
		}
		if found != nil {
			return found
		}
	}
	return nil
}
