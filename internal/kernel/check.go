package kernel

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-multierror"
)

// record is the part of a slot worth showing in a consistency report.
type record struct {
	Slot     int
	Next     int
	State    State
	PID      int
	Name     string
	Parent   int
	Priority int
	Budget   int
}

func recordOf(p *Proc) record {
	return record{
		Slot:     p.slot,
		Next:     p.next,
		State:    p.state,
		PID:      p.pid,
		Name:     p.name,
		Parent:   p.parent,
		Priority: p.priority,
		Budget:   p.budget,
	}
}

var dumpConfig = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}

// Check verifies that every slot is reachable from exactly one list, that
// each record is tagged with the state of its list and that every ready
// record sits on the ready list of its own priority.
func (k *Kernel) Check() error {
	k.t.Lock()
	defer k.t.Unlock()
	return k.checkLocked()
}

func (k *Kernel) checkLocked() error {
	var result *multierror.Error
	seen := make([]int, len(k.t.procs))

	scan := func(l *stateList, s State, prio int) {
		n := 0
		last := nilSlot
		for cur := l.head; cur != nilSlot; cur = k.t.procs[cur].next {
			if cur < 0 || cur >= len(k.t.procs) {
				result = multierror.Append(result, fmt.Errorf("%s list links to slot %d outside the table", s, cur))
				return
			}
			if n++; n > len(k.t.procs) {
				result = multierror.Append(result, fmt.Errorf("%s list is cyclic", s))
				return
			}
			p := &k.t.procs[cur]
			seen[cur]++
			if p.state != s {
				result = multierror.Append(result, fmt.Errorf("slot on %s list has state %s:\n%s",
					s, p.state, dumpConfig.Sdump(recordOf(p))))
			}
			if s == Runnable && p.priority != prio {
				result = multierror.Append(result, fmt.Errorf("slot on ready list %d has priority %d:\n%s",
					prio, p.priority, dumpConfig.Sdump(recordOf(p))))
			}
			last = cur
		}
		if l.tail != last {
			result = multierror.Append(result, fmt.Errorf("%s list tail is slot %d, last linked slot is %d", s, l.tail, last))
		}
	}

	for s := Unused; s < numStates; s++ {
		if s == Runnable {
			if l := k.t.lists[Runnable]; l.head != nilSlot {
				result = multierror.Append(result, fmt.Errorf("runnable records outside the ready lists"))
			}
			for prio := range k.t.ready {
				scan(&k.t.ready[prio], Runnable, prio)
			}
			continue
		}
		scan(&k.t.lists[s], s, 0)
	}

	for i, n := range seen {
		if n == 1 {
			continue
		}
		result = multierror.Append(result, fmt.Errorf("slot %d is on %d lists:\n%s",
			i, n, dumpConfig.Sdump(recordOf(&k.t.procs[i]))))
	}
	return result.ErrorOrNil()
}

// checkProcs halts the kernel when the table and the lists disagree.
// Table lock must be held.
func (k *Kernel) checkProcs(where string) {
	if err := k.checkLocked(); err != nil {
		k.panic("%s: process array and lists inconsistent: %v", where, err)
	}
}
