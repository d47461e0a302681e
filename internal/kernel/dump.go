package kernel

import (
	"bytes"
	"fmt"
	"io"
)

// Entries per output line in list dumps.
const (
	perLine       = 15
	perLineZombie = 10
)

var listTitles = [numStates]string{
	Unused:   "Free",
	Embryo:   "Embryo",
	Sleeping: "Sleep",
	Runnable: "Runnable",
	Running:  "Running",
	Zombie:   "Zombie",
}

// millis renders a tick count (one tick per millisecond) as seconds.
func millis(ticks uint64) string {
	return fmt.Sprintf("%d.%03d", ticks/1000, ticks%1000)
}

// ProcDump writes the ^P process table: one line per slot in use.
func (k *Kernel) ProcDump(w io.Writer) {
	var b bytes.Buffer
	b.WriteString("\nPID\tName         UID\tGID\tPPID\tPrio\tElapsed\tCPU\tState\tSize\n")

	k.locked(func() {
		now := k.clock.Now()
		for i := range k.t.procs {
			p := &k.t.procs[i]
			if p.state == Unused {
				continue
			}
			fmt.Fprintf(&b, "%d\t%-12s %d\t%d\t%d\t%d\t%s\t%s\t%s\t%d\n",
				p.pid, p.name, p.uid, p.gid, k.ppidLocked(p), p.priority,
				millis(now-p.startTicks), millis(p.cpuTicksTotal), p.state, p.size)
		}
	})

	_, _ = w.Write(b.Bytes())
}

// PrintList writes the pids on the list of state s. Zombies are shown as
// (pid, ppid); the runnable state prints every ready list and unused the
// free list size.
func (k *Kernel) PrintList(w io.Writer, s State) error {
	switch {
	case s < 0 || s >= numStates:
		return fmt.Errorf("invalid control sequence: state %d", s)
	case s == Runnable:
		k.PrintReadyLists(w)
		return nil
	case s == Unused:
		k.PrintFreeList(w)
		return nil
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "\n%s List Processes:\n", listTitles[s])

	k.locked(func() {
		if k.opts.Debug {
			k.checkProcs("printList")
		}
		wrap := perLine
		if s == Zombie {
			wrap = perLineZombie
		}
		count := 0
		l := &k.t.lists[s]
		if l.head == nilSlot {
			b.WriteString("(NULL)\n")
		}
		k.t.walk(l, func(p *Proc) bool {
			if p.state != s {
				k.panic("corrupted list: pid %d tagged %s on %s list", p.pid, p.state, s)
			}
			if s == Zombie {
				fmt.Fprintf(&b, "(%d, %d)", p.pid, k.ppidLocked(p))
			} else {
				fmt.Fprintf(&b, "%d", p.pid)
			}
			count++
			if p.next == nilSlot {
				b.WriteString("\n")
				return true
			}
			b.WriteString(" -> ")
			if count%wrap == 0 {
				b.WriteString("\n")
			}
			return true
		})
	})

	_, _ = w.Write(b.Bytes())
	return nil
}

// PrintReadyLists writes each ready list from the highest priority down as
// (pid, budget) pairs.
func (k *Kernel) PrintReadyLists(w io.Writer) {
	var b bytes.Buffer
	b.WriteString("Ready List Processes:\n")

	k.locked(func() {
		for prio := len(k.t.ready) - 1; prio >= 0; prio-- {
			fmt.Fprintf(&b, "%d: ", prio)
			l := &k.t.ready[prio]
			if l.head == nilSlot {
				b.WriteString("(NULL)\n")
				continue
			}
			count := 0
			k.t.walk(l, func(p *Proc) bool {
				fmt.Fprintf(&b, "(%d, %d)", p.pid, p.budget)
				if p.state != Runnable {
					fmt.Fprintf(&b, "\nlist invariant failed: process %d has state %s but is on ready list\n", p.pid, p.state)
				}
				if p.priority != prio {
					fmt.Fprintf(&b, "\nlist invariant failed: process %d has prio %d but is on runnable list %d\n", p.pid, p.priority, prio)
				}
				count++
				if p.next == nilSlot {
					b.WriteString("\n")
					return true
				}
				b.WriteString(" -> ")
				if count%perLine == 0 {
					b.WriteString("\n")
				}
				return true
			})
		}
	})

	_, _ = w.Write(b.Bytes())
}

// PrintFreeList writes the number of unused slots.
func (k *Kernel) PrintFreeList(w io.Writer) {
	var n int
	k.locked(func() {
		n = k.t.length(&k.t.lists[Unused])
	})

	fmt.Fprintf(w, "\nFree List Size: %d processes\n", n)
}

// locked runs fn with the table lock held. The lock is released even when
// fn halts the kernel, so a halt raised by a dump on a caller's goroutine
// does not leave the table locked.
func (k *Kernel) locked(fn func()) {
	k.t.Lock()
	defer k.t.Unlock()
	fn()
}

// ListCount is the length of one lifecycle list.
type ListCount struct {
	State string `json:"state"`
	Count int    `json:"count"`
}

// ListStats summarizes list membership. Total equals NProc on a consistent
// table.
type ListStats struct {
	Lists      []ListCount `json:"lists"`
	Total      int         `json:"total"`
	NProc      int         `json:"nproc"`
	Violations []string    `json:"violations,omitempty"`
}

// Consistent reports whether every slot is accounted for exactly once.
func (s ListStats) Consistent() bool {
	return s.Total == s.NProc && len(s.Violations) == 0
}

// Stats counts every lifecycle list, ready lists folded into runnable, and
// records any record whose tag disagrees with its list.
func (k *Kernel) Stats() ListStats {
	k.t.Lock()
	defer k.t.Unlock()

	st := ListStats{NProc: len(k.t.procs)}
	for s := Unused; s < numStates; s++ {
		lists := []*stateList{&k.t.lists[s]}
		if s == Runnable {
			lists = lists[:0]
			for i := range k.t.ready {
				lists = append(lists, &k.t.ready[i])
			}
		}

		count := 0
		for _, l := range lists {
			k.t.walk(l, func(p *Proc) bool {
				count++
				if p.state != s {
					st.Violations = append(st.Violations,
						fmt.Sprintf("process %d has state %s but is on list %s", p.pid, p.state, s))
				}
				return count <= len(k.t.procs)
			})
		}
		st.Lists = append(st.Lists, ListCount{State: s.String(), Count: count})
		st.Total += count
	}
	return st
}

// PrintListStats writes the per-list counts followed by the total.
func (k *Kernel) PrintListStats(w io.Writer) {
	st := k.Stats()

	var b bytes.Buffer
	for _, v := range st.Violations {
		fmt.Fprintf(&b, "\nlist invariant failed: %s\n", v)
	}
	for _, lc := range st.Lists {
		fmt.Fprintf(&b, "\n%s list has %2d processes", lc.State, lc.Count)
	}
	verdict := "Bummer"
	if st.Total == st.NProc {
		verdict = "Congratulations!"
	}
	fmt.Fprintf(&b, "\nTotal on lists is: %d. NPROC = %d. %s\n", st.Total, st.NProc, verdict)

	_, _ = w.Write(b.Bytes())
}
