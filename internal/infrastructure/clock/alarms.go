package clock

import "container/heap"

// alarms is the set of armed wake deadlines, at most one per pid.
//
// The deadline of record lives in byPID. The heap only orders deadlines
// and may hold stale entries left behind by a re-arm or disarm; they are
// skipped when they reach the top. Re-arming happens on every spurious
// wake-up of a timed sleeper, so this keeps arm and disarm O(log n) and
// O(1) without tracking heap positions.
type alarms struct {
	byPID map[int]uint64
	due   deadlineHeap
}

type deadline struct {
	when uint64
	pid  int
}

func newAlarms() *alarms {
	return &alarms{byPID: make(map[int]uint64)}
}

// arm sets pid's deadline, replacing any earlier one.
func (a *alarms) arm(pid int, when uint64) {
	if cur, ok := a.byPID[pid]; ok && cur == when {
		return
	}
	a.byPID[pid] = when
	heap.Push(&a.due, deadline{when: when, pid: pid})
}

// disarm drops pid's deadline. Its heap entry goes stale.
func (a *alarms) disarm(pid int) {
	delete(a.byPID, pid)
}

// expire drops every deadline at or before now and returns how many it
// dropped.
func (a *alarms) expire(now uint64) int {
	n := 0
	for len(a.due) > 0 && a.due[0].when <= now {
		d := heap.Pop(&a.due).(deadline)
		if when, ok := a.byPID[d.pid]; ok && when == d.when {
			delete(a.byPID, d.pid)
			n++
		}
	}
	return n
}

func (a *alarms) len() int { return len(a.byPID) }

// deadlineHeap orders deadlines soonest first, ties by pid.
type deadlineHeap []deadline

func (h deadlineHeap) Len() int      { return len(h) }
func (h deadlineHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h deadlineHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].pid < h[j].pid
}

func (h *deadlineHeap) Push(x any) { *h = append(*h, x.(deadline)) }

func (h *deadlineHeap) Pop() any {
	old := *h
	d := old[len(old)-1]
	*h = old[:len(old)-1]
	return d
}
