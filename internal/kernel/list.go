package kernel

// nilSlot terminates a list and marks an absent parent.
const nilSlot = -1

// stateList is a singly linked list threaded through the table slots.
// Every structural change goes through add and remove below; both assume
// the table lock is held.
type stateList struct {
	head int
	tail int
}

func emptyList() stateList { return stateList{head: nilSlot, tail: nilSlot} }

// add appends p at the tail in O(1).
func (t *table) add(l *stateList, p *Proc) {
	p.next = nilSlot
	if l.head == nilSlot {
		l.head = p.slot
		l.tail = p.slot
		return
	}
	t.procs[l.tail].next = p.slot
	l.tail = p.slot
}

// remove unlinks p by identity. It walks the list to find the predecessor
// and leaves p.next cleared so the record cannot stay reachable.
func (t *table) remove(l *stateList, p *Proc) error {
	if l.head == nilSlot || l.tail == nilSlot || p == nil {
		return ErrNotOnList
	}

	prev := nilSlot
	for cur := l.head; cur != nilSlot; cur = t.procs[cur].next {
		if cur != p.slot {
			prev = cur
			continue
		}
		if prev == nilSlot {
			l.head = p.next
		} else {
			t.procs[prev].next = p.next
		}
		if l.tail == p.slot {
			l.tail = prev
		}
		p.next = nilSlot
		return nil
	}
	return ErrNotOnList
}

// front returns the head record or nil.
func (t *table) front(l *stateList) *Proc {
	if l.head == nilSlot {
		return nil
	}
	return &t.procs[l.head]
}

// walk calls fn for each record in list order until fn returns false. The
// successor is read before fn runs, so fn may move the current record to
// another list.
func (t *table) walk(l *stateList, fn func(p *Proc) bool) {
	for cur := l.head; cur != nilSlot; {
		p := &t.procs[cur]
		cur = p.next
		if !fn(p) {
			return
		}
	}
}

// length counts the records on l. A list longer than the table is cut off,
// so a corrupted (cyclic) list cannot hang the caller.
func (t *table) length(l *stateList) int {
	n := 0
	for cur := l.head; cur != nilSlot && n <= len(t.procs); cur = t.procs[cur].next {
		n++
	}
	return n
}
