package pidalloc

import (
	"errors"
	"sync"
)

// ErrExhausted means every pid in [1, pidMax] is currently live.
var ErrExhausted = errors.New("pid space exhausted")

// Allocator manages a monotonic, wrap-around PID space.
// Behavior mirrors Linux: increment, wrap, skip in-use.
type Allocator struct {
	mu     sync.Mutex
	next   int
	inUse  map[int]struct{}
	pidMax int
}

// New returns an allocator over the range [1, pidMax].
// Starts at PID 1, so the first process allocated is the root process.
func New(pidMax int) *Allocator {
	if pidMax < 1 {
		pidMax = 1
	}
	return &Allocator{
		next:   1,
		pidMax: pidMax,
		inUse:  make(map[int]struct{}),
	}
}

// Alloc returns the next available PID.
// Dev note: linear scan w/ wrap, a live pid is never handed out twice.
func (a *Allocator) Alloc() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := a.next

	for {
		p := a.next

		// increment-first semantics (kernel-like)
		a.next++
		if a.next > a.pidMax {
			a.next = 1
		}

		if _, used := a.inUse[p]; !used {
			a.inUse[p] = struct{}{}
			return p, nil
		}

		// wrapped fully → no available PIDs
		if a.next == start {
			return 0, ErrExhausted
		}
	}
}

// Release returns a PID to the free pool.
// No-op on invalid or duplicate releases.
func (a *Allocator) Release(pid int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.inUse, pid) // map delete is safe on missing keys
}

// Live reports how many PIDs are currently allocated.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inUse)
}
