package kernel

// kcontext is the saved execution state of a kernel thread. Each process
// runs on its own goroutine and each CPU's scheduler loop on another; a
// kcontext is the channel its goroutine parks on while some other thread
// owns the processor.
//
// Exactly one goroutine bound to a CPU executes at any time: swtch hands
// the processor over and parks the caller in the same step.
type kcontext struct {
	resume chan struct{}
	dead   chan struct{}   // closed when the kernel stack is freed
	down   <-chan struct{} // closed on kernel shutdown; nil for schedulers

	entry func() // first code to run; started on the first switch
}

func newContext(down <-chan struct{}, entry func()) *kcontext {
	return &kcontext{
		resume: make(chan struct{}),
		dead:   make(chan struct{}),
		down:   down,
		entry:  entry,
	}
}

// swtch transfers control from old to new and returns when something
// switches back to old. It reports false, without parking, if new can no
// longer be resumed because its stack was freed or the kernel is down.
// It also reports false when old itself was freed or shut down while
// parked; the caller must then unwind its goroutine.
//
// A scheduler context is never freed and has no down channel, so for the
// scheduler false only means new could not be resumed.
func swtch(old, new *kcontext) bool {
	if e := new.entry; e != nil {
		new.entry = nil
		go e()
	} else {
		select {
		case new.resume <- struct{}{}:
		case <-new.dead:
			return false
		case <-new.down:
			return false
		}
	}
	return old.park()
}

// park blocks until c is resumed (true) or freed or shut down (false).
func (c *kcontext) park() bool {
	select {
	case <-c.resume:
		return true
	case <-c.dead:
		return false
	case <-c.down:
		return false
	}
}

// free releases the context of a reaped process. A goroutine still parked
// on it unwinds.
func (c *kcontext) free() {
	select {
	case <-c.dead:
	default:
		close(c.dead)
	}
}
