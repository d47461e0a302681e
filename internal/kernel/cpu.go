package kernel

import "github.com/tevino/abool"

// CPU is one simulated processor.
type CPU struct {
	id int

	// proc is the process running on this CPU, nil while the scheduler
	// loop itself runs. Guarded by the table lock.
	proc *Proc

	scheduler *kcontext

	// resched is raised by the timer interrupt and consumed by the running
	// process at its next trap boundary.
	resched *abool.AtomicBool

	// kick wakes an idle scheduler loop. Coalescing: one pending wake-up
	// is enough.
	kick chan struct{}
}

func newCPU(id int) *CPU {
	return &CPU{
		id:        id,
		scheduler: newContext(nil, nil),
		resched:   abool.New(),
		kick:      make(chan struct{}, 1),
	}
}

// ID returns the processor number.
func (c *CPU) ID() int { return c.id }

func (c *CPU) wake() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}
