package kernel

// Chan identifies the condition a sleeping process waits on. Any comparable
// value works; the kernel uses *Proc for wait() and the clock for timed
// sleeps.
type Chan any

// Program is the code a process runs. When it returns the process exits.
type Program func(sys *Sys)

// TrapFrame is the saved user register state of a process. Fork copies the
// parent's frame and zeroes Ret, so the child resumes with a zero result.
type TrapFrame struct {
	Entry Program
	Ret   int
}

// AddressSpace is an opaque handle owned by the VM subsystem.
type AddressSpace any

// VM is the virtual memory subsystem. The process core only creates,
// copies, activates and frees address spaces at lifecycle boundaries.
type VM interface {
	// New builds the address space of the root process.
	New() (AddressSpace, error)
	// Copy duplicates a parent address space of the given size for fork.
	Copy(src AddressSpace, size int) (AddressSpace, error)
	// Resize grows or shrinks an address space and returns the new size.
	Resize(as AddressSpace, oldSize, newSize int) (int, error)
	// Activate switches the processor to as before running a process.
	Activate(as AddressSpace)
	// Free releases an address space of a reaped process.
	Free(as AddressSpace)
}

// Files is the open-file table and working directory of a process.
type Files interface {
	Dup() Files
	Close()
}

// Proc is one slot of the process table.
//
// All fields are guarded by the table lock except where noted. The record
// is never moved: lists link slots by index.
type Proc struct {
	slot int
	next int // intrusive list link; nilSlot at end of list

	state  State
	pid    int
	name   string
	uid    int
	gid    int
	parent int // slot of the parent; nilSlot when none

	priority  int
	budget    int
	killed    bool
	sleepChan Chan
	size      int

	startTicks    uint64
	cpuTicksIn    uint64
	cpuTicksTotal uint64

	// Owned by the process while it runs; handed over through the lock.
	cpu   *CPU
	ctx   *kcontext
	tf    TrapFrame
	as    AddressSpace
	files Files
}

// PID returns the process id, or 0 for a free slot.
func (p *Proc) PID() int { return p.pid }

const pageSize = 4096
