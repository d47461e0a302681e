package kernel

import "errors"

// Recoverable failures, reported to the caller.
var (
	ErrNoFreeSlot       = errors.New("no free process slot")
	ErrStackSetup       = errors.New("kernel stack allocation failed")
	ErrNoChildren       = errors.New("no children to wait for")
	ErrNoProc           = errors.New("no such process")
	ErrBadPriority      = errors.New("priority out of range")
	ErrSnapshotTooLarge = errors.New("snapshot larger than process table")
	ErrNotOnList        = errors.New("process not on list")
	ErrBadID            = errors.New("uid/gid out of range")
)

// Panic is raised when the kernel halts on a broken invariant. Nothing
// recovers it: a kernel panic stops every processor.
type Panic struct {
	Reason string
}

func (p *Panic) Error() string { return "kernel panic: " + p.Reason }
