package kernel

import (
	"fmt"

	"go.uber.org/zap"
)

// SetPriority sets the priority of pid and gives it a fresh budget. A ready
// process moves to the tail of its new ready list.
func (k *Kernel) SetPriority(pid, prio int) error {
	if prio < 0 || prio > k.opts.MaxPriority {
		return fmt.Errorf("set priority %d (max %d): %w", prio, k.opts.MaxPriority, ErrBadPriority)
	}

	k.t.Lock()
	defer k.t.Unlock()

	p := k.t.find(pid, Embryo, Sleeping, Runnable, Running)
	if p == nil {
		return fmt.Errorf("set priority of %d: %w", pid, ErrNoProc)
	}
	if p.state == Runnable && p.priority != prio {
		k.detach(p, Runnable, "setpriority")
		p.priority = prio
		k.attach(p, Runnable)
	}
	p.priority = prio
	p.budget = k.opts.DefaultBudget

	k.log.Debug("priority set", zap.Int("pid", pid), zap.Int("priority", prio))
	return nil
}

// GetPriority returns the priority of any live process, zombies included.
func (k *Kernel) GetPriority(pid int) (int, error) {
	k.t.Lock()
	defer k.t.Unlock()

	p := k.t.find(pid, Embryo, Sleeping, Runnable, Running, Zombie)
	if p == nil {
		return -1, fmt.Errorf("get priority of %d: %w", pid, ErrNoProc)
	}
	return p.priority, nil
}

// setID stores a uid or gid of a process record. Ids are bounded by maxID.
func (k *Kernel) setID(field *int, id int) error {
	if id < 0 || id > maxID {
		return fmt.Errorf("set id %d (max %d): %w", id, maxID, ErrBadID)
	}
	k.t.Lock()
	*field = id
	k.t.Unlock()
	return nil
}
