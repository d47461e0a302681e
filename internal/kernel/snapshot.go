package kernel

import "fmt"

// ProcInfo is the external view of one process, as returned by getprocs.
type ProcInfo struct {
	PID           int    `json:"pid"`
	UID           int    `json:"uid"`
	GID           int    `json:"gid"`
	PPID          int    `json:"ppid"`
	Priority      int    `json:"priority"`
	ElapsedTicks  uint64 `json:"elapsed_ticks"`
	CPUTotalTicks uint64 `json:"cpu_total_ticks"`
	State         string `json:"state"`
	Size          int    `json:"size"`
	Name          string `json:"name"`
}

// Snapshot copies up to max entries for every process that is neither
// unused nor an embryo, in table order. Asking for more entries than the
// table holds is an error.
func (k *Kernel) Snapshot(max int) ([]ProcInfo, error) {
	if max < 0 || max > len(k.t.procs) {
		return nil, fmt.Errorf("snapshot of %d entries (nproc %d): %w", max, len(k.t.procs), ErrSnapshotTooLarge)
	}

	k.t.Lock()
	defer k.t.Unlock()

	now := k.clock.Now()
	out := make([]ProcInfo, 0, max)
	for i := range k.t.procs {
		if len(out) == max {
			break
		}
		p := &k.t.procs[i]
		if p.state == Unused || p.state == Embryo {
			continue
		}
		out = append(out, ProcInfo{
			PID:           p.pid,
			UID:           p.uid,
			GID:           p.gid,
			PPID:          k.ppidLocked(p),
			Priority:      p.priority,
			ElapsedTicks:  now - p.startTicks,
			CPUTotalTicks: p.cpuTicksTotal,
			State:         p.state.String(),
			Size:          p.size,
			Name:          p.name,
		})
	}
	return out, nil
}

// ppidLocked returns the parent's pid, or p's own pid for the root.
func (k *Kernel) ppidLocked(p *Proc) int {
	if p.parent == nilSlot {
		return p.pid
	}
	return k.t.procs[p.parent].pid
}
