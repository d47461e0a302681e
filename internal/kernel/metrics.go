package kernel

import (
	"fmt"
	"io"

	vm "github.com/VictoriaMetrics/metrics"
)

// kmetrics are the scheduler counters exported on /metrics. Each kernel
// owns its own set so several kernels can coexist in one process.
type kmetrics struct {
	set *vm.Set

	forks         *vm.Counter
	exits         *vm.Counter
	reaps         *vm.Counter
	kills         *vm.Counter
	switches      *vm.Counter
	promotions    *vm.Counter
	demotions     *vm.Counter
	allocFailures *vm.Counter
}

func newMetrics(k *Kernel) *kmetrics {
	set := vm.NewSet()
	m := &kmetrics{
		set:           set,
		forks:         set.NewCounter("pdxkernel_forks_total"),
		exits:         set.NewCounter("pdxkernel_exits_total"),
		reaps:         set.NewCounter("pdxkernel_reaps_total"),
		kills:         set.NewCounter("pdxkernel_kills_total"),
		switches:      set.NewCounter("pdxkernel_context_switches_total"),
		promotions:    set.NewCounter("pdxkernel_promotions_total"),
		demotions:     set.NewCounter("pdxkernel_demotions_total"),
		allocFailures: set.NewCounter("pdxkernel_alloc_failures_total"),
	}

	for s := Unused; s < numStates; s++ {
		s := s
		set.NewGauge(fmt.Sprintf(`pdxkernel_procs{state=%q}`, s.String()), func() float64 {
			return float64(k.countState(s))
		})
	}
	set.NewGauge("pdxkernel_ticks", func() float64 {
		return float64(k.clock.Now())
	})
	set.NewGauge("pdxkernel_kstacks_in_use", func() float64 {
		return float64(k.stacks.Current())
	})
	set.NewGauge("pdxkernel_kstacks_capacity", func() float64 {
		return float64(k.stacks.Capacity())
	})
	return m
}

// WriteMetrics writes the kernel metrics in Prometheus text format.
func (k *Kernel) WriteMetrics(w io.Writer) {
	k.metrics.set.WritePrometheus(w)
}

func (k *Kernel) countState(s State) int {
	k.t.Lock()
	defer k.t.Unlock()
	if s == Runnable {
		n := 0
		for i := range k.t.ready {
			n += k.t.length(&k.t.ready[i])
		}
		return n
	}
	return k.t.length(&k.t.lists[s])
}
