package kernel

import (
	"fmt"
	"time"

	"github.com/edirooss/pdxkernel/internal/infrastructure/console"
)

// Options are the fixed kernel parameters.
type Options struct {
	NProc          int    // process table capacity
	NCPU           int    // simulated processors
	MaxPriority    int    // highest priority level; levels are 0..MaxPriority
	DefaultBudget  int    // ticks a process may run before demotion
	TicksToPromote uint64 // promotion sweep interval
	KStacks        int    // kernel stacks available; 0 means NProc
	PIDMax         int    // pids wrap after this value; 0 means 32768
	Debug          bool   // run the list consistency check on dumps and every scheduling round
}

// DefaultOptions returns the parameters used when none are configured.
func DefaultOptions() Options {
	return Options{
		NProc:          64,
		NCPU:           2,
		MaxPriority:    6,
		DefaultBudget:  300,
		TicksToPromote: 3000,
		PIDMax:         32768,
	}
}

func (o *Options) validate() error {
	switch {
	case o.NProc < 1:
		return fmt.Errorf("nproc must be positive, got %d", o.NProc)
	case o.NCPU < 1:
		return fmt.Errorf("ncpu must be positive, got %d", o.NCPU)
	case o.MaxPriority < 0:
		return fmt.Errorf("max priority must not be negative, got %d", o.MaxPriority)
	case o.DefaultBudget < 1:
		return fmt.Errorf("default budget must be positive, got %d", o.DefaultBudget)
	case o.TicksToPromote < 1:
		return fmt.Errorf("promotion interval must be positive, got %d", o.TicksToPromote)
	case o.KStacks < 0:
		return fmt.Errorf("kstacks must not be negative, got %d", o.KStacks)
	}
	if o.KStacks == 0 {
		o.KStacks = o.NProc
	}
	if o.PIDMax == 0 {
		o.PIDMax = 32768
	}
	if o.PIDMax < o.NProc {
		return fmt.Errorf("pid max %d is smaller than the table (%d)", o.PIDMax, o.NProc)
	}
	return nil
}

// Option customizes a Kernel.
type Option func(k *Kernel)

// WithVM replaces the default bookkeeping-only VM subsystem.
func WithVM(vm VM) Option {
	return func(k *Kernel) {
		k.vm = vm
	}
}

// WithConsole sets the console dump commands and user programs print to.
func WithConsole(c *console.Console) Option {
	return func(k *Kernel) {
		k.console = c
	}
}

// WithTickInterval makes Run drive the clock from a wall-clock ticker.
// Without it ticks only advance through Tick.
func WithTickInterval(d time.Duration) Option {
	return func(k *Kernel) {
		k.tickEvery = d
	}
}

// WithBootID overrides the generated boot id.
func WithBootID(id string) Option {
	return func(k *Kernel) {
		k.bootID = id
	}
}
