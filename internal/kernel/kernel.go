package kernel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edirooss/pdxkernel/internal/infrastructure/clock"
	"github.com/edirooss/pdxkernel/internal/infrastructure/console"
	"github.com/edirooss/pdxkernel/internal/infrastructure/kstack"
	"github.com/edirooss/pdxkernel/internal/infrastructure/pidalloc"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Kernel is the process-lifecycle and scheduling core.
//
// Concurrency model:
//   - One table lock (k.t) serializes every read and write of state tags,
//     list membership, parent links, priority and budget.
//   - Each CPU runs the scheduler loop on its own goroutine. Each process
//     runs on its own goroutine and only while a CPU has switched to it.
//   - The table lock is held across a context switch in both directions:
//     the scheduler switches to a process with the lock held and the
//     process releases it (forkret, or on return from sched); a process
//     re-acquires it before switching back.
//
// Blocking:
//   - A process blocks only in sleep, with the table lock held from the
//     state change until the switch. Wakeup runs under the same lock, so
//     no wake-up is lost between a check and the sleep.
//
// Failure model:
//   - Recoverable failures are returned as errors.
//   - Corruption of the lists or the state machine halts the kernel: it
//     is logged, every processor is stopped and a *Panic is raised.
type Kernel struct {
	log    *zap.Logger
	opts   Options
	bootID string

	t        *table
	cpus     []*CPU
	initproc *Proc

	pids    *pidalloc.Allocator
	stacks  *kstack.Pool
	clock   *clock.Clock
	console *console.Console
	vm      VM
	metrics *kmetrics

	// run switches the scheduler on c into p and returns once p has
	// handed the CPU back. Table lock held throughout.
	run func(c *CPU, p *Proc)

	tickEvery time.Duration

	down     chan struct{}
	downOnce sync.Once
	halt     atomic.Pointer[Panic] // first halt; nil after a plain Shutdown
}

// New builds a kernel with an initialized process table: every slot is
// unused and on the unused list.
func New(log *zap.Logger, opts Options, options ...Option) (*Kernel, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid kernel options: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	k := &Kernel{
		opts:   opts,
		bootID: uuid.NewString(),
		t:      newTable(opts.NProc, opts.MaxPriority),
		pids:   pidalloc.New(opts.PIDMax),
		stacks: kstack.NewPool(opts.KStacks),
		clock:  clock.New(),
		vm:     memVM{},
		down:   make(chan struct{}),
	}
	k.t.promoteAt = opts.TicksToPromote
	for _, o := range options {
		o(k)
	}
	k.log = log.Named("kernel").With(zap.String("boot_id", k.bootID))
	if k.console == nil {
		k.console = console.New(log)
	}
	k.metrics = newMetrics(k)
	k.run = k.switchTo

	k.cpus = make([]*CPU, opts.NCPU)
	for i := range k.cpus {
		k.cpus[i] = newCPU(i)
	}

	k.log.Info("process table initialized",
		zap.Int("nproc", opts.NProc),
		zap.Int("ncpu", opts.NCPU),
		zap.Int("max_priority", opts.MaxPriority),
		zap.Int("default_budget", opts.DefaultBudget),
		zap.Uint64("ticks_to_promote", opts.TicksToPromote))
	return k, nil
}

// UserInit creates the root process, which adopts orphans and must never
// exit. It runs entry at the maximum priority.
func (k *Kernel) UserInit(entry Program) error {
	if k.initproc != nil {
		return fmt.Errorf("userinit: root process already exists")
	}

	p, err := k.allocate()
	if err != nil {
		return fmt.Errorf("userinit: %w", err)
	}
	as, err := k.vm.New()
	if err != nil {
		k.freeEmbryo(p)
		return fmt.Errorf("userinit: address space: %w", err)
	}

	k.t.Lock()
	k.initproc = p
	p.as = as
	p.size = pageSize
	p.tf = TrapFrame{Entry: entry}
	p.name = "initcode"
	p.priority = k.opts.MaxPriority
	k.t.promoteAt = k.clock.Now() + k.opts.TicksToPromote
	k.transition(p, Embryo, Runnable, "userinit")
	k.t.Unlock()

	k.log.Info("root process created", zap.Int("pid", p.pid))
	k.kickAll()
	return nil
}

// Run starts one scheduler loop per CPU (and the wall-clock ticker when
// configured) and blocks until ctx is cancelled or the kernel stops. It
// returns the *Panic when the kernel halted, nil otherwise.
func (k *Kernel) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, c := range k.cpus {
		c := c
		g.Go(func() error {
			return k.scheduler(gctx, c)
		})
	}

	if k.tickEvery > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(k.tickEvery)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-k.down:
					return nil
				case <-ticker.C:
					k.Tick()
				}
			}
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
			k.Shutdown()
			return nil
		case <-k.down:
			return k.Halted()
		}
	})

	k.log.Info("scheduler started", zap.Int("ncpu", len(k.cpus)))
	err := g.Wait()
	k.log.Info("scheduler stopped")
	return err
}

// Shutdown stops the kernel. Parked processes exit; CPUs leave their loops
// at the next scheduling round.
func (k *Kernel) Shutdown() {
	k.downOnce.Do(func() {
		close(k.down)
	})
	k.kickAll()
}

func (k *Kernel) stopping() bool {
	select {
	case <-k.down:
		return true
	default:
		return false
	}
}

// Tick is the timer interrupt: it advances the clock, wakes timed sleepers
// that are due, and asks every running process to yield at its next trap.
func (k *Kernel) Tick() uint64 {
	now := k.clock.Tick(func() {
		k.Wakeup(k.clock)
	})
	for _, c := range k.cpus {
		c.resched.Set()
	}
	k.kickAll()
	return now
}

// Ticks returns the current tick.
func (k *Kernel) Ticks() uint64 { return k.clock.Now() }

// BootID identifies this kernel instance.
func (k *Kernel) BootID() string { return k.bootID }

// NProc returns the process table capacity.
func (k *Kernel) NProc() int { return len(k.t.procs) }

// MaxPriority returns the highest priority level.
func (k *Kernel) MaxPriority() int { return k.opts.MaxPriority }

// Console returns the kernel console.
func (k *Kernel) Console() *console.Console { return k.console }

func (k *Kernel) kickAll() {
	for _, c := range k.cpus {
		c.wake()
	}
}

// panic halts the kernel. It never returns.
func (k *Kernel) panic(format string, args ...any) {
	p := &Panic{Reason: fmt.Sprintf(format, args...)}
	k.log.Error("kernel panic", zap.String("reason", p.Reason))
	k.halt.CompareAndSwap(nil, p)
	k.Shutdown()
	panic(p)
}

// Halted returns the *Panic that stopped the kernel, or nil if it has not
// halted.
func (k *Kernel) Halted() error {
	if p := k.halt.Load(); p != nil {
		return p
	}
	return nil
}
