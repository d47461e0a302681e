// Package workload holds the user programs the simulated kernel can run:
// the root process, the time and ps utilities, priority tools and the
// CPU-bound and sleeping test loads.
package workload

import (
	"fmt"
	"sort"
	"sync"

	"github.com/edirooss/pdxkernel/internal/kernel"
)

// Main is the entry point of a user program. argv[0] is the program name.
type Main func(s *kernel.Sys, argv []string)

// Registry maps program names to their entry points, like the file system
// of a real kernel would.
type Registry struct {
	mu    sync.RWMutex
	progs map[string]Main
}

// NewRegistry returns a registry preloaded with the standard programs.
func NewRegistry() *Registry {
	r := &Registry{progs: make(map[string]Main)}
	r.Register("init", r.initMain)
	r.Register("time", r.timeMain)
	r.Register("ps", psMain)
	r.Register("setpriority", setPriorityMain)
	r.Register("getpriority", getPriorityMain)
	r.Register("kill", killMain)
	r.Register("spin", spinMain)
	r.Register("sleep", sleepMain)
	r.Register("uptime", uptimeMain)
	r.Register("forktest", forkTestMain)
	r.Register("sleepfork", sleepForkMain)
	r.Register("waitdemo", waitDemoMain)
	r.Register("mlfq", r.mlfqMain)
	return r
}

// Register adds or replaces a program.
func (r *Registry) Register(name string, main Main) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progs[name] = main
}

// Names lists the registered programs in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.progs))
	for name := range r.progs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Program binds argv to its program so it can be handed to UserInit or
// Fork.
func (r *Registry) Program(argv []string) (kernel.Program, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	r.mu.RLock()
	main, ok := r.progs[argv[0]]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: program not found", argv[0])
	}
	args := append([]string(nil), argv...)
	return func(s *kernel.Sys) { main(s, args) }, nil
}

// Exec replaces the calling process with argv. It returns only if argv
// names no program.
func (r *Registry) Exec(s *kernel.Sys, argv []string) {
	prog, err := r.Program(argv)
	if err != nil {
		s.Printf("exec: %v\n", err)
		return
	}
	s.Exec(argv[0], prog)
}

// Spawn forks a child that execs argv and returns the child's pid, or -1.
func (r *Registry) Spawn(s *kernel.Sys, argv []string) int {
	if len(argv) == 0 {
		return -1
	}
	return s.Fork(func(c *kernel.Sys) {
		r.Exec(c, argv)
		c.Printf("FAILED: exec failed to execute %s\n", argv[0])
	})
}
