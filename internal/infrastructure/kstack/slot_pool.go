package kstack

import "sync"

// Pool hands out kernel stacks with explicit ownership.
// Each acquisition requires a unique pid. This enables accountable
// stack tracking and prevents silent leakage when a slot is reaped.
type Pool struct {
	mu         sync.Mutex
	maxCap     int
	usage      int
	acquiredBy map[int]struct{} // active ownership table
}

// NewPool initializes the pool with a given capacity.
func NewPool(max int) *Pool {
	if max < 0 {
		max = 0
	}
	return &Pool{
		maxCap:     max,
		acquiredBy: make(map[int]struct{}),
	}
}

// TryAcquire attempts a non-blocking acquire.
// On success, pid becomes the owner. A false return is a stack
// allocation failure and the caller must roll back.
func (s *Pool) TryAcquire(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, holds := s.acquiredBy[pid]; holds {
		panic("kstack: pid already holds a stack")
	}

	if s.usage >= s.maxCap {
		return false
	}

	s.usage++
	s.acquiredBy[pid] = struct{}{}
	return true
}

// Release frees the stack owned by pid.
// Releasing a pid that does not own a stack is an invariant violation.
func (s *Pool) Release(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, holds := s.acquiredBy[pid]; !holds {
		panic("kstack: release for non-owner pid")
	}

	delete(s.acquiredBy, pid)
	s.usage--
}

// Owns reports whether pid currently holds a stack.
func (s *Pool) Owns(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, holds := s.acquiredBy[pid]
	return holds
}

// Capacity returns the configured stack limit.
func (s *Pool) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxCap
}

// Current returns the number of stacks handed out.
func (s *Pool) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}
