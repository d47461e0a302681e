package clock

import (
	"sync"
	"sync/atomic"
)

// Clock is the global tick counter of the kernel.
//
// The counter itself is read lock-free. The embedded mutex plays the role
// of the tick lock: a process sleeping for a number of ticks holds it while
// checking the counter and hands it to the sleep primitive, and Tick holds it
// while waking sleepers, so a wake-up between the check and the sleep cannot
// be missed.
//
// Sleepers register their deadline with Arm; Tick only issues a wake-up once
// the earliest deadline is due instead of on every tick.
type Clock struct {
	ticks atomic.Uint64

	mu     sync.Mutex // tick lock; guards alarms
	alarms *alarms
}

// New returns a clock at tick zero.
func New() *Clock {
	return &Clock{alarms: newAlarms()}
}

// Lock acquires the tick lock.
func (c *Clock) Lock() { c.mu.Lock() }

// Unlock releases the tick lock.
func (c *Clock) Unlock() { c.mu.Unlock() }

// Now returns the current tick.
func (c *Clock) Now() uint64 { return c.ticks.Load() }

// Arm records that pid wants to be woken at tick when.
// Caller must hold the tick lock.
func (c *Clock) Arm(pid int, when uint64) {
	c.alarms.arm(pid, when)
}

// Disarm drops any pending deadline for pid.
// Caller must hold the tick lock.
func (c *Clock) Disarm(pid int) {
	c.alarms.disarm(pid)
}

// Pending returns the number of armed deadlines.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alarms.len()
}

// Tick advances the counter by one and, if any deadline is now due, calls
// wake with the tick lock held. It returns the new tick.
func (c *Clock) Tick(wake func()) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.ticks.Add(1)
	if c.alarms.expire(now) > 0 && wake != nil {
		wake()
	}
	return now
}
