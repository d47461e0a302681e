package console

import "sync"

// Lines is the fixed capacity of a line buffer.
const Lines = 500

// lineBuffer is a thread-safe circular buffer for console lines with O(1) append and O(N) read
type lineBuffer struct {
	entries [Lines]string // Fixed-size circular buffer (no heap allocations)
	head    int           // Next write position (0-499)
	size    int           // Current number of entries (0-500)
	full    bool          // Whether buffer has wrapped around
	mu      sync.RWMutex  // Protects all fields
}

// Append adds a line (overwrites oldest if full)
//
// Complexity: O(1) time, O(1) space
func (b *lineBuffer) Append(entry string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	const capN = len(b.entries)

	b.entries[b.head] = entry
	b.head = (b.head + 1) % capN

	if b.full {
		// Size stays at capN, we're overwriting
		return
	}
	b.size++
	if b.size == capN {
		b.full = true
	}
}

// Read returns last N entries (newest → oldest)
// Returns a NEW slice (caller owns memory)
//
// Semantics:
//   - If lines <= 0: returns up to 500 lines (whatever is available), newest → oldest
//   - If lines > 500: clamped to 500
func (b *lineBuffer) Read(lines int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	const capN = len(b.entries)
	if b.size == 0 {
		return nil
	}

	if lines <= 0 || lines > capN {
		lines = capN
	}

	n := b.size
	if n > lines {
		n = lines
	}

	result := make([]string, n)

	var newest int
	if b.full {
		// head points to the oldest (next overwrite); newest is one behind head
		newest = (b.head - 1 + capN) % capN
	} else {
		newest = b.size - 1
	}

	for i := 0; i < n; i++ {
		idx := (newest - i + capN) % capN
		result[i] = b.entries[idx]
	}

	return result
}
