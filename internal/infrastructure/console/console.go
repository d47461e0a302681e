package console

import (
	"bytes"
	"io"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Console is the kernel console: an io.Writer that splits output into
// lines and keeps the most recent ones. Debug dumps and user programs
// print here.
//
// Output of each process is additionally kept in a per-pid buffer so it
// can be read back after the process has been reaped.
type Console struct {
	log *zap.Logger

	mu      sync.Mutex // guards partial
	partial []byte     // unterminated tail of the last write
	lines   lineBuffer

	procMu sync.RWMutex        // guards procs
	procs  map[int]*lineBuffer // pid → output
}

// New constructs an empty console. Completed lines are echoed to log at
// debug level.
func New(log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{
		log:   log.Named("console"),
		procs: make(map[int]*lineBuffer),
	}
}

// Write implements io.Writer. It never fails.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := append(c.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := string(data[:i])
		c.lines.Append(line)
		c.log.Debug(line)
		data = data[i+1:]
	}
	c.partial = append([]byte(nil), data...)
	return len(p), nil
}

// Read returns the last n console lines, newest first.
func (c *Console) Read(n int) []string {
	return c.lines.Read(n)
}

// Proc returns a writer that records output for pid and echoes each line
// to the console prefixed with the pid.
func (c *Console) Proc(pid int) io.Writer {
	return &procWriter{c: c, pid: pid, buf: c.procBuffer(pid)}
}

// ProcOutput returns the last n lines printed by pid, newest first.
// The second result is false if pid never printed anything.
func (c *Console) ProcOutput(pid int, n int) ([]string, bool) {
	c.procMu.RLock()
	buf, ok := c.procs[pid]
	c.procMu.RUnlock()
	if !ok {
		return nil, false
	}
	return buf.Read(n), true
}

// procBuffer returns the output buffer for a pid, creating it lazily.
func (c *Console) procBuffer(pid int) *lineBuffer {
	c.procMu.Lock()
	defer c.procMu.Unlock()

	if buf, ok := c.procs[pid]; ok {
		return buf
	}

	buf := new(lineBuffer)
	c.procs[pid] = buf
	return buf
}

type procWriter struct {
	c       *Console
	pid     int
	buf     *lineBuffer
	partial []byte
}

func (w *procWriter) Write(p []byte) (int, error) {
	data := append(w.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := string(data[:i])
		w.buf.Append(line)
		_, _ = w.c.Write([]byte("[" + strconv.Itoa(w.pid) + "] " + line + "\n"))
		data = data[i+1:]
	}
	w.partial = append([]byte(nil), data...)
	return len(p), nil
}
