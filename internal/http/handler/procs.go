package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/edirooss/pdxkernel/internal/http/middleware"
	"github.com/edirooss/pdxkernel/internal/kernel"
	"github.com/edirooss/pdxkernel/pkg/jsonx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProcsHandler exposes process control over HTTP.
//
// Supported operations:
//   - GET  /procs                  → Snapshot of active processes
//   - GET  /procs/{pid}/priority   → Read a priority
//   - PUT  /procs/{pid}/priority   → Change a priority
//   - POST /procs/{pid}/kill       → Mark a process killed
//   - GET  /procs/{pid}/output     → Recent output printed by a process
type ProcsHandler struct {
	log *zap.Logger
	k   *kernel.Kernel
}

// NewProcsHandler constructs a ProcsHandler instance.
func NewProcsHandler(log *zap.Logger, k *kernel.Kernel) *ProcsHandler {
	return &ProcsHandler{log: log.Named("procs"), k: k}
}

// GetProcs handles GET /procs?max=N.
//
// max defaults to the table size. Adds `X-Total-Count` header.
//
// Status Codes:
//   - 200 OK  → JSON array of processes
//   - 400 Bad Request → max not a number or larger than the table
func (h *ProcsHandler) GetProcs(c *gin.Context) {
	limit := h.k.NProc()
	if s := c.Query("max"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid max"})
			return
		}
		limit = n
	}

	procs, err := h.k.Snapshot(limit)
	if err != nil {
		c.Error(err)
		c.JSON(statusOf(err), gin.H{"message": err.Error()})
		return
	}

	c.Header("X-Total-Count", strconv.Itoa(len(procs)))
	c.JSON(http.StatusOK, procs)
}

type priorityBody struct {
	Priority jsonx.Field[int] `json:"priority"`
}

// GetPriority handles GET /procs/{pid}/priority.
func (h *ProcsHandler) GetPriority(c *gin.Context) {
	pid := middleware.PID(c)
	prio, err := h.k.GetPriority(pid)
	if err != nil {
		c.Error(err)
		c.JSON(statusOf(err), gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pid": pid, "priority": prio})
}

// SetPriority handles PUT /procs/{pid}/priority with body {"priority": n}.
//
// Status Codes:
//   - 204 No Content
//   - 400 Bad Request → malformed body or priority out of range
//   - 404 Not Found   → no live process with that pid
func (h *ProcsHandler) SetPriority(c *gin.Context) {
	pid := middleware.PID(c)

	var body priorityBody
	if err := jsonx.DecodeStrict(c.Request.Body, &body); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if !body.Priority.Present() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "priority is required"})
		return
	}
	prio := *body.Priority.Value()

	if err := h.k.SetPriority(pid, prio); err != nil {
		c.Error(err)
		c.JSON(statusOf(err), gin.H{"message": err.Error()})
		return
	}

	middleware.Logger(c).Info("priority changed", zap.Int("pid", pid), zap.Int("priority", prio))
	c.Status(http.StatusNoContent)
}

// Kill handles POST /procs/{pid}/kill.
func (h *ProcsHandler) Kill(c *gin.Context) {
	pid := middleware.PID(c)
	if err := h.k.Kill(pid); err != nil {
		c.Error(err)
		c.JSON(statusOf(err), gin.H{"message": err.Error()})
		return
	}

	middleware.Logger(c).Info("process killed", zap.Int("pid", pid))
	c.Status(http.StatusAccepted)
}

// GetOutput handles GET /procs/{pid}/output?lines=N, newest line first.
// Output outlives the process, so reaped pids still answer.
func (h *ProcsHandler) GetOutput(c *gin.Context) {
	n, ok := queryLines(c)
	if !ok {
		return
	}

	pid := middleware.PID(c)
	lines, found := h.k.Console().ProcOutput(pid, n)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "no output recorded for pid"})
		return
	}
	c.JSON(http.StatusOK, lines)
}

// statusOf maps kernel errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, kernel.ErrNoProc):
		return http.StatusNotFound
	case errors.Is(err, kernel.ErrBadPriority), errors.Is(err, kernel.ErrSnapshotTooLarge):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

const defaultLines = 100

// queryLines parses ?lines=N. It writes a 400 and returns false when N is
// not a positive number.
func queryLines(c *gin.Context) (int, bool) {
	s := c.Query("lines")
	if s == "" {
		return defaultLines, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid lines"})
		return 0, false
	}
	return n, true
}
