package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/edirooss/pdxkernel/internal/kernel"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// DebugHandler serves the console debug commands over HTTP. Text dumps
// are returned as text/plain and also printed to the kernel console, the
// same as pressing the control key on a real console would.
type DebugHandler struct {
	log *zap.Logger
	k   *kernel.Kernel
}

// NewDebugHandler constructs a DebugHandler instance.
func NewDebugHandler(log *zap.Logger, k *kernel.Kernel) *DebugHandler {
	return &DebugHandler{log: log.Named("debug"), k: k}
}

// GetList handles GET /lists/{state}.
func (h *DebugHandler) GetList(c *gin.Context) {
	s, err := kernel.ParseState(c.Param("state"))
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := h.k.PrintList(&buf, s); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	h.text(c, buf.Bytes())
}

// GetStats handles GET /lists/stats.
func (h *DebugHandler) GetStats(c *gin.Context) {
	st := h.k.Stats()
	if !st.Consistent() {
		h.log.Warn("process lists inconsistent",
			zap.Int("total", st.Total), zap.Int("nproc", st.NProc), zap.Strings("violations", st.Violations))
	}
	c.JSON(http.StatusOK, st)
}

// GetStatsText handles GET /lists/stats.txt.
func (h *DebugHandler) GetStatsText(c *gin.Context) {
	var buf bytes.Buffer
	h.k.PrintListStats(&buf)
	h.text(c, buf.Bytes())
}

// GetProcDump handles GET /procdump.
func (h *DebugHandler) GetProcDump(c *gin.Context) {
	var buf bytes.Buffer
	h.k.ProcDump(&buf)
	h.text(c, buf.Bytes())
}

// Check handles GET /check.
//
// Status Codes:
//   - 200 OK       → lists consistent
//   - 409 Conflict → JSON array of violations
func (h *DebugHandler) Check(c *gin.Context) {
	if err := h.k.Check(); err != nil {
		c.Error(err)
		c.JSON(http.StatusConflict, gin.H{"message": "process lists inconsistent", "errors": splitErrors(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// GetConsole handles GET /console?lines=N, newest line first.
func (h *DebugHandler) GetConsole(c *gin.Context) {
	n, ok := queryLines(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.k.Console().Read(n))
}

// GetMetrics handles GET /metrics in Prometheus text format.
func (h *DebugHandler) GetMetrics(c *gin.Context) {
	c.Header("Content-Type", "text/plain; version=0.0.4")
	c.Status(http.StatusOK)
	h.k.WriteMetrics(c.Writer)
}

func (h *DebugHandler) text(c *gin.Context, b []byte) {
	_, _ = h.k.Console().Write(b)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", b)
}

func splitErrors(err error) []string {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		out = append(out, e.Error())
	}
	return out
}
