package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/edirooss/pdxkernel/internal/infrastructure/snapstore"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SnapshotReader reads archived process table snapshots.
type SnapshotReader interface {
	Recent(ctx context.Context, n int64) ([]snapstore.Record, error)
	Len(ctx context.Context) (int64, error)
}

// SnapshotsHandler serves the snapshot archive.
type SnapshotsHandler struct {
	log   *zap.Logger
	store SnapshotReader
}

// NewSnapshotsHandler constructs a SnapshotsHandler instance.
func NewSnapshotsHandler(log *zap.Logger, store SnapshotReader) *SnapshotsHandler {
	return &SnapshotsHandler{log: log.Named("snapshots"), store: store}
}

// GetSnapshots handles GET /snapshots?n=N, newest first. Adds
// `X-Total-Count` header with the archive length.
func (h *SnapshotsHandler) GetSnapshots(c *gin.Context) {
	n := int64(10)
	if s := c.Query("n"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid n"})
			return
		}
		n = v
	}

	ctx := c.Request.Context()
	recs, err := h.store.Recent(ctx, n)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "snapshot store unavailable"})
		return
	}
	total, err := h.store.Len(ctx)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "snapshot store unavailable"})
		return
	}

	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, recs)
}
