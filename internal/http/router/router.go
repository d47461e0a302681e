package router

import (
	"net/http"
	"time"

	"github.com/edirooss/pdxkernel/internal/http/handler"
	mw "github.com/edirooss/pdxkernel/internal/http/middleware"
	"github.com/edirooss/pdxkernel/internal/kernel"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options configures the debug server router.
type Options struct {
	Dev bool

	// Snapshots serves /api/snapshots when set.
	Snapshots handler.SnapshotReader

	// MaxConcurrent caps in-flight requests. Zero means 16.
	MaxConcurrent int
}

// New builds the debug server's gin engine.
func New(log *zap.Logger, k *kernel.Kernel, opts Options) *gin.Engine {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 16
	}

	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer()
	r := gin.New()

	// Apply Gin middlewares
	{
		r.Use(mw.Recovery())     // Recovery first (outermost)
		r.Use(mw.RequestID(log)) // early in the chain so the request logger is available everywhere

		if opts.Dev {
			r.Use(cors.New(cors.Config{
				AllowOrigins:  []string{"http://localhost:5173", "http://localhost:3000", "http://127.0.0.1:3000"},
				AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
				AllowHeaders:  []string{"X-Request-ID", "Content-Type"},
				ExposeHeaders: []string{"X-Request-ID", "X-Total-Count"},
				MaxAge:        12 * time.Hour,
			}))
		} else {
			r.SetTrustedProxies([]string{"127.0.0.1"})
			r.Use(secure.New(secure.Config{
				FrameDeny:          true,
				ContentTypeNosniff: true,
				SSLProxyHeaders: map[string]string{
					"X-Forwarded-Proto": "https",
				},
			}))
		}

		r.Use(mw.AccessLog())
		r.Use(mw.LimitBody(1 << 20))
	}

	// Register route handlers
	{
		r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong", "boot_id": k.BootID()}) })

		api := r.Group("/api", mw.RequireKernelUp(k), mw.LimitConcurrentRequests(opts.MaxConcurrent))

		{
			procs := handler.NewProcsHandler(log, k)
			requireValidPID := mw.RequireValidPID()

			api.GET("/procs", procs.GetProcs)
			api.GET("/procs/:pid/priority", requireValidPID, procs.GetPriority)
			api.PUT("/procs/:pid/priority", requireValidPID, procs.SetPriority)
			api.POST("/procs/:pid/kill", requireValidPID, procs.Kill)
			api.GET("/procs/:pid/output", requireValidPID, procs.GetOutput)
		}

		{
			debug := handler.NewDebugHandler(log, k)

			api.GET("/lists/stats", debug.GetStats)
			api.GET("/lists/stats.txt", debug.GetStatsText)
			api.GET("/lists/:state", debug.GetList)
			api.GET("/procdump", debug.GetProcDump)
			api.GET("/check", debug.Check)
			api.GET("/console", debug.GetConsole)

			r.GET("/metrics", debug.GetMetrics)
		}

		if opts.Snapshots != nil {
			snaps := handler.NewSnapshotsHandler(log, opts.Snapshots)
			api.GET("/snapshots", snaps.GetSnapshots)
		}
	}

	return r
}
