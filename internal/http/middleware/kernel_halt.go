package middleware

import (
	"errors"
	"net/http"

	"github.com/edirooss/pdxkernel/internal/kernel"
	"github.com/gin-gonic/gin"
)

// Recovery is gin.Recovery that answers a kernel halt raised while serving
// the request with 503 instead of 500. The kernel has already logged the
// halt and stopped its processors; Run reports it to the binary.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if p, ok := recovered.(*kernel.Panic); ok {
			c.Error(p)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": p.Error()})
			return
		}
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// Halter reports whether the kernel has halted.
type Halter interface {
	Halted() error
}

// RequireKernelUp rejects requests with 503 once the kernel has halted:
// its lists may be corrupt and must not be walked again.
func RequireKernelUp(k Halter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := k.Halted(); err != nil {
			var p *kernel.Panic
			msg := "kernel halted"
			if errors.As(err, &p) {
				msg = p.Error()
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": msg})
			return
		}
		c.Next()
	}
}
