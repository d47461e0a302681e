package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const pidKey = "pid"

// RequireValidPID ensures the path param ":pid" is an int > 0 and stores
// it for PID.
func RequireValidPID() gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, err := strconv.Atoi(c.Param("pid"))
		if err != nil || pid <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid pid"})
			return
		}
		c.Set(pidKey, pid)
		c.Next()
	}
}

// PID returns the pid validated by RequireValidPID.
func PID(c *gin.Context) int {
	return c.GetInt(pidKey)
}
