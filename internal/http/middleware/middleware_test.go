package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/edirooss/pdxkernel/internal/kernel"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestRequireValidPID(t *testing.T) {
	r := gin.New()
	r.GET("/procs/:pid", RequireValidPID(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pid": PID(c)})
	})

	tests := []struct {
		target string
		want   int
	}{
		{"/procs/7", http.StatusOK},
		{"/procs/0", http.StatusBadRequest},
		{"/procs/-3", http.StatusBadRequest},
		{"/procs/seven", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(r, tt.target).Code)
		})
	}
	assert.JSONEq(t, `{"pid":7}`, serve(r, "/procs/7").Body.String())
}

func TestRequestIDStoresLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(zap.NewNop()))
	r.GET("/", func(c *gin.Context) {
		assert.NotNil(t, Logger(c))
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := serve(r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())
	assert.Len(t, w.Body.String(), 36)
}

func TestLimitConcurrentRequests(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	r := gin.New()
	r.Use(LimitConcurrentRequests(1))
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	var wg sync.WaitGroup
	wg.Add(1)
	var slow *httptest.ResponseRecorder
	go func() {
		defer wg.Done()
		slow = serve(r, "/slow")
	}()

	<-entered
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "/fast").Code)
	close(release)
	wg.Wait()

	assert.Equal(t, http.StatusOK, slow.Code)
	assert.Equal(t, http.StatusOK, serve(r, "/fast").Code)
}

func TestRecoveryMapsKernelHalt(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/halt", func(c *gin.Context) {
		panic(&kernel.Panic{Reason: "corrupted list"})
	})
	r.GET("/bug", func(c *gin.Context) {
		panic("boom")
	})

	w := serve(r, "/halt")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"message":"kernel panic: corrupted list"}`, w.Body.String())

	assert.Equal(t, http.StatusInternalServerError, serve(r, "/bug").Code)
}

type fakeHalter struct{ err error }

func (f fakeHalter) Halted() error { return f.err }

func TestRequireKernelUp(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		body string
	}{
		{"up", nil, http.StatusOK, `{"ok":true}`},
		{"halted", &kernel.Panic{Reason: "zombie exit"}, http.StatusServiceUnavailable, `{"message":"kernel panic: zombie exit"}`},
		{"other", errors.New("down"), http.StatusServiceUnavailable, `{"message":"kernel halted"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", RequireKernelUp(fakeHalter{tt.err}), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"ok": true})
			})

			w := serve(r, "/")
			assert.Equal(t, tt.want, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}
