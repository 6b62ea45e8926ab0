package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTraceTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TraceMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		traceID, _ := c.Get(TraceIDKey)
		c.JSON(http.StatusOK, gin.H{"trace_id": traceID})
	})
	return router
}

func TestTraceMiddlewareGeneratesTraceID(t *testing.T) {
	router := newTraceTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
}

func TestTraceMiddlewarePropagatesIncomingTraceID(t *testing.T) {
	router := newTraceTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceIDHeader, "upstream-trace-id")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "upstream-trace-id", w.Header().Get(TraceIDHeader))
	assert.Contains(t, w.Body.String(), "upstream-trace-id")
}
