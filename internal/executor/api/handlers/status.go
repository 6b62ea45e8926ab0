package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowvault/flowvault-backend/pkg/logging"
)

var startedAt = time.Now()

// StatusHandler handles status endpoint requests
type StatusHandler struct {
	logger logging.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(logger logging.Logger) *StatusHandler {
	return &StatusHandler{
		logger: logger,
	}
}

// Status handles status endpoint requests
func (h *StatusHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "executor",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(startedAt).String(),
	})
}
