package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowvault/flowvault-backend/internal/executor/scheduler"
	"github.com/flowvault/flowvault-backend/pkg/logging"
)

// ExecutorHandler exposes scheduler statistics and manual controls.
type ExecutorHandler struct {
	logger    logging.Logger
	scheduler *scheduler.Scheduler
}

func NewExecutorHandler(logger logging.Logger, scheduler *scheduler.Scheduler) *ExecutorHandler {
	return &ExecutorHandler{
		logger:    logger,
		scheduler: scheduler,
	}
}

// GetStats returns current scheduler statistics
func (h *ExecutorHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      h.scheduler.Stats(),
		"timestamp": time.Now().UTC(),
	})
}

// ForceTick queues every currently due strategy outside the cron cadence.
func (h *ExecutorHandler) ForceTick(c *gin.Context) {
	h.logger.Info("Forced scheduler tick requested")
	h.scheduler.Tick()
	c.JSON(http.StatusAccepted, gin.H{"status": "tick queued"})
}
