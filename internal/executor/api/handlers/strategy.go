package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowvault/flowvault-backend/internal/executor/history"
	"github.com/flowvault/flowvault-backend/internal/executor/strategy"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

// StrategyHandler exposes recurring strategy management and the
// per-account execution history.
type StrategyHandler struct {
	logger     logging.Logger
	strategies *strategy.Service
	history    *history.Service
}

func NewStrategyHandler(logger logging.Logger, strategies *strategy.Service, history *history.Service) *StrategyHandler {
	return &StrategyHandler{
		logger:     logger,
		strategies: strategies,
		history:    history,
	}
}

// Create registers a new recurring strategy for an account.
func (h *StrategyHandler) Create(c *gin.Context) {
	var req types.CreateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.strategies.Create(req)
	if err != nil {
		if errors.Is(err, types.ErrCapabilityNotFound) || errors.Is(err, types.ErrCapabilityExpired) {
			c.JSON(http.StatusConflict, gin.H{"error": "no live capability for this account"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, record)
}

// List returns every strategy owned by an account.
func (h *StrategyHandler) List(c *gin.Context) {
	records, err := h.strategies.ListByAccount(c.Param("address"))
	if err != nil {
		h.logger.Errorf("Failed to list strategies: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"strategies": records})
}

// Get returns one strategy record.
func (h *StrategyHandler) Get(c *gin.Context) {
	record, err := h.strategies.Get(c.Param("address"), c.Param("id"))
	if err != nil {
		if errors.Is(err, types.ErrStrategyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
			return
		}
		h.logger.Errorf("Failed to read strategy: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, record)
}

type setStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetStatus pauses or resumes a strategy.
func (h *StrategyHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.strategies.SetActive(c.Param("address"), c.Param("id"), *req.Active); err != nil {
		if errors.Is(err, types.ErrStrategyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
			return
		}
		h.logger.Errorf("Failed to update strategy status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"active": *req.Active})
}

// Delete removes a strategy permanently.
func (h *StrategyHandler) Delete(c *gin.Context) {
	if err := h.strategies.Delete(c.Param("address"), c.Param("id")); err != nil {
		if errors.Is(err, types.ErrStrategyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "strategy not found"})
			return
		}
		h.logger.Errorf("Failed to delete strategy: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// History returns the most recent execution records for an account.
func (h *StrategyHandler) History(c *gin.Context) {
	records, err := h.history.ListByAccount(c.Param("address"))
	if err != nil {
		h.logger.Errorf("Failed to list execution history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"executions": records})
}
