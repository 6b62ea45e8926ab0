package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowvault/flowvault-backend/internal/executor/capability"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

// CapabilityHandler exposes the session capability lifecycle.
type CapabilityHandler struct {
	logger       logging.Logger
	capabilities *capability.Service
}

func NewCapabilityHandler(logger logging.Logger, capabilities *capability.Service) *CapabilityHandler {
	return &CapabilityHandler{
		logger:       logger,
		capabilities: capabilities,
	}
}

type createCapabilityRequest struct {
	OwnerID         string            `json:"owner_id" binding:"required"`
	Label           string            `json:"label"`
	Permissions     types.Permissions `json:"permissions" binding:"required"`
	DurationSeconds int64             `json:"duration_seconds" binding:"required"`
}

// Create issues a new session capability. Only the public identity is
// returned; the signing secret never leaves the custodian.
func (h *CapabilityHandler) Create(c *gin.Context) {
	var req createCapabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.capabilities.Create(req.OwnerID, req.Label, req.Permissions, req.DurationSeconds)
	if err != nil {
		h.logger.Errorf("Failed to create capability: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Get returns one capability record. Expired capabilities read as absent.
func (h *CapabilityHandler) Get(c *gin.Context) {
	record, err := h.capabilities.Get(c.Param("address"))
	if err != nil {
		if errors.Is(err, types.ErrCapabilityNotFound) || errors.Is(err, types.ErrCapabilityExpired) {
			c.JSON(http.StatusNotFound, gin.H{"error": "capability not found"})
			return
		}
		h.logger.Errorf("Failed to read capability: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, record)
}

type preflightRequest struct {
	TargetAddress string        `json:"target_address" binding:"required"`
	NativeValue   *types.BigInt `json:"native_value" binding:"required"`
}

// Preflight dry-runs the permission check for a prospective spend.
func (h *CapabilityHandler) Preflight(c *gin.Context) {
	var req preflightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.capabilities.Preflight(c.Param("address"), req.TargetAddress, req.NativeValue); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"allowed": false,
			"reason":  types.DenialReason(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"allowed": true})
}

type revokeRequest struct {
	OwnerID string `json:"owner_id" binding:"required"`
}

// Revoke deletes a capability and cascades to its strategies and history.
func (h *CapabilityHandler) Revoke(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.capabilities.Revoke(c.Param("address"), req.OwnerID); err != nil {
		switch {
		case errors.Is(err, capability.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "caller does not own this capability"})
		case errors.Is(err, types.ErrCapabilityNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "capability not found"})
		default:
			h.logger.Errorf("Failed to revoke capability: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": true})
}
