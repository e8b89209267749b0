package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/sahelpay/sahelpay/internal/middleware"
)

// policyHandler administers the versioned platform/fee/commission configuration.
type policyHandler struct {
	policyService portssvc.PolicySvcFacade
}

func newPolicyHandler(policyService portssvc.PolicySvcFacade) *policyHandler {
	return &policyHandler{policyService: policyService}
}

func registerPolicyRoutes(rg *gin.RouterGroup, policyService portssvc.PolicySvcFacade) {
	h := newPolicyHandler(policyService)
	policy := rg.Group("/policy")
	policy.GET("/platform", h.getPlatformConfig)
	policy.PUT("/platform", h.updatePlatformConfig)
	policy.PUT("/fees", h.updateFeeConfig)
	policy.PUT("/commissions", h.updateCommissionConfig)
}

// getPlatformConfig godoc
// @Summary Get the current platform configuration
// @Tags policy
// @Produce  json
// @Success 200 {object} dto.PlatformConfigResponse
// @Failure 403 {object} map[string]string "Admin only"
// @Router /policy/platform [get]
func (h *policyHandler) getPlatformConfig(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	result, err := h.policyService.GetPlatformConfig(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// updatePlatformConfig godoc
// @Summary Write a new platform configuration version
// @Tags policy
// @Accept  json
// @Produce  json
// @Param   config body dto.UpdatePlatformConfigRequest true "Configuration"
// @Success 200 {object} dto.PlatformConfigResponse
// @Failure 400 {object} map[string]string "Invalid configuration"
// @Failure 403 {object} map[string]string "Admin only"
// @Router /policy/platform [put]
func (h *policyHandler) updatePlatformConfig(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdatePlatformConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for updatePlatformConfig", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.policyService.UpdatePlatformConfig(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// updateFeeConfig godoc
// @Summary Write a new fee configuration version for a transaction type
// @Tags policy
// @Accept  json
// @Param   config body dto.UpdateFeeConfigRequest true "Configuration"
// @Success 204
// @Failure 400 {object} map[string]string "Invalid configuration"
// @Failure 403 {object} map[string]string "Admin only"
// @Router /policy/fees [put]
func (h *policyHandler) updateFeeConfig(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdateFeeConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for updateFeeConfig", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.policyService.UpdateFeeConfig(c.Request.Context(), actor, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// updateCommissionConfig godoc
// @Summary Write a new commission configuration version for a transaction type
// @Tags policy
// @Accept  json
// @Param   config body dto.UpdateCommissionConfigRequest true "Configuration"
// @Success 204
// @Failure 400 {object} map[string]string "Invalid configuration"
// @Failure 403 {object} map[string]string "Admin only or commission exceeds fee"
// @Router /policy/commissions [put]
func (h *policyHandler) updateCommissionConfig(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdateCommissionConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for updateCommissionConfig", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.policyService.UpdateCommissionConfig(c.Request.Context(), actor, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
