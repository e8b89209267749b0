package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/sahelpay/sahelpay/internal/middleware"
	"github.com/sahelpay/sahelpay/internal/platform/metrics"
)

// transferHandler handles HTTP requests for peer transfers.
type transferHandler struct {
	transferService portssvc.TransferSvcFacade
	metrics         *metrics.Metrics
}

func newTransferHandler(transferService portssvc.TransferSvcFacade, m *metrics.Metrics) *transferHandler {
	return &transferHandler{transferService: transferService, metrics: m}
}

func registerTransferRoutes(rg *gin.RouterGroup, transferService portssvc.TransferSvcFacade, m *metrics.Metrics) {
	h := newTransferHandler(transferService, m)
	rg.POST("/transfers", h.transfer)
}

// transfer godoc
// @Summary Transfer money to a peer
// @Description Moves money from the caller to a recipient of the same kind, charging the configured fee
// @Tags transfers
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Param   transfer body dto.TransferCommand true "Transfer"
// @Success 200 {object} dto.MovementResult
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Idempotency conflict"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Router /transfers [post]
func (h *transferHandler) transfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	var cmd dto.TransferCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		logger.Warn("Failed to bind JSON for transfer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	cmd.IdempotencyKey = key

	result, err := h.transferService.Transfer(c.Request.Context(), actor, cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.ObserveMovement(result.Type)
	c.JSON(http.StatusOK, result)
}
