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

// paymentHandler handles HTTP requests for terminal-initiated card payments.
type paymentHandler struct {
	paymentService portssvc.PaymentSvcFacade
	metrics        *metrics.Metrics
}

func newPaymentHandler(paymentService portssvc.PaymentSvcFacade, m *metrics.Metrics) *paymentHandler {
	return &paymentHandler{paymentService: paymentService, metrics: m}
}

func registerPaymentRoutes(rg *gin.RouterGroup, paymentService portssvc.PaymentSvcFacade, m *metrics.Metrics) {
	h := newPaymentHandler(paymentService, m)
	rg.POST("/payments/card", h.payByCard)
}

// payByCard godoc
// @Summary Execute a card payment
// @Description Debits the card holder and credits the terminal's merchant, charging the configured fee
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Param   payment body dto.PayByCardCommand true "Payment"
// @Success 200 {object} dto.MovementResult
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "Idempotency conflict"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Router /payments/card [post]
func (h *paymentHandler) payByCard(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	var cmd dto.PayByCardCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		logger.Warn("Failed to bind JSON for payByCard", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	cmd.IdempotencyKey = key

	result, err := h.paymentService.PayByCard(c.Request.Context(), actor, cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.ObserveMovement(result.Type)
	c.JSON(http.StatusOK, result)
}
