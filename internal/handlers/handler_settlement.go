package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/sahelpay/sahelpay/internal/middleware"
	"github.com/sahelpay/sahelpay/internal/platform/metrics"
)

// settlementHandler handles the two-phase payout and refund workflows.
type settlementHandler struct {
	payoutService portssvc.PayoutSvcFacade
	refundService portssvc.RefundSvcFacade
	metrics       *metrics.Metrics
}

func newSettlementHandler(payoutService portssvc.PayoutSvcFacade, refundService portssvc.RefundSvcFacade, m *metrics.Metrics) *settlementHandler {
	return &settlementHandler{payoutService: payoutService, refundService: refundService, metrics: m}
}

func registerSettlementRoutes(rg *gin.RouterGroup, payoutService portssvc.PayoutSvcFacade, refundService portssvc.RefundSvcFacade, m *metrics.Metrics) {
	h := newSettlementHandler(payoutService, refundService, m)

	payouts := rg.Group("/payouts")
	payouts.POST("", h.requestPayout)
	payouts.POST("/:payoutID/complete", h.completePayout)
	payouts.POST("/:payoutID/fail", h.failPayout)

	refunds := rg.Group("/refunds")
	refunds.POST("", h.requestRefund)
	refunds.POST("/:refundID/complete", h.completeRefund)
	refunds.POST("/:refundID/fail", h.failRefund)
}

// requestPayout godoc
// @Summary Request a merchant payout
// @Description Stages the merchant's full balance for settlement to its bank
// @Tags payouts
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Success 200 {object} dto.PayoutResult
// @Failure 403 {object} map[string]string "No payout due or one already in flight"
// @Failure 409 {object} map[string]string "Idempotency conflict"
// @Router /payouts [post]
func (h *settlementHandler) requestPayout(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	result, err := h.payoutService.RequestPayout(c.Request.Context(), actor, dto.RequestPayoutCommand{IdempotencyKey: key})
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.ObserveMovement(string(domain.TxPayoutRequest))
	c.JSON(http.StatusOK, result)
}

// completePayout godoc
// @Summary Complete a requested payout
// @Tags payouts
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Param   payoutID path string true "Payout ID"
// @Success 200 {object} dto.PayoutResult
// @Failure 403 {object} map[string]string "Forbidden transition"
// @Failure 404 {object} map[string]string "Payout not found"
// @Router /payouts/{payoutID}/complete [post]
func (h *settlementHandler) completePayout(c *gin.Context) {
	h.finalizePayout(c, h.payoutService.CompletePayout, false)
}

// failPayout godoc
// @Summary Fail a requested payout
// @Tags payouts
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Param   payoutID path string true "Payout ID"
// @Param   failure body dto.FinalizePayoutCommand false "Failure reason"
// @Success 200 {object} dto.PayoutResult
// @Failure 403 {object} map[string]string "Forbidden transition"
// @Failure 404 {object} map[string]string "Payout not found"
// @Router /payouts/{payoutID}/fail [post]
func (h *settlementHandler) failPayout(c *gin.Context) {
	h.finalizePayout(c, h.payoutService.FailPayout, true)
}

func (h *settlementHandler) finalizePayout(c *gin.Context, finalize func(ctx context.Context, actor domain.Actor, cmd dto.FinalizePayoutCommand) (*dto.PayoutResult, error), withBody bool) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	cmd := dto.FinalizePayoutCommand{IdempotencyKey: key, PayoutID: c.Param("payoutID")}
	if withBody && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			logger.Warn("Failed to bind JSON for payout finalization", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
		cmd.IdempotencyKey = key
		cmd.PayoutID = c.Param("payoutID")
	}

	result, err := finalize(c.Request.Context(), actor, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	if result.AlreadyApplied {
		h.metrics.ObserveIdempotentReplay()
	}
	c.JSON(http.StatusOK, result)
}

// requestRefund godoc
// @Summary Request a client balance refund
// @Description Stages the client's full balance for payout back to the client
// @Tags refunds
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Success 200 {object} dto.RefundResult
// @Failure 403 {object} map[string]string "No refund due or one already in flight"
// @Failure 409 {object} map[string]string "Idempotency conflict"
// @Router /refunds [post]
func (h *settlementHandler) requestRefund(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	result, err := h.refundService.RequestRefund(c.Request.Context(), actor, dto.RequestRefundCommand{IdempotencyKey: key})
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.ObserveMovement(string(domain.TxRefundRequest))
	c.JSON(http.StatusOK, result)
}

// completeRefund godoc
// @Summary Complete a requested refund
// @Tags refunds
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Param   refundID path string true "Refund ID"
// @Success 200 {object} dto.RefundResult
// @Failure 403 {object} map[string]string "Forbidden transition"
// @Failure 404 {object} map[string]string "Refund not found"
// @Router /refunds/{refundID}/complete [post]
func (h *settlementHandler) completeRefund(c *gin.Context) {
	h.finalizeRefund(c, h.refundService.CompleteRefund, false)
}

// failRefund godoc
// @Summary Fail a requested refund
// @Tags refunds
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Param   refundID path string true "Refund ID"
// @Param   failure body dto.FinalizeRefundCommand false "Failure reason"
// @Success 200 {object} dto.RefundResult
// @Failure 403 {object} map[string]string "Forbidden transition"
// @Failure 404 {object} map[string]string "Refund not found"
// @Router /refunds/{refundID}/fail [post]
func (h *settlementHandler) failRefund(c *gin.Context) {
	h.finalizeRefund(c, h.refundService.FailRefund, true)
}

func (h *settlementHandler) finalizeRefund(c *gin.Context, finalize func(ctx context.Context, actor domain.Actor, cmd dto.FinalizeRefundCommand) (*dto.RefundResult, error), withBody bool) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	cmd := dto.FinalizeRefundCommand{IdempotencyKey: key, RefundID: c.Param("refundID")}
	if withBody && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			logger.Warn("Failed to bind JSON for refund finalization", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
		cmd.IdempotencyKey = key
		cmd.RefundID = c.Param("refundID")
	}

	result, err := finalize(c.Request.Context(), actor, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	if result.AlreadyApplied {
		h.metrics.ObserveIdempotentReplay()
	}
	c.JSON(http.StatusOK, result)
}
