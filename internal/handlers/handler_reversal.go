package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/sahelpay/sahelpay/internal/platform/metrics"
)

// reversalHandler handles transaction reversals.
type reversalHandler struct {
	reversalService portssvc.ReversalSvcFacade
	metrics         *metrics.Metrics
}

func newReversalHandler(reversalService portssvc.ReversalSvcFacade, m *metrics.Metrics) *reversalHandler {
	return &reversalHandler{reversalService: reversalService, metrics: m}
}

func registerReversalRoutes(rg *gin.RouterGroup, reversalService portssvc.ReversalSvcFacade, m *metrics.Metrics) {
	h := newReversalHandler(reversalService, m)
	rg.POST("/transactions/:transactionID/reverse", h.reverse)
}

// reverse godoc
// @Summary Reverse a transaction
// @Description Appends the exact ledger inverse of the named transaction under a new linked transaction
// @Tags transactions
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.ReversalResult
// @Failure 403 {object} map[string]string "Already reversed or not reversible"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Idempotency conflict"
// @Router /transactions/{transactionID}/reverse [post]
func (h *reversalHandler) reverse(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	cmd := dto.ReverseCommand{
		IdempotencyKey:        key,
		OriginalTransactionID: c.Param("transactionID"),
	}
	result, err := h.reversalService.Reverse(c.Request.Context(), actor, cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.ObserveMovement(string(domain.TxReversal))
	c.JSON(http.StatusOK, result)
}
