package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sahelpay/sahelpay/internal/core/domain"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/sahelpay/sahelpay/internal/middleware"
	"github.com/sahelpay/sahelpay/internal/platform/metrics"
)

// agentOpsHandler handles the agent-side cash operations.
type agentOpsHandler struct {
	agentOpsService portssvc.AgentOpsSvcFacade
	metrics         *metrics.Metrics
}

func newAgentOpsHandler(agentOpsService portssvc.AgentOpsSvcFacade, m *metrics.Metrics) *agentOpsHandler {
	return &agentOpsHandler{agentOpsService: agentOpsService, metrics: m}
}

func registerAgentOpsRoutes(rg *gin.RouterGroup, agentOpsService portssvc.AgentOpsSvcFacade, m *metrics.Metrics) {
	h := newAgentOpsHandler(agentOpsService, m)
	agent := rg.Group("/agent")
	agent.POST("/cash-in", h.cashIn)
	agent.POST("/cards", h.enrollCard)
	agent.POST("/withdrawals", h.withdrawAtAgent)
}

// cashIn godoc
// @Summary Convert agent cash into client e-money
// @Description Credits the client's account against the agent's cash clearing position
// @Tags agent
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Param   cashIn body dto.CashInCommand true "Cash-in"
// @Success 200 {object} dto.MovementResult
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Forbidden or cash limit exceeded"
// @Failure 409 {object} map[string]string "Idempotency conflict"
// @Router /agent/cash-in [post]
func (h *agentOpsHandler) cashIn(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	var cmd dto.CashInCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		logger.Warn("Failed to bind JSON for cashIn", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	cmd.IdempotencyKey = key

	result, err := h.agentOpsService.CashIn(c.Request.Context(), actor, cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.ObserveMovement(result.Type)
	c.JSON(http.StatusOK, result)
}

// enrollCard godoc
// @Summary Enroll a card for a client
// @Description Enrolls a new card, charging the enrollment price from the agent's cash position
// @Tags agent
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Param   enrollment body dto.EnrollCardCommand true "Enrollment"
// @Success 200 {object} dto.EnrollCardResult
// @Failure 400 {object} map[string]string "Invalid request or card already enrolled"
// @Failure 403 {object} map[string]string "Forbidden or cash limit exceeded"
// @Failure 409 {object} map[string]string "Idempotency conflict"
// @Router /agent/cards [post]
func (h *agentOpsHandler) enrollCard(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	var cmd dto.EnrollCardCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		logger.Warn("Failed to bind JSON for enrollCard", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	cmd.IdempotencyKey = key

	result, err := h.agentOpsService.EnrollCard(c.Request.Context(), actor, cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.ObserveMovement(string(domain.TxCardEnrollment))
	c.JSON(http.StatusOK, result)
}

// withdrawAtAgent godoc
// @Summary Pay out merchant balance as cash at an agent
// @Description Debits the merchant and compensates the agent with a commission out of the fee
// @Tags agent
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string true "Idempotency key"
// @Param   withdrawal body dto.WithdrawAtAgentCommand true "Withdrawal"
// @Success 200 {object} dto.MovementResult
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Forbidden or cash limit exceeded"
// @Failure 409 {object} map[string]string "Idempotency conflict"
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Router /agent/withdrawals [post]
func (h *agentOpsHandler) withdrawAtAgent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	key, ok := requireIdempotencyKey(c)
	if !ok {
		return
	}

	var cmd dto.WithdrawAtAgentCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		logger.Warn("Failed to bind JSON for withdrawAtAgent", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	cmd.IdempotencyKey = key

	result, err := h.agentOpsService.WithdrawAtAgent(c.Request.Context(), actor, cmd)
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.ObserveMovement(result.Type)
	c.JSON(http.StatusOK, result)
}
