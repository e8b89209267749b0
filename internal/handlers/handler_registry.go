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
)

// registryHandler covers actor registration and status administration.
type registryHandler struct {
	registryService portssvc.RegistrySvcFacade
}

func newRegistryHandler(registryService portssvc.RegistrySvcFacade) *registryHandler {
	return &registryHandler{registryService: registryService}
}

func registerRegistryRoutes(rg *gin.RouterGroup, registryService portssvc.RegistrySvcFacade) {
	h := newRegistryHandler(registryService)

	clients := rg.Group("/clients")
	clients.POST("", h.createClient)
	clients.GET("/:clientID", h.getClient)
	clients.PUT("/:clientID/status", h.updateClientStatus)

	merchants := rg.Group("/merchants")
	merchants.POST("", h.createMerchant)
	merchants.GET("/:merchantID", h.getMerchant)
	merchants.PUT("/:merchantID/status", h.updateMerchantStatus)

	agents := rg.Group("/agents")
	agents.POST("", h.createAgent)
	agents.GET("/:agentID", h.getAgent)
	agents.PUT("/:agentID/status", h.updateAgentStatus)

	terminals := rg.Group("/terminals")
	terminals.POST("", h.createTerminal)
	terminals.PUT("/:terminalID/status", h.updateTerminalStatus)
}

// createClient godoc
// @Summary Register a new client
// @Tags registry
// @Accept  json
// @Produce  json
// @Param   client body dto.CreateClientRequest true "Client"
// @Success 201 {object} dto.ClientResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Admin only"
// @Router /clients [post]
func (h *registryHandler) createClient(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createClient", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	client, err := h.registryService.CreateClient(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToClientResponse(client))
}

// getClient godoc
// @Summary Get a client
// @Tags registry
// @Produce  json
// @Param   clientID path string true "Client ID"
// @Success 200 {object} dto.ClientResponse
// @Failure 404 {object} map[string]string "Client not found"
// @Router /clients/{clientID} [get]
func (h *registryHandler) getClient(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	client, err := h.registryService.GetClient(c.Request.Context(), actor, c.Param("clientID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToClientResponse(client))
}

func (h *registryHandler) updateClientStatus(c *gin.Context) {
	h.updateStatus(c, c.Param("clientID"), h.registryService.UpdateClientStatus)
}

// createMerchant godoc
// @Summary Register a new merchant
// @Tags registry
// @Accept  json
// @Produce  json
// @Param   merchant body dto.CreateMerchantRequest true "Merchant"
// @Success 201 {object} dto.MerchantResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Merchant code already taken"
// @Router /merchants [post]
func (h *registryHandler) createMerchant(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createMerchant", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	merchant, err := h.registryService.CreateMerchant(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToMerchantResponse(merchant))
}

// getMerchant godoc
// @Summary Get a merchant
// @Tags registry
// @Produce  json
// @Param   merchantID path string true "Merchant ID"
// @Success 200 {object} dto.MerchantResponse
// @Failure 404 {object} map[string]string "Merchant not found"
// @Router /merchants/{merchantID} [get]
func (h *registryHandler) getMerchant(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	merchant, err := h.registryService.GetMerchant(c.Request.Context(), actor, c.Param("merchantID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToMerchantResponse(merchant))
}

func (h *registryHandler) updateMerchantStatus(c *gin.Context) {
	h.updateStatus(c, c.Param("merchantID"), h.registryService.UpdateMerchantStatus)
}

// createAgent godoc
// @Summary Register a new agent
// @Tags registry
// @Accept  json
// @Produce  json
// @Param   agent body dto.CreateAgentRequest true "Agent"
// @Success 201 {object} dto.AgentResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 403 {object} map[string]string "Admin only"
// @Router /agents [post]
func (h *registryHandler) createAgent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createAgent", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	agent, err := h.registryService.CreateAgent(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToAgentResponse(agent))
}

// getAgent godoc
// @Summary Get an agent
// @Tags registry
// @Produce  json
// @Param   agentID path string true "Agent ID"
// @Success 200 {object} dto.AgentResponse
// @Failure 404 {object} map[string]string "Agent not found"
// @Router /agents/{agentID} [get]
func (h *registryHandler) getAgent(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	agent, err := h.registryService.GetAgent(c.Request.Context(), actor, c.Param("agentID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAgentResponse(agent))
}

func (h *registryHandler) updateAgentStatus(c *gin.Context) {
	h.updateStatus(c, c.Param("agentID"), h.registryService.UpdateAgentStatus)
}

// createTerminal godoc
// @Summary Register a new terminal for a merchant
// @Tags registry
// @Accept  json
// @Produce  json
// @Param   terminal body dto.CreateTerminalRequest true "Terminal"
// @Success 201 {object} dto.TerminalResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Merchant not found"
// @Router /terminals [post]
func (h *registryHandler) createTerminal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.CreateTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createTerminal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	terminal, err := h.registryService.CreateTerminal(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTerminalResponse(terminal))
}

func (h *registryHandler) updateTerminalStatus(c *gin.Context) {
	h.updateStatus(c, c.Param("terminalID"), h.registryService.UpdateTerminalStatus)
}

func (h *registryHandler) updateStatus(c *gin.Context, subjectID string, update func(ctx context.Context, actor domain.Actor, id string, status domain.ActorStatus) error) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req dto.UpdateActorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for status update", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := update(c.Request.Context(), actor, subjectID, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
