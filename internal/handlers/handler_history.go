package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/dto"
	"github.com/sahelpay/sahelpay/internal/middleware"
)

// historyHandler serves the read side: transaction history and balances.
type historyHandler struct {
	historyService portssvc.HistorySvcFacade
}

func newHistoryHandler(historyService portssvc.HistorySvcFacade) *historyHandler {
	return &historyHandler{historyService: historyService}
}

func registerHistoryRoutes(rg *gin.RouterGroup, historyService portssvc.HistorySvcFacade) {
	h := newHistoryHandler(historyService)
	rg.POST("/history/search", h.searchHistory)
	rg.GET("/balance", h.getBalance)
	rg.POST("/balance", h.getScopedBalance)
}

// searchHistory godoc
// @Summary Search transaction history
// @Description Returns one page of the caller's transactions, newest first, filtered per the request
// @Tags history
// @Accept  json
// @Produce  json
// @Param   search body dto.SearchHistoryCommand true "Search"
// @Success 200 {object} dto.SearchHistoryResponse
// @Failure 400 {object} map[string]string "Invalid request or pagination token"
// @Failure 403 {object} map[string]string "Scope not allowed"
// @Router /history/search [post]
func (h *historyHandler) searchHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var cmd dto.SearchHistoryCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		logger.Warn("Failed to bind JSON for searchHistory", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.historyService.SearchTransactionHistory(c.Request.Context(), actor, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getBalance godoc
// @Summary Get the caller's balance
// @Tags history
// @Produce  json
// @Success 200 {object} dto.BalanceResponse
// @Failure 403 {object} map[string]string "Actor has no account"
// @Router /balance [get]
func (h *historyHandler) getBalance(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	result, err := h.historyService.GetBalance(c.Request.Context(), actor, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getScopedBalance godoc
// @Summary Get the balance of a named account
// @Description Admin variant of the balance query naming an explicit account
// @Tags history
// @Accept  json
// @Produce  json
// @Param   scope body dto.ScopeRef true "Account"
// @Success 200 {object} dto.BalanceResponse
// @Failure 403 {object} map[string]string "Only admins may query another account"
// @Router /balance [post]
func (h *historyHandler) getScopedBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var scope dto.ScopeRef
	if err := c.ShouldBindJSON(&scope); err != nil {
		logger.Warn("Failed to bind JSON for getScopedBalance", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.historyService.GetBalance(c.Request.Context(), actor, &scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
