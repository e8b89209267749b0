package handlers

import (
	"github.com/gin-gonic/gin"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/middleware"
	"github.com/sahelpay/sahelpay/internal/platform/metrics"
	"github.com/sahelpay/sahelpay/pkg/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	m *metrics.Metrics,
) {
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})
	r.GET("/metrics", m.Handler())

	setupAPIV1Routes(r, cfg, services, m)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to the
// per-concern route registrations.
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	m *metrics.Metrics,
) {
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret))

	registerPaymentRoutes(v1, services.Payment, m)
	registerTransferRoutes(v1, services.Transfer, m)
	registerAgentOpsRoutes(v1, services.AgentOps, m)
	registerSettlementRoutes(v1, services.Payout, services.Refund, m)
	registerReversalRoutes(v1, services.Reversal, m)
	registerHistoryRoutes(v1, services.History)
	registerPolicyRoutes(v1, services.Policy)
	registerRegistryRoutes(v1, services.Registry)
}
