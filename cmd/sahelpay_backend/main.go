package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/sahelpay/sahelpay/internal/adapters/audit"
	"github.com/sahelpay/sahelpay/internal/adapters/database/pgsql"
	"github.com/sahelpay/sahelpay/internal/core/ports"
	portssvc "github.com/sahelpay/sahelpay/internal/core/ports/services"
	"github.com/sahelpay/sahelpay/internal/core/services"
	"github.com/sahelpay/sahelpay/internal/handlers"
	"github.com/sahelpay/sahelpay/internal/middleware"
	"github.com/sahelpay/sahelpay/internal/platform/metrics"
	"github.com/sahelpay/sahelpay/pkg/config"
	"github.com/sahelpay/sahelpay/pkg/database"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title SahelPay Ledger API
// @version 1.0
// @description Idempotent money movement core over an append-only double-entry ledger.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg, logger); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	m := metrics.New()

	// Global middleware (logging, recovery, CORS, metrics, rate limiting)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())
	r.Use(m.GinMiddleware())

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit format", slog.String("rate", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}
	r.Use(middleware.RateLimit(limiter.New(memory.NewStore(), rate)))

	err = r.SetTrustedProxies(nil)
	if err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	auditPublisher := audit.NewPosthogPublisher(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	defer auditPublisher.Close()

	serviceContainer := buildServices(dbPool, auditPublisher)
	handlers.RegisterRoutes(r, cfg, serviceContainer, m)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending "up" migrations using a temporary
// database/sql connection over the pgx stdlib driver.
func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return upErr
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if upErr == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

// buildServices wires the repository adapters into the service layer.
func buildServices(dbPool *pgxpool.Pool, auditPublisher ports.AuditPublisher) *portssvc.ServiceContainer {
	ledgerRepo := pgsql.NewPgxLedgerRepository(dbPool)
	idemRepo := pgsql.NewPgxIdempotencyRepository(dbPool)
	clientRepo := pgsql.NewPgxClientRepository(dbPool)
	merchantRepo := pgsql.NewPgxMerchantRepository(dbPool)
	agentRepo := pgsql.NewPgxAgentRepository(dbPool)
	terminalRepo := pgsql.NewPgxTerminalRepository(dbPool)
	cardRepo := pgsql.NewPgxCardRepository(dbPool)
	policyRepo := pgsql.NewPgxPolicyRepository(dbPool)
	settlementRepo := pgsql.NewPgxSettlementRepository(dbPool)

	return &portssvc.ServiceContainer{
		Payment: services.NewPaymentService(
			ledgerRepo, idemRepo, clientRepo, merchantRepo, terminalRepo, cardRepo,
			policyRepo, policyRepo, auditPublisher,
		),
		Transfer: services.NewTransferService(
			ledgerRepo, idemRepo, clientRepo, merchantRepo,
			policyRepo, policyRepo, auditPublisher,
		),
		AgentOps: services.NewAgentOpsService(
			ledgerRepo, idemRepo, clientRepo, merchantRepo, agentRepo, cardRepo,
			policyRepo, policyRepo, policyRepo, auditPublisher,
		),
		Payout:   services.NewPayoutService(ledgerRepo, idemRepo, merchantRepo, settlementRepo, auditPublisher),
		Refund:   services.NewRefundService(ledgerRepo, idemRepo, clientRepo, settlementRepo, auditPublisher),
		Reversal: services.NewReversalService(ledgerRepo, idemRepo, policyRepo, auditPublisher),
		History:  services.NewHistoryService(ledgerRepo),
		Policy:   services.NewPolicyService(policyRepo, policyRepo, policyRepo),
		Registry: services.NewRegistryService(clientRepo, merchantRepo, agentRepo, terminalRepo),
	}
}
