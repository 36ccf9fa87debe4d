// Package routes defines the API routing configuration.
// It wires repositories, services and handlers, and groups routes by
// audience: customer, operator and gateway.
package routes

import (
	"qirsh/internal/config"
	"qirsh/internal/handlers"
	"qirsh/internal/middleware"
	"qirsh/internal/repositories"
	"qirsh/internal/services/gateway"
	"qirsh/internal/services/ledger"
	"qirsh/internal/services/txnumber"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App) {
	// Initialize repositories
	numbers := txnumber.New()
	currency := config.GetEnv("WALLET_CURRENCY", repositories.DefaultCurrency)
	ledgerRepo := repositories.NewLedgerRepository(repositories.DB, numbers, currency)

	// Initialize services
	gatewayService := gateway.NewService(config.LoadGatewayConfig())
	ledgerService := ledger.NewService(
		ledgerRepo,
		gatewayService,
		repositories.CacheService,
		ledger.Config{
			GatewayTimeout: config.GetDurationEnv("GATEWAY_TIMEOUT", ledger.DefaultGatewayTimeout),
		},
		&ledger.NoopMetricsCollector{},
	)

	// Initialize handlers
	walletHandler := handlers.NewWalletHandler(ledgerService)
	webhookHandler := handlers.NewWebhookHandler(ledgerService)
	adminHandler := handlers.NewAdminHandler(ledgerService)

	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api")

	// Gateway callbacks are authenticated by signature, not by session.
	api.Post("/webhooks/gateway", webhookHandler.HandleGatewayCallback)

	// Create middleware instance
	authMiddleware := middleware.NewAuthMiddleware(config.GetEnv("JWT_SECRET", "qirsh"))

	// Protected routes with auth middleware
	protected := api.Use(authMiddleware.Handler)

	setupWalletRoutes(protected, walletHandler)
	setupAdminRoutes(app, authMiddleware, adminHandler)
}

func setupWalletRoutes(router fiber.Router, h *handlers.WalletHandler) {
	wallet := router.Group("/wallet")
	wallet.Get("/", h.GetWallet)
	wallet.Get("/balance", h.GetBalance)
	wallet.Post("/deposit", h.InitiateDeposit)
	wallet.Post("/purchase", h.ProcessPurchase)
	wallet.Post("/refund", h.ProcessRefund)

	router.Get("/transactions", h.GetTransactions)
	router.Get("/transactions/:number", h.GetTransaction)
	router.Post("/transactions/:number/sync", h.SyncTransaction)
}

func setupAdminRoutes(app *fiber.App, authMiddleware *middleware.AuthMiddleware, h *handlers.AdminHandler) {
	admin := app.Group("/api/admin", authMiddleware.Handler, middleware.AdminOnly)

	admin.Get("/wallets/stats", h.GetWalletStats)
	admin.Get("/wallets/:ownerId", h.GetWallet)
	admin.Post("/wallets/:ownerId/adjust", h.AdjustBalance)
	admin.Post("/wallets/:ownerId/freeze", h.FreezeWallet)
	admin.Post("/wallets/:ownerId/unfreeze", h.UnfreezeWallet)

	admin.Get("/transactions/:number", h.LookupTransaction)
	admin.Post("/transactions/:id/complete", h.CompleteTransaction)
}
