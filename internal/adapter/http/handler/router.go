package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	TokenSvc       ports.TokenService
	DefaultFee     decimal.Decimal
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.LedgerSvc)
	ledgerHandler := NewLedgerHandler(deps.LedgerSvc, deps.DefaultFee)

	v1 := r.Group("/api/v1")

	// --- Caller-scoped wallet routes ---
	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.POST("/deposit", walletHandler.Deposit)
		wallet.POST("/withdraw", walletHandler.Withdraw)
		wallet.GET("/balance", walletHandler.GetBalance)
		wallet.GET("/transactions", walletHandler.ListTransactions)
	}

	// --- Business-event routes carrying explicit user IDs ---
	ledger := v1.Group("/ledger", jwtAuth)
	{
		ledger.POST("/order-debit", ledgerHandler.OrderDebit)
		ledger.POST("/owner-credit", ledgerHandler.OwnerCredit)
		ledger.POST("/delivery-fee", ledgerHandler.DeliveryFee)
	}

	return r
}
