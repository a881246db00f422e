// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"stocklot/internal/domain/adjustment"
	"stocklot/internal/domain/audit"
	"stocklot/internal/domain/batch"
	"stocklot/internal/domain/inventory"
	"stocklot/internal/domain/ledger"
	"stocklot/internal/domain/order"
	"stocklot/internal/domain/purchase"
	"stocklot/internal/domain/reports"
	"stocklot/internal/infrastructure/http/v1/handlers"
	"stocklot/internal/infrastructure/http/v1/middleware"
	"stocklot/internal/infrastructure/storage/postgres"
	"stocklot/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// TxManager runs request transactions; the idempotency store shares it.
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// Domain services.
	Inventory   *inventory.Service
	Adjustments *adjustment.Service
	Purchases   *purchase.Service
	Orders      *order.Service
	Ledger      *ledger.Service
	Batches     *batch.Service
	Reports     *reports.Service

	// IdempotencyEnabled enables the X-Idempotency-Key replay middleware.
	IdempotencyEnabled bool

	// IdempotencyTTL bounds how long completed keys replay.
	IdempotencyTTL time.Duration

	// AuditRecorder, when set, records mutating requests.
	AuditRecorder audit.Recorder
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no operator context required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(middleware.UserContext())
	if cfg.IdempotencyEnabled {
		ttl := cfg.IdempotencyTTL
		if ttl == 0 {
			ttl = 10 * time.Minute
		}
		store := postgres.NewIdempotencyStore(cfg.TxManager, ttl)
		v1.Use(middleware.Idempotency(store))
	}
	if cfg.AuditRecorder != nil {
		v1.Use(middleware.Audit(cfg.AuditRecorder))
	}

	// --- BATCHES ---
	{
		h := handlers.NewBatchHandler(base, cfg.Batches)
		g := v1.Group("/batches")
		g.POST("", h.Register)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("/:id/close", h.Close)
	}

	// --- INVENTORY ---
	{
		h := handlers.NewInventoryHandler(base, cfg.Inventory)
		adjH := handlers.NewAdjustmentHandler(base, cfg.Adjustments)
		g := v1.Group("/inventory")
		g.GET("/available/:productId", h.AvailableQuantity)
		g.GET("/entries", h.ListEntries)
		g.GET("/movements", h.ListMovements)
		g.POST("/adjust", adjH.Adjust)
		g.POST("/opening-balance", adjH.OpeningBalance)
	}

	// --- PURCHASES ---
	{
		h := handlers.NewPurchaseHandler(base, cfg.Purchases)
		g := v1.Group("/purchases")
		g.POST("", h.Create)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("/:id/receive", h.Receive)
		g.POST("/:id/cancel", h.Cancel)
	}

	// --- ORDERS ---
	{
		h := handlers.NewOrderHandler(base, cfg.Orders)
		g := v1.Group("/orders")
		g.POST("", h.Create)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("/:id/fulfill", h.Fulfill)
		g.POST("/:id/reverse", h.Reverse)
		g.POST("/:id/status", h.Advance)
	}

	// --- TRANSACTIONS ---
	{
		h := handlers.NewLedgerHandler(base, cfg.Ledger)
		g := v1.Group("/transactions")
		g.POST("", h.Post)
		g.GET("", h.List)
		g.GET("/balance", h.Balance)
		g.GET("/:id", h.Get)
		g.POST("/:id/void", h.Void)
	}

	// --- REPORTS ---
	{
		h := handlers.NewReportsHandler(base, cfg.Reports)
		g := v1.Group("/reports")
		g.GET("/valuation", h.Valuation)
		g.GET("/weighted-average-cost/:productId", h.WeightedAverageCost)
	}

	return router
}
