// Package main is the entry point for the stocklot API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocklot/internal/config"
	"stocklot/internal/domain/adjustment"
	"stocklot/internal/domain/batch"
	"stocklot/internal/domain/inventory"
	"stocklot/internal/domain/ledger"
	"stocklot/internal/domain/order"
	"stocklot/internal/domain/purchase"
	"stocklot/internal/domain/reports"
	v1 "stocklot/internal/infrastructure/http/v1"
	"stocklot/internal/infrastructure/numerator"
	"stocklot/internal/infrastructure/storage/postgres"
	"stocklot/internal/infrastructure/storage/postgres/batch_repo"
	"stocklot/internal/infrastructure/storage/postgres/catalog_repo"
	"stocklot/internal/infrastructure/storage/postgres/inventory_repo"
	"stocklot/internal/infrastructure/storage/postgres/ledger_repo"
	"stocklot/internal/infrastructure/storage/postgres/order_repo"
	"stocklot/internal/infrastructure/storage/postgres/purchase_repo"
	"stocklot/internal/infrastructure/storage/postgres/report_repo"
	"stocklot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.AppEnv == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stocklot server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	batchRepo := batch_repo.NewRepo(txManager)
	inventoryRepo := inventory_repo.NewRepo(txManager)
	ledgerRepo := ledger_repo.NewRepo(txManager)
	purchaseRepo := purchase_repo.NewRepo(txManager)
	orderRepo := order_repo.NewRepo(txManager)
	reportRepo := report_repo.NewRepo(txManager)
	catalogRepo := catalog_repo.NewRepo(txManager)

	// --- Domain services ---
	batchNumbers := numerator.New(pool)
	batchService := batch.NewService(batchRepo, catalogRepo, batchNumbers, txManager)
	inventoryService := inventory.NewService(inventoryRepo, batchService, catalogRepo, txManager)
	ledgerService := ledger.NewService(ledgerRepo, catalogRepo, txManager)
	purchaseService := purchase.NewService(purchaseRepo, inventoryService, ledgerService, catalogRepo, txManager, cfg.OverageTolerance)
	orderService := order.NewService(orderRepo, inventoryService, ledgerService, txManager)
	reportsService := reports.NewService(reportRepo)

	adjustmentService, err := adjustment.NewService(
		inventoryService,
		batchService,
		ledgerService,
		txManager,
		adjustment.CostPolicy(cfg.AdjustmentCostPolicy),
		cfg.AdjustmentPostsLedger,
	)
	if err != nil {
		log.Fatalw("failed to configure adjustment service", "error", err)
	}

	auditRecorder, err := postgres.NewAuditRecorder(txManager)
	if err != nil {
		log.Fatalw("failed to configure audit recorder", "error", err)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:               pool,
		TxManager:          txManager,
		Logger:             log,
		Inventory:          inventoryService,
		Adjustments:        adjustmentService,
		Purchases:          purchaseService,
		Orders:             orderService,
		Ledger:             ledgerService,
		Batches:            batchService,
		Reports:            reportsService,
		IdempotencyEnabled: cfg.IdempotencyEnabled,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		AuditRecorder:      auditRecorder,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("forced shutdown", "error", err)
	}
	log.Info("server stopped")
}
