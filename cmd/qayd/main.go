package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/qayd-erp/qayd-erp/internal/app"
	"github.com/qayd-erp/qayd-erp/internal/ledger"
	"github.com/qayd-erp/qayd-erp/internal/ledger/accounts"
	"github.com/qayd-erp/qayd-erp/internal/ledger/periods"
	"github.com/qayd-erp/qayd-erp/internal/ledger/reports"
	"github.com/qayd-erp/qayd-erp/internal/platform/cache"
	"github.com/qayd-erp/qayd-erp/internal/platform/db"
	"github.com/qayd-erp/qayd-erp/internal/shared"
	"github.com/qayd-erp/qayd-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDialTimeout)
	if err != nil {
		logger.Warn("redis unavailable, payment account cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger)
	gateway := ledger.NewGateway(ledgerRepo, auditLogger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, gateway, ledgerRepo)

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo, accounts.ServiceConfig{
		ReceivablesParentCode: cfg.ReceivablesParentCode,
		PayablesParentCode:    cfg.PayablesParentCode,
	}, logger)
	var keyed accounts.KeyedCache
	if redisClient != nil {
		keyed = cache.NewKeyed(redisClient, "qayd:", cfg.CacheTTL)
	}
	mappingsRepo := accounts.NewMappingRepository(pool)
	resolver := accounts.NewPaymentAccountResolver(mappingsRepo, accountsRepo, keyed, logger)
	accountsHandler := accounts.NewHandler(logger, accountsService, resolver)

	periodsRepo := periods.NewRepository(pool)
	periodsService := periods.NewService(periodsRepo, logger)
	periodsHandler := periods.NewHandler(logger, periodsService)

	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo)
	reportsHandler := reports.NewHandler(logger, reportsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		LedgerHandler:   ledgerHandler,
		AccountsHandler: accountsHandler,
		PeriodsHandler:  periodsHandler,
		ReportsHandler:  reportsHandler,
		JobHandler:      jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
