package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/qayd-erp/qayd-erp/internal/app"
	"github.com/qayd-erp/qayd-erp/internal/ledger/periods"
	"github.com/qayd-erp/qayd-erp/internal/platform/db"
	"github.com/qayd-erp/qayd-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	periodsService := periods.NewService(periods.NewRepository(pool), logger)
	periodRefresh := jobs.NewPeriodRefreshHandler(periodsService, logger)
	integrityScan := jobs.NewIntegrityScanHandler(pool, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPeriodRefresh, Handler: periodRefresh},
			{Type: jobs.TaskIntegrityScan, Handler: integrityScan},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "5 0 * * *", Task: jobs.NewPeriodRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: jobs.NewIntegrityScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
