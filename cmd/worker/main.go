package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/glowdesk/glowdesk/internal/app"
	"github.com/glowdesk/glowdesk/internal/audit"
	"github.com/glowdesk/glowdesk/internal/observability"
	"github.com/glowdesk/glowdesk/internal/platform/db"
	"github.com/glowdesk/glowdesk/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	auditRepo := audit.NewRepository(pool)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeAuditRecord, Handler: jobs.NewAuditRecordHandler(auditRepo, metrics, logger)},
			{Type: jobs.TaskTypeRoleExpiry, Handler: jobs.NewRoleExpiryHandler(pool, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 2 * * *", Task: jobs.NewRoleExpiryTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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
