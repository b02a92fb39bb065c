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

	"github.com/glowdesk/glowdesk/internal/admin"
	"github.com/glowdesk/glowdesk/internal/appointments"
	"github.com/glowdesk/glowdesk/internal/app"
	"github.com/glowdesk/glowdesk/internal/audit"
	"github.com/glowdesk/glowdesk/internal/auth"
	"github.com/glowdesk/glowdesk/internal/authz"
	"github.com/glowdesk/glowdesk/internal/observability"
	"github.com/glowdesk/glowdesk/internal/platform/cache"
	"github.com/glowdesk/glowdesk/internal/platform/db"
	"github.com/glowdesk/glowdesk/internal/salons"
	"github.com/glowdesk/glowdesk/internal/shared"
	"github.com/glowdesk/glowdesk/internal/users"
	"github.com/glowdesk/glowdesk/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "glowdesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	authzStore := authz.NewPGStore(dbpool)
	loader := authz.NewLoader(authzStore, logger)
	checker := authz.NewChecker(authzStore, logger, metrics)
	guard := authz.NewGuard(authService, loader, checker, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	emitter := audit.NewAsyncEmitter(jobClient.EnqueueAuditRecord, logger)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)

	salonsRepo := salons.NewPGRepository(dbpool)
	salonsService := salons.NewService(guard, salonsRepo, emitter, logger)
	salonsHandler := salons.NewHandler(logger, salonsService)

	apptRepo := appointments.NewPGRepository(dbpool)
	apptService := appointments.NewService(guard, apptRepo, emitter, shared.NewIdempotencyStore(dbpool), logger)
	apptHandler := appointments.NewHandler(logger, apptService)

	usersRepo := users.NewPGRepository(dbpool)
	usersService := users.NewService(guard, usersRepo, logger)
	usersHandler := users.NewHandler(logger, usersService)

	adminRepo := admin.NewPGRepository(dbpool)
	adminService := admin.NewService(authService, authzStore, adminRepo, emitter, auditService, logger)
	adminHandler := admin.NewHandler(logger, adminService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		AuthHandler:         authHandler,
		SalonsHandler:       salonsHandler,
		AppointmentsHandler: apptHandler,
		UsersHandler:        usersHandler,
		AdminHandler:        adminHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
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
	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
