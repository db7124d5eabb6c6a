package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/puntomas/panel/internal/app"
	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/dashboard"
	"github.com/puntomas/panel/internal/observability"
	"github.com/puntomas/panel/internal/platform/cache"
	"github.com/puntomas/panel/jobs"
)

// metricsAddr serves the worker metrics; the panel exposes its own on /metrics.
const metricsAddr = ":9091"

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
	metrics := observability.NewMetrics()

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

	backend.SetLocation(cfg.Location())
	client := backend.New(cfg.BackendURL, cfg.BackendTimeout, backend.WithObserver(metrics))
	dashboardService := dashboard.NewService(client, cache.NewVersioned(redisClient, "dashboard", cfg.DashboardCacheTTL), logger, cfg.Location())
	warmupJob := jobs.NewDashboardWarmupJob(dashboardService, cfg.BackendServiceToken, logger, metrics.Jobs())

	warmupTask, err := jobs.NewDashboardWarmupTask("cron")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.BackendServiceToken != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    "*/5 * * * *",
			Task:    warmupTask,
			Options: []asynq.Option{asynq.MaxRetry(2), asynq.Timeout(time.Minute)},
		})
	} else {
		logger.Warn("BACKEND_SERVICE_TOKEN not set, scheduled dashboard warmup disabled")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Location:  cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskDashboardInvalidate, Handler: warmupJob.HandleInvalidate},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
