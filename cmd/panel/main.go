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

	"github.com/puntomas/panel/internal/alerts"
	"github.com/puntomas/panel/internal/app"
	"github.com/puntomas/panel/internal/auth"
	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/businesses"
	"github.com/puntomas/panel/internal/contests"
	"github.com/puntomas/panel/internal/dashboard"
	"github.com/puntomas/panel/internal/observability"
	"github.com/puntomas/panel/internal/payout"
	"github.com/puntomas/panel/internal/platform/cache"
	"github.com/puntomas/panel/internal/platform/db"
	"github.com/puntomas/panel/internal/raffles"
	"github.com/puntomas/panel/internal/rbac"
	"github.com/puntomas/panel/internal/sellers"
	"github.com/puntomas/panel/internal/shared"
	"github.com/puntomas/panel/internal/stats"
	"github.com/puntomas/panel/jobs"
)

const sessionCookie = "panel_session"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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
	loc := cfg.Location()
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

	payoutOpts := []payout.ServiceOption{payout.WithMetrics(metrics), payout.WithLocation(loc)}
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
		payoutOpts = append(payoutOpts, payout.WithAuditor(payout.NewPGAuditor(pool)))
	} else {
		logger.Info("PG_DSN not set, batch payments are not audited")
	}
	payoutService := payout.NewService(client, payout.NewRedisStore(redisClient, cfg.PayoutStateTTL), logger, payoutOpts...)

	sessionManager := shared.NewSessionManager(redisClient, sessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	alertService := alerts.NewService(ctx, client, redisClient, metrics, logger, alerts.Config{
		AdminInterval:      cfg.AdminAlertPoll,
		SupervisorInterval: cfg.SupervisorAlertPoll,
		SessionAlive:       sessionManager.Exists,
	})
	defer alertService.Shutdown()

	authService := auth.NewService(client, logger,
		alertService,
		auth.HookFuncs{Ended: func(ctx context.Context, sessionID string) {
			if err := payoutService.Forget(ctx, sessionID); err != nil {
				logger.Warn("drop payout state", slog.Any("error", err))
			}
		}},
	)

	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	dashboardService := dashboard.NewService(client, cache.NewVersioned(redisClient, "dashboard", cfg.DashboardCacheTTL), logger, loc)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()
	jobClient := jobs.NewClient(redisOpts)
	defer jobClient.Close()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		RBACMiddleware:    rbac.Middleware{Logger: logger},
		Metrics:           metrics,
		AuthHandler:       auth.NewHandler(logger, authService, sessionManager, csrfManager),
		AlertsHandler:     alerts.NewHandler(logger, alertService),
		PayoutHandler:     payout.NewHandler(logger, payoutService),
		DashboardHandler:  dashboard.NewHandler(logger, dashboardService),
		SellersHandler:    sellers.NewHandler(logger, sellers.NewService(client, logger, loc)),
		BusinessesHandler: businesses.NewHandler(logger, businesses.NewService(client, logger)),
		ContestsHandler:   contests.NewHandler(logger, contests.NewService(client, logger)),
		RafflesHandler:    raffles.NewHandler(logger, raffles.NewService(client, logger), loc),
		StatsHandler:      stats.NewHandler(logger, stats.NewService(client, logger), loc),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
