package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/uptrace/bun"

	hunterservice "github.com/achievement-hunters/hunter-bot/app/modules/hunter/application"
	hunterhandlers "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/handlers"
	hunterqueue "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/queue"
	hunterdb "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/repositories"
	hunterrouter "github.com/achievement-hunters/hunter-bot/app/modules/hunter/infrastructure/router"
	statisticsservice "github.com/achievement-hunters/hunter-bot/app/modules/statistics/application"
	statisticsdb "github.com/achievement-hunters/hunter-bot/app/modules/statistics/infrastructure/repositories"
	"github.com/achievement-hunters/hunter-bot/config"
	"github.com/achievement-hunters/hunter-bot/internal/db/bundb"
	"github.com/achievement-hunters/hunter-bot/internal/eventbus"
	"github.com/achievement-hunters/hunter-bot/internal/observability"
	"github.com/achievement-hunters/hunter-bot/internal/observability/attr"
	"github.com/achievement-hunters/hunter-bot/internal/steamapi"
	"github.com/achievement-hunters/hunter-bot/internal/updater"
)

// App wires the whole service together.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Steam         *steamapi.Client
	Queue         *updater.Queue
	Scheduler     *hunterqueue.Service
	HTTPServer    *http.Server

	limiter     *steamapi.RateLimiter
	queueCancel context.CancelFunc
}

// NewApp builds every component from configuration. Nothing starts running
// until Run is called.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs := observability.New(cfg.Observability.LogLevel)
	logger := obs.Logger

	db, err := bundb.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var bus eventbus.EventBus
	if cfg.NATS.URL != "" {
		bus, err = eventbus.NewNATSEventBus(ctx, cfg.NATS.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event bus: %w", err)
		}
	} else {
		logger.Warn("No NATS URL configured, using in-process event bus")
		bus = eventbus.NewMemoryEventBus(logger)
	}

	hunterRepo := &hunterdb.HunterRepository{DB: db}
	statsRepo := statisticsdb.NewStatsRepository(db, logger)
	statsService := statisticsservice.NewStatsService(statsRepo, logger)

	recorder := steamapi.MultiRecorder(statsRepo, observability.NewAPICallMetrics(obs.Registry))
	limiter := steamapi.NewRateLimiter(cfg.Steam.RateLimitCalls, cfg.Steam.RateLimitWindow)
	steamClient := steamapi.NewClient(steamapi.Config{
		APIKey:       cfg.Steam.APIKey,
		BaseURL:      cfg.Steam.BaseURL,
		CallTimeout:  cfg.Steam.CallTimeout,
		MaxAttempts:  cfg.Steam.MaxAttempts,
		RetryBackoff: cfg.Steam.RetryBackoff,
	}, limiter, recorder, logger)

	queue := updater.NewQueue(updater.Config{
		Workers:         cfg.Updater.Workers,
		GameConcurrency: cfg.Updater.GameConcurrency,
	}, hunterRepo, steamClient, bus, logger, updater.NewPrometheusMetrics(obs.Registry))

	scheduler, err := hunterqueue.NewService(ctx, hunterqueue.Config{
		DSN:             cfg.Postgres.DSN,
		RefreshInterval: cfg.Updater.RefreshInterval,
		StaleAfter:      cfg.Updater.StaleAfter,
	}, hunterRepo, queue, statsService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	hunterService := hunterservice.NewHunterService(hunterRepo, steamClient, queue, logger)
	handlers := hunterhandlers.NewHandlers(hunterService, statsService)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           hunterrouter.New(handlers, cfg.HTTP.RateLimitPerSecond, cfg.HTTP.RateLimitBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Config:        cfg,
		Observability: obs,
		DB:            db,
		EventBus:      bus,
		Steam:         steamClient,
		Queue:         queue,
		Scheduler:     scheduler,
		HTTPServer:    httpServer,
		limiter:       limiter,
	}, nil
}

// Run starts the workers, the scheduler, the metrics listener, and the HTTP
// server, then blocks until ctx is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	logger := a.Observability.Logger

	queueCtx, cancel := context.WithCancel(context.Background())
	a.queueCancel = cancel
	a.Queue.Start(queueCtx)

	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}

	go func() {
		if err := a.Observability.ServeMetrics(ctx, a.Config.Observability.MetricsAddress); err != nil {
			logger.Error("Metrics listener failed", attr.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", attr.String("addr", a.Config.HTTP.Addr))
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}
}

// Shutdown stops components in dependency order: no new HTTP requests, then
// drain the update queue so in-flight runs can commit, then close transports.
func (a *App) Shutdown(ctx context.Context) {
	logger := a.Observability.Logger

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", attr.Error(err))
	}

	if err := a.Scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("Scheduler shutdown failed", attr.Error(err))
	}

	if a.queueCancel != nil {
		a.queueCancel()
	}
	a.Queue.Wait()
	a.limiter.Stop()

	if err := a.EventBus.Close(); err != nil {
		logger.Error("Event bus close failed", attr.Error(err))
	}
	if err := a.DB.Close(); err != nil {
		logger.Error("Database close failed", attr.Error(err))
	}

	logger.Info("Application shut down gracefully")
}
