package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"MicroloanCore/internal/config"
	"MicroloanCore/internal/infrastructure/httpapi"
	"MicroloanCore/internal/infrastructure/scheduler"
	"MicroloanCore/internal/infrastructure/scoring"
	"MicroloanCore/internal/logging"
	"MicroloanCore/internal/metrics"
	"MicroloanCore/internal/usecase"
	"MicroloanCore/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	log       *slog.Logger
	dashboard *usecase.Dashboard
	newServer func(ctx context.Context) *httpapi.Server
}

// New builds the application from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	mode, err := usecase.ParseMode(cfg.Underwriting.Mode)
	if err != nil {
		return nil, fmt.Errorf("underwriting config: %w", err)
	}

	recorder := metrics.New()
	timeout := cfg.Services.Timeout.Std()

	underwriter := usecase.NewUnderwriter(usecase.UnderwriterDeps{
		Credit:      scoring.NewCreditClient(cfg.Services.CreditBaseURL, cfg.Services.APIKey, timeout),
		Fraud:       scoring.NewFraudClient(cfg.Services.FraudBaseURL, cfg.Services.APIKey, timeout),
		Mode:        mode,
		CallTimeout: timeout,
		Metrics:     recorder,
		Logger:      baseLogger.With("component", "underwriter"),
	})

	stats := scoring.NewStatsClient(cfg.Services.StatsBaseURL, cfg.Services.APIKey, timeout)
	interval := cfg.Dashboard.PollInterval.Std()
	dashboard := usecase.NewDashboard(func() *usecase.StatsPoller {
		return usecase.NewStatsPoller(usecase.StatsPollerDeps{
			Fetcher: stats,
			Driver:  scheduler.NewIntervalScheduler(interval, baseLogger.With("component", "scheduler")),
			Timeout: timeout,
			Metrics: recorder,
			Logger:  baseLogger.With("component", "stats-poller"),
		})
	})

	a := &Application{cfg: cfg, log: baseLogger, dashboard: dashboard}
	a.newServer = func(ctx context.Context) *httpapi.Server {
		return httpapi.New(httpapi.Config{
			Addr:        cfg.Server.ListenAddr,
			Logger:      baseLogger,
			ErrorLog:    logger.New("http", baseLogger),
			Decider:     underwriter,
			Dashboard:   dashboard,
			Metrics:     recorder.Handler(),
			BaseContext: ctx,
		})
	}
	return a, nil
}

// Run serves the API until ctx is cancelled or the listener fails, then
// drains requests and stops the dashboard poller.
func (a *Application) Run(ctx context.Context) error {
	if a.cfg.Dashboard.ActivateDashboardOnStart() {
		if err := a.dashboard.Activate(ctx); err != nil {
			return fmt.Errorf("activate dashboard: %w", err)
		}
	}

	server := a.newServer(ctx)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
		a.log.Error("http server failed", "error", runErr)
	case <-ctx.Done():
		a.log.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http server shutdown", "error", err)
	}
	if err := a.dashboard.Deactivate(shutdownCtx); err != nil {
		a.log.Error("dashboard shutdown", "error", err)
	}

	a.log.Info("application stopped")
	return runErr
}
