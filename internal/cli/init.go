// Package cli holds the start-up steps shared by pulse, pulse-worker and
// pulsectl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"paypulse/internal/amqp"
	"paypulse/internal/backend"
	"paypulse/internal/cache"
	"paypulse/internal/config"
	"paypulse/internal/core"
	"paypulse/internal/events"
	"paypulse/internal/log"
	"paypulse/internal/services"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the environment and validates it.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// OpenBackend opens the configured ledger store.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// Publisher returns the AMQP publisher when events are enabled, otherwise a
// no-op. close is never nil.
func Publisher(cfg *config.Config, logger *log.Logger) (pub events.Publisher, closeFn func() error, err error) {
	if !cfg.EventsEnabled() {
		logger.Info("Ledger events disabled - no AMQP_URL provided")
		return events.Noop{}, func() error { return nil }, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect amqp: %w", err)
	}
	return client, client.Close, nil
}

// Services builds the mutation coordinator and the dashboard aggregator over
// store. The returned cleanup closes the dashboard cache.
func Services(cfg *config.Config, res *backend.BackendResult, pub events.Publisher, logger *log.Logger) (*services.LedgerService, *services.DashboardService, func(), error) {
	var c cache.Cache[core.DashboardSummary] = cache.Noop[core.DashboardSummary]{}
	if cfg.DashboardCacheSize > 0 {
		r, err := cache.NewRistretto[core.DashboardSummary](int64(cfg.DashboardCacheSize), cfg.DashboardCacheTTL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("dashboard cache: %w", err)
		}
		c = r
	}
	ledger := services.NewLedgerService(res.Store, pub, logger)
	dashboard := services.NewDashboardService(res.Store, c, services.DashboardOptions{
		GoalsPreview:   cfg.DashboardGoalsPreview,
		RecentExpenses: cfg.DashboardRecentExpenses,
	}, logger)
	return ledger, dashboard, c.Close, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
