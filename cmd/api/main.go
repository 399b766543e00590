package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/kursadbilgin/notify-relay/internal/config"
	"github.com/kursadbilgin/notify-relay/internal/domain"
	"github.com/kursadbilgin/notify-relay/internal/handler"
	"github.com/kursadbilgin/notify-relay/internal/infra/database"
	"github.com/kursadbilgin/notify-relay/internal/infra/database/migrations"
	infraredis "github.com/kursadbilgin/notify-relay/internal/infra/redis"
	"github.com/kursadbilgin/notify-relay/internal/observability"
	"github.com/kursadbilgin/notify-relay/internal/ratelimit"
	"github.com/kursadbilgin/notify-relay/internal/repository"
	"github.com/kursadbilgin/notify-relay/internal/server"
	"github.com/kursadbilgin/notify-relay/internal/service"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("notify-relay api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends := make([]repository.Backend, 0, 2)
	defer func() {
		for _, b := range backends {
			if err := b.Close(); err != nil {
				logger.Warn("failed to close backend", zap.String("system", b.System().String()), zap.Error(err))
			}
		}
	}()

	checks := make(map[string]handler.HealthCheck, 3)
	for _, target := range []struct {
		system domain.System
		cfg    config.BackendConfig
	}{
		{system: domain.System1, cfg: cfg.System1},
		{system: domain.System2, cfg: cfg.System2},
	} {
		system, backendCfg := target.system, target.cfg
		backend, err := openBackend(system, backendCfg, cfg.AcquireTimeout())
		if err != nil {
			return err
		}
		backends = append(backends, backend)
		checks[system.String()] = backend.Ping
		logger.Info("backend ready",
			zap.String("system", system.String()),
			zap.String("driver", backendCfg.Driver),
			zap.String("database", backendCfg.Database),
		)
	}

	var limiter ratelimit.RateLimiter
	if cfg.RedisURL != "" {
		rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
		defer rdb.Close()

		redisLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			return fmt.Errorf("rate limiter initialization failed: %w", err)
		}
		limiter = redisLimiter
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	metrics := observability.NewMetrics()

	relay, err := service.NewRelayService(backends, service.RelayOptions{
		Concurrent:             cfg.FanOutMode == config.FanOutConcurrent,
		IsolateAcquireFailures: cfg.AcquireFailurePolicy == config.AcquireFailureIsolate,
	}, logger)
	if err != nil {
		return fmt.Errorf("relay service initialization failed: %w", err)
	}
	relay.SetMetrics(metrics)

	validator, err := domain.NewRequestValidator()
	if err != nil {
		return err
	}
	notify, err := handler.NewNotifyHandler(relay, validator)
	if err != nil {
		return err
	}

	app, err := server.NewApp(server.Deps{
		Logger:       logger,
		Metrics:      metrics,
		Limiter:      limiter,
		Notify:       notify,
		HealthChecks: checks,
	})
	if err != nil {
		return err
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	logger.Info("notify-relay api started",
		zap.Int("port", cfg.APIPort),
		zap.String("fanOutMode", cfg.FanOutMode),
		zap.String("acquireFailurePolicy", cfg.AcquireFailurePolicy),
		zap.Bool("rateLimited", limiter != nil),
	)

	select {
	case err := <-listenErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

func openBackend(system domain.System, cfg config.BackendConfig, acquireTimeout time.Duration) (*repository.GormBackend, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: database initialization failed: %w", system, err)
	}

	if err := migrations.Migrate(db); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("%s: database migrations failed: %w", system, err)
	}

	return repository.NewGormBackend(system, db, acquireTimeout)
}
