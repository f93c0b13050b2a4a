package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-dairy/internal/app"
	"github.com/noah-isme/backend-dairy/internal/config"
	"github.com/noah-isme/backend-dairy/internal/dashboard"
	"github.com/noah-isme/backend-dairy/internal/lock"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg, "worker", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap")
	}
	defer deps.Close()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri for task queue")
	}

	dashboardSvc := &dashboard.Service{
		Store:  deps.Store,
		R:      deps.Redis,
		TTL:    cfg.DashboardCacheTTL,
		Logger: logger,
	}
	mux := tasks.NewServeMux(dashboardSvc, lock.Locker{R: deps.Redis, RetryBackoff: 100 * time.Millisecond}, logger)

	srv := asynq.NewServer(redisOpt, tasks.ServerConfig(cfg.WorkerConcurrency, logger))
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("worker stopping")
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}
