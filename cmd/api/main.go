package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/agent"
	"github.com/noah-isme/backend-dairy/internal/app"
	"github.com/noah-isme/backend-dairy/internal/auth"
	"github.com/noah-isme/backend-dairy/internal/config"
	"github.com/noah-isme/backend-dairy/internal/dashboard"
	"github.com/noah-isme/backend-dairy/internal/health"
	"github.com/noah-isme/backend-dairy/internal/lock"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/quality"
	"github.com/noah-isme/backend-dairy/internal/ratelimit"
	"github.com/noah-isme/backend-dairy/internal/resilience"
	"github.com/noah-isme/backend-dairy/internal/shipment"
	"github.com/noah-isme/backend-dairy/internal/tasks"
)

const (
	shutdownGrace      = 15 * time.Second
	startupWarmTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg, "api", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap")
	}
	defer deps.Close()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri for task queue")
	}
	taskClient := asynq.NewClient(redisOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	limiterStore, err := ratelimit.NewRedisStore(deps.Redis, "ratelimit")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	loginLimiter, err := ratelimit.NewStoreLimiter(limiterStore, cfg.RateLimit.Login)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse RATE_LIMIT_LOGIN")
	}
	agentLimiter, err := ratelimit.NewStoreLimiter(limiterStore, cfg.RateLimit.Agent)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse RATE_LIMIT_AGENT")
	}

	authService, err := auth.NewService(auth.Config{
		Admins:         deps.Store,
		Secret:         cfg.Auth.JWTSecret,
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
		Issuer:         cfg.Auth.Issuer,
		Audience:       cfg.Auth.Audience,
		ClockSkew:      30 * time.Second,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}

	dashboardSvc := &dashboard.Service{
		Store:  deps.Store,
		R:      deps.Redis,
		TTL:    cfg.DashboardCacheTTL,
		Logger: logger.With().Str("component", "dashboard").Logger(),
	}
	shipmentSvc := &shipment.Service{
		Store:     deps.Store,
		Evaluator: quality.ThresholdEvaluator{},
		Notifiers: []shipment.Notifier{
			dashboardSvc,
			tasks.Enqueuer{Client: taskClient, Logger: logger},
		},
		Logger: logger.With().Str("component", "shipment").Logger(),
	}

	agentSvc := &agent.Service{
		Figures: dashboardSvc,
		Timeout: cfg.LLM.Timeout,
		Logger:  logger.With().Str("component", "agent").Logger(),
	}
	if cfg.LLM.Enabled() {
		agentSvc.LLM = agent.NewOpenAICompleter(agent.OpenAIConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		})
		agentSvc.Breaker = resilience.NewBreaker(cfg.LLM.BreakerMinRequests, cfg.LLM.BreakerFailureRatio, cfg.LLM.BreakerOpenFor).
			WithTarget("llm").
			WithLogger(logger)
	} else {
		logger.Warn().Msg("LLM_API_KEY not set, agent endpoint disabled")
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.EnablePrometheus {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, nil, nil)
	}

	state := &health.State{}
	router := newRouter(cfg, logger, handlers{
		Health:       health.Handler{Probes: app.Probes(deps.Store, deps.Redis, 500*time.Millisecond), State: state},
		Auth:         &auth.Handler{Service: authService},
		AuthMW:       auth.Middleware{Service: authService},
		Shipment:     &shipment.Handler{Svc: shipmentSvc},
		Dashboard:    &dashboard.Handler{Svc: dashboardSvc},
		Agent:        &agent.Handler{Svc: agentSvc},
		LoginLimiter: loginLimiter,
		AgentLimiter: agentLimiter,
		HTTPMetrics:  httpMetrics,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	warmCtx, cancelWarm := context.WithTimeout(ctx, startupWarmTimeout)
	warmLocker := lock.Locker{R: deps.Redis, RetryBackoff: 100 * time.Millisecond}
	if err := tasks.WarmExclusive(warmCtx, dashboardSvc, warmLocker); err != nil {
		logger.Warn().Err(err).Msg("initial dashboard warm failed")
	}
	cancelWarm()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		shutdown(srv, state, logger)
	}
}

func shutdown(srv *http.Server, state *health.State, logger zerolog.Logger) {
	state.Drain()
	logger.Info().Msg("draining connections")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
		return
	}
	logger.Info().Msg("server stopped")
}
