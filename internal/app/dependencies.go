// Package app builds the infrastructure shared by the API and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/config"
	"github.com/noah-isme/backend-dairy/internal/health"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/resilience"
	"github.com/noah-isme/backend-dairy/internal/store"
)

const connectTimeout = 5 * time.Second

// Dependencies are the long lived clients a process owns.
type Dependencies struct {
	Pool   *pgxpool.Pool
	Store  *store.Store
	Redis  *redis.Client
	Logger zerolog.Logger

	shutdownTracer func(context.Context) error
}

// Bootstrap connects to Postgres and Redis, installs tracing and registers
// metrics. component names the process in logs, traces and pg_stat_activity.
func Bootstrap(ctx context.Context, cfg *config.Config, component string, logger zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger}

	shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
		Enabled:       cfg.Obs.EnableTracing,
		ServiceName:   "dairy-" + component,
		Endpoint:      cfg.Obs.OTLPEndpoint,
		SamplingRatio: cfg.Obs.SamplingRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		shutdown = func(context.Context) error { return nil }
	}
	deps.shutdownTracer = shutdown

	var queryDuration *prometheus.HistogramVec
	if cfg.Obs.EnablePrometheus {
		RegisterMetrics(cfg.Obs.MetricsNamespace, prometheus.DefaultRegisterer)
		queryDuration = obs.NewQueryDurationHistogram(cfg.Obs.MetricsNamespace, prometheus.DefaultRegisterer)
	}

	if cfg.MigrateOnStart {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			deps.Close()
			return nil, err
		}
		logger.Info().Msg("database migrations applied")
	}

	pool, err := NewPool(ctx, cfg.DatabaseURL, "dairy-"+component, obs.PGXTracer{Duration: queryDuration})
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Pool = pool
	deps.Store = store.New(pool)

	rdb, err := NewRedis(ctx, cfg.RedisURL, cfg.Obs.EnablePrometheus)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Redis = rdb
	return deps, nil
}

// NewPool opens a pgx pool with the query tracer installed and checks connectivity.
func NewPool(ctx context.Context, databaseURL, applicationName string, tracer obs.PGXTracer) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = tracer
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis parses redisURL, instruments the client and checks connectivity.
func NewRedis(ctx context.Context, redisURL string, withMetrics bool) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("instrument redis metrics: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RegisterMetrics registers domain and breaker collectors on reg. Collectors
// already present are left alone.
func RegisterMetrics(namespace string, reg prometheus.Registerer) {
	obs.MustRegisterDomainMetrics(namespace, reg)
	for _, c := range resilience.Collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}
}

// Probes returns the readiness checks for the process dependencies.
func Probes(db *store.Store, rdb *redis.Client, timeout time.Duration) map[string]health.Probe {
	probes := map[string]health.Probe{}
	if db != nil {
		probes["db"] = func(ctx context.Context) error { return db.Ping(ctx, timeout) }
	}
	if rdb != nil {
		probes["redis"] = func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return rdb.Ping(ctx).Err()
		}
	}
	return probes
}

// Close releases every client in reverse order of creation.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := d.shutdownTracer(ctx); err != nil {
			d.Logger.Error().Err(err).Msg("shutdown tracer")
		}
	}
}
