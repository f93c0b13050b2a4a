package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/lock"
	"github.com/noah-isme/backend-dairy/internal/resilience"
)

const retryBase = 2 * time.Second

// ServerConfig builds the asynq server configuration used by the worker.
func ServerConfig(concurrency int, logger zerolog.Logger) asynq.Config {
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{QueueDefault: 1},
		RetryDelayFunc: RetryDelay,
		Logger:         Logger{Z: logger},
		LogLevel:       asynq.InfoLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error().Err(err).
				Str("task", task.Type()).
				Int("retry", retried).
				Int("max_retry", maxRetry).
				Msg("task failed")
		}),
	}
}

// RetryDelay backs off exponentially with jitter.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return resilience.Backoff(retryBase, n+1, 0.2)
}

// NewServeMux routes every task type the worker understands.
func NewServeMux(w Warmer, locker lock.Locker, logger zerolog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeDashboardWarm, NewWarmHandler(w, locker, logger))
	return mux
}
