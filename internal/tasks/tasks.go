// Package tasks carries background work between the API and the worker over
// asynq.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/lock"
	"github.com/noah-isme/backend-dairy/internal/store"
)

// TypeDashboardWarm recomputes cached dashboard views after new shipments.
const TypeDashboardWarm = "dashboard:warm"

const (
	// QueueDefault is the only queue the service uses.
	QueueDefault = "default"

	warmLockKey = "dash:warm:lock"
	warmLockTTL = time.Minute
)

// WarmPayload describes what triggered a warm.
type WarmPayload struct {
	VendorID   int64     `json:"vendor_id"`
	ShipmentID int64     `json:"shipment_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewWarmTask builds a dashboard warm task for the given shipment.
func NewWarmTask(sh store.Shipment) (*asynq.Task, error) {
	payload, err := json.Marshal(WarmPayload{VendorID: sh.VendorID, ShipmentID: sh.ID, RecordedAt: sh.CreatedAt})
	if err != nil {
		return nil, fmt.Errorf("marshal warm payload: %w", err)
	}
	return asynq.NewTask(TypeDashboardWarm, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	), nil
}

// TaskEnqueuer is the subset of *asynq.Client used to publish tasks.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer publishes a warm task whenever a shipment is recorded.
type Enqueuer struct {
	Client TaskEnqueuer
	Logger zerolog.Logger
}

// ShipmentRecorded enqueues a dashboard warm keyed by a fresh task id.
func (e Enqueuer) ShipmentRecorded(ctx context.Context, sh store.Shipment) error {
	if e.Client == nil {
		return nil
	}
	task, err := NewWarmTask(sh)
	if err != nil {
		return err
	}
	info, err := e.Client.EnqueueContext(ctx, task, asynq.TaskID(uuid.NewString()))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeDashboardWarm, err)
	}
	e.Logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("dashboard warm enqueued")
	return nil
}

// Warmer recomputes cached dashboard views.
type Warmer interface {
	Warm(ctx context.Context) error
}

// WarmExclusive warms under the shared warm lock, waiting for any warm
// already in progress to finish. It is used where a warm must not be dropped,
// such as at process start.
func WarmExclusive(ctx context.Context, w Warmer, locker lock.Locker) error {
	if locker.R == nil {
		return w.Warm(ctx)
	}
	return locker.WithLock(ctx, warmLockKey, warmLockTTL, w.Warm)
}

// NewWarmHandler runs Warmer for each task. When Locker has a client, only one
// worker warms at a time and concurrent tasks are skipped.
func NewWarmHandler(w Warmer, locker lock.Locker, logger zerolog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload WarmPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode warm payload: %w: %w", err, asynq.SkipRetry)
		}
		log := logger.With().Str("task", t.Type()).Int64("vendor_id", payload.VendorID).Logger()
		if locker.R == nil {
			return w.Warm(ctx)
		}
		err := locker.TryWithLock(ctx, warmLockKey, warmLockTTL, w.Warm)
		if errors.Is(err, lock.ErrNotAcquired) {
			log.Debug().Msg("dashboard warm already running")
			return nil
		}
		if err != nil {
			return err
		}
		log.Info().Msg("dashboard warmed")
		return nil
	}
}
