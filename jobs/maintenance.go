package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-backoffice/internal/jobs"
)

// KeyCleaner removes idempotency keys older than a cutoff.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob purges order idempotency keys past their retention.
type IdempotencyCleanupJob struct {
	Store     KeyCleaner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	if _, err := decodeScheduled(t); err != nil {
		return err
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	retention := j.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	removed, err := j.Store.Cleanup(ctx, retention)
	if err != nil {
		return err
	}
	jobLogger(j.Logger, TaskIdempotencyCleanup).Info("idempotency keys purged", slog.Int64("removed", removed))
	return nil
}
