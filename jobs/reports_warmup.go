package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-backoffice/internal/jobs"
)

// Warmer precomputes cached reports.
type Warmer interface {
	Warm(ctx context.Context) error
}

// BumpSubscriber announces cache version bumps.
type BumpSubscriber interface {
	Subscribe(ctx context.Context, fn func(context.Context, int64)) error
}

// TaskEnqueuer queues arbitrary tasks.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReportsWarmupJob refreshes the default reports under the current cache version.
type ReportsWarmupJob struct {
	Reports Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// Handle processes TaskReportsWarmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	if _, err := decodeScheduled(t); err != nil {
		return err
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskReportsWarmup)
	defer func() { err = tracker.End(err) }()

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	warmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := j.Reports.Warm(warmCtx); err != nil {
		jobLogger(j.Logger, TaskReportsWarmup).Error("warm reports", slog.Any("error", err))
		return err
	}
	jobLogger(j.Logger, TaskReportsWarmup).Info("reports warmed", slog.Duration("duration", time.Since(start)))
	return nil
}

// WarmOnBump enqueues a debounced warmup each time the report cache version moves.
// Bursts of bumps inside the window collapse into one task.
func WarmOnBump(ctx context.Context, sub BumpSubscriber, q TaskEnqueuer, window time.Duration, logger *slog.Logger) error {
	if window <= 0 {
		window = 10 * time.Second
	}
	logger = jobLogger(logger, TaskReportsWarmup)
	return sub.Subscribe(ctx, func(ctx context.Context, version int64) {
		// An empty payload keeps the uniqueness key identical across bumps.
		task := asynq.NewTask(TaskReportsWarmup, nil, asynq.Queue(QueueDefault))
		_, err := q.Enqueue(ctx, task, asynq.ProcessIn(window), asynq.Unique(window))
		switch {
		case errors.Is(err, asynq.ErrDuplicateTask):
			logger.Debug("warmup already queued", slog.Int64("version", version))
		case err != nil:
			logger.Warn("enqueue warmup", slog.Int64("version", version), slog.Any("error", err))
		}
	})
}
