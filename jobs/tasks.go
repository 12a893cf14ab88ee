package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskLowStockScan reports products under the low stock threshold.
	TaskLowStockScan = "inventory:low-stock-scan"
	// TaskEnsureStock creates missing zero stock rows.
	TaskEnsureStock = "inventory:ensure-stock"
	// TaskReportsWarmup precomputes the cached reports.
	TaskReportsWarmup = "reports:warmup"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ScheduledPayload carries the time a periodic task was requested for.
type ScheduledPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5)), nil
}

// NewScheduledTask builds one of the periodic inventory or report tasks.
func NewScheduledTask(taskType string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScheduledPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault)), nil
}

func decodeScheduled(t *asynq.Task) (ScheduledPayload, error) {
	var payload ScheduledPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, asynq.SkipRetry
	}
	return payload, nil
}
