package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
)

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg SendEmailPayload) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs the message envelope.
func (m LogMailer) Send(_ context.Context, msg SendEmailPayload) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("email", slog.String("to", msg.To), slog.String("subject", msg.Subject), slog.Int("body_bytes", len(msg.Body)))
	return nil
}

// EmailJob handles TaskTypeSendEmail tasks.
type EmailJob struct {
	Mailer Mailer
}

// Handle processes TaskTypeSendEmail tasks.
func (j EmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("send email: empty recipient: %w", asynq.SkipRetry)
	}
	mailer := j.Mailer
	if mailer == nil {
		mailer = LogMailer{}
	}
	return mailer.Send(ctx, payload)
}
