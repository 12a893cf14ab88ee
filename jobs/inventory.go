package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-backoffice/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-backoffice/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// StockSource is the slice of the inventory service the jobs use.
type StockSource interface {
	ListStock(ctx context.Context, filter inventory.StockFilter) ([]inventory.StockRow, int, error)
	EnsureStockRecords(ctx context.Context) (inventory.EnsureResult, error)
	Threshold() int
}

// EmailEnqueuer queues outgoing mail.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// LowStockScanJob logs products under the threshold and mails an alert.
type LowStockScanJob struct {
	Stock      StockSource
	Mail       EmailEnqueuer
	AlertEmail string
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// LowStockResult counts the scanned levels.
type LowStockResult struct {
	Low []inventory.StockRow
	Out []inventory.StockRow
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Stock == nil {
		return errors.New("low stock scan: handler not configured")
	}
	if _, err := decodeScheduled(t); err != nil {
		return err
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskLowStockScan)
	defer func() { err = tracker.End(err) }()

	res, err := j.Scan(ctx)
	if err != nil {
		return err
	}
	if len(res.Low)+len(res.Out) == 0 || j.AlertEmail == "" || j.Mail == nil {
		return nil
	}
	if _, err := j.Mail.EnqueueSendEmail(ctx, lowStockEmail(j.AlertEmail, j.Stock.Threshold(), res)); err != nil {
		return fmt.Errorf("low stock scan: enqueue alert: %w", err)
	}
	return nil
}

// Scan classifies every product whose available stock is under the threshold.
func (j *LowStockScanJob) Scan(ctx context.Context) (LowStockResult, error) {
	rows, _, err := j.Stock.ListStock(ctx, inventory.StockFilter{Filter: "low"})
	if err != nil {
		return LowStockResult{}, fmt.Errorf("low stock scan: %w", err)
	}
	var res LowStockResult
	for _, row := range rows {
		if row.Available <= 0 {
			res.Out = append(res.Out, row)
			continue
		}
		res.Low = append(res.Low, row)
	}
	metrics := metricsOrDefault(j.Metrics)
	metrics.SetLowStock("low", len(res.Low))
	metrics.SetLowStock("out", len(res.Out))
	jobLogger(j.Logger, TaskLowStockScan).Info("low stock scan", slog.Int("low", len(res.Low)), slog.Int("out", len(res.Out)))
	return res, nil
}

func lowStockEmail(to string, threshold int, res LowStockResult) SendEmailPayload {
	var b strings.Builder
	fmt.Fprintf(&b, "Products with fewer than %d units available:\n\n", threshold)
	for _, row := range res.Out {
		fmt.Fprintf(&b, "- %s: out of stock\n", row.ProductName)
	}
	for _, row := range res.Low {
		fmt.Fprintf(&b, "- %s: %d available\n", row.ProductName, row.Available)
	}
	return SendEmailPayload{
		To:      to,
		Subject: fmt.Sprintf("Low stock: %d products", len(res.Low)+len(res.Out)),
		Body:    b.String(),
	}
}

// EnsureStockJob creates missing stock rows.
type EnsureStockJob struct {
	Stock   StockSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskEnsureStock tasks.
func (j *EnsureStockJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Stock == nil {
		return errors.New("ensure stock: handler not configured")
	}
	if _, err := decodeScheduled(t); err != nil {
		return err
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskEnsureStock)
	defer func() { err = tracker.End(err) }()

	res, err := j.Stock.EnsureStockRecords(ctx)
	if err != nil {
		return err
	}
	jobLogger(j.Logger, TaskEnsureStock).Info("ensure stock", slog.Int("checked", res.Checked), slog.Int("created", res.Created))
	return nil
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
