package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-backoffice/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-backoffice/internal/jobs"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/db"
	"github.com/odyssey-erp/odyssey-backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("process", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, db.WithMaxConns(cfg.PGMaxConns), db.WithApplicationName("odyssey-backoffice-worker"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	svc := app.NewServices(cfg, pool, redisClient, nil, logger)
	metrics := jobmetrics.NewMetrics(nil)

	redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("redis options", slog.Any("error", err))
		os.Exit(1)
	}
	client := jobs.NewClient(redisOpts)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	lowStock := &jobs.LowStockScanJob{Stock: svc.Inventory, Mail: client, AlertEmail: cfg.AlertEmail, Logger: logger, Metrics: metrics}
	ensureStock := &jobs.EnsureStockJob{Stock: svc.Inventory, Logger: logger, Metrics: metrics}
	warmup := &jobs.ReportsWarmupJob{Reports: svc.Reports, Logger: logger, Metrics: metrics}
	cleanup := &jobs.IdempotencyCleanupJob{Store: svc.Idempotency, Logger: logger, Metrics: metrics}
	email := jobs.EmailJob{Mailer: jobs.LogMailer{Logger: logger}}

	now := time.Now().UTC()
	cron := []jobs.CronRegistration{}
	for _, entry := range []struct {
		spec     string
		taskType string
	}{
		{"0 1 * * *", jobs.TaskEnsureStock},
		{"30 1 * * *", jobs.TaskLowStockScan},
		{"*/30 * * * *", jobs.TaskReportsWarmup},
		{"0 3 * * *", jobs.TaskIdempotencyCleanup},
	} {
		task, err := jobs.NewScheduledTask(entry.taskType, now)
		if err != nil {
			logger.Error("build task", slog.String("type", entry.taskType), slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: entry.spec, Task: task, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: email.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStock.Handle},
			{Type: jobs.TaskEnsureStock, Handler: ensureStock.Handle},
			{Type: jobs.TaskReportsWarmup, Handler: warmup.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanup.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := jobs.WarmOnBump(ctx, svc.ReportCache, client, 10*time.Second, logger); err != nil {
		logger.Warn("subscribe report bumps", slog.Any("error", err))
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
