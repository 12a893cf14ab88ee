package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-backoffice/cmd/backoffice/cli"
	"github.com/odyssey-erp/odyssey-backoffice/internal/app"
	audithttp "github.com/odyssey-erp/odyssey-backoffice/internal/audit/http"
	"github.com/odyssey-erp/odyssey-backoffice/internal/auth"
	"github.com/odyssey-erp/odyssey-backoffice/internal/inventory"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/attributes"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/categories"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/products"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/vendors"
	"github.com/odyssey-erp/odyssey-backoffice/internal/observability"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/db"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/reports"
	"github.com/odyssey-erp/odyssey-backoffice/internal/sales/orders"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
	"github.com/odyssey-erp/odyssey-backoffice/internal/view"
	"github.com/odyssey-erp/odyssey-backoffice/jobs"
	"github.com/odyssey-erp/odyssey-backoffice/report"
)

const usage = `usage: backoffice <command> [flags]

commands:
  serve                         run the HTTP API (default)
  migrate [up|down N|version]   manage the database schema
  ensure-stock                  create missing zero stock rows
  create-admin -email -password create or reset an admin account
  jobs [trigger NAME|stats]     enqueue or inspect background jobs
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cmd, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = runMigrate(cfg, logger, args)
	case "ensure-stock":
		err = withServices(ctx, cfg, logger, func(svc *app.Services) error {
			res, err := svc.Inventory.EnsureStockRecords(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("checked=%d created=%d existing=%d\n", res.Checked, res.Created, res.Existing)
			return nil
		})
	case "create-admin":
		err = createAdmin(ctx, cfg, logger, args)
	case "jobs":
		err = runJobs(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(cmd+" failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func connect(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*pgxpool.Pool, *redis.Client, func(), error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.WithMaxConns(cfg.PGMaxConns))
	if err != nil {
		return nil, nil, nil, err
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
		pool.Close()
	}
	return pool, redisClient, cleanup, nil
}

func withServices(ctx context.Context, cfg *app.Config, logger *slog.Logger, fn func(*app.Services) error) error {
	pool, redisClient, cleanup, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(app.NewServices(cfg, pool, redisClient, nil, logger))
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	pool, redisClient, cleanup, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	metrics := observability.NewMetrics()
	svc := app.NewServices(cfg, pool, redisClient, metrics, logger)
	rbacMiddleware := rbac.Middleware{Service: svc.RBAC, Logger: logger}

	sessionManager := shared.NewSessionManager(redisClient, "backoffice_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		return err
	}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Metrics:            metrics,
		AuthHandler:        auth.NewHandler(logger, svc.Auth, sessionManager, csrfManager),
		AuditHandler:       audithttp.NewHandler(logger, svc.Audit, rbacMiddleware),
		CategoryHandler:    categories.NewHandler(logger, svc.Categories, rbacMiddleware),
		AttributeHandler:   attributes.NewHandler(logger, svc.Attributes, rbacMiddleware),
		ProductHandler:     products.NewHandler(logger, svc.Products, rbacMiddleware),
		VendorHandler:      vendors.NewHandler(logger, svc.Vendors, rbacMiddleware),
		InventoryHandler:   inventory.NewHandler(logger, svc.Inventory, rbacMiddleware),
		OrderHandler:       orders.NewHandler(logger, svc.Orders, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, svc.Reports, rbacMiddleware),
		ReportHandler:      report.NewHandler(report.NewClient(cfg.GotenbergURL, 0), templates, svc.Orders, rbacMiddleware, logger),
		JobHandler:         jobs.NewHandler(inspector, logger),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, svc.RBAC, rbacMiddleware),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runMigrate(cfg *app.Config, logger *slog.Logger, args []string) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "up":
		if err := db.Migrate(cfg.PGDSN); err != nil {
			return err
		}
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("migrate down: invalid step count %q", args[1])
			}
			steps = n
		}
		if err := db.MigrateDown(cfg.PGDSN, steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("migrate: unknown action %q", action)
	}
	version, dirty, err := db.MigrationVersion(cfg.PGDSN)
	if err != nil {
		return err
	}
	logger.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	return nil
}

func createAdmin(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	email := fs.String("email", "", "admin email")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password (or ADMIN_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withServices(ctx, cfg, logger, func(svc *app.Services) error {
		user, err := cli.CreateAdmin(ctx, svc.Auth, svc.RBAC, *email, *password)
		if err != nil {
			return err
		}
		logger.Info("admin ready", slog.Int64("user_id", user.ID), slog.String("email", user.Email))
		return nil
	})
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	redisOpts, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		return err
	}
	jobsCLI := cli.NewJobsCLI(redisOpts)
	defer func() { _ = jobsCLI.Close() }()

	if len(args) == 0 || args[0] == "stats" {
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	}
	if args[0] != "trigger" || len(args) < 2 {
		return fmt.Errorf("jobs: expected 'trigger NAME' with NAME one of %v", cli.TriggerableNames())
	}
	info, err := jobsCLI.Trigger(ctx, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
	return nil
}
