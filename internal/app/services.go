package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-backoffice/internal/audit"
	"github.com/odyssey-erp/odyssey-backoffice/internal/auth"
	"github.com/odyssey-erp/odyssey-backoffice/internal/inventory"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/attributes"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/categories"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/products"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/vendors"
	"github.com/odyssey-erp/odyssey-backoffice/internal/observability"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/reports"
	"github.com/odyssey-erp/odyssey-backoffice/internal/sales/orders"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

// Services holds the domain services shared by the HTTP server, the CLI and the worker.
type Services struct {
	Auth        *auth.Service
	Audit       *audit.Service
	RBAC        *rbac.Service
	Categories  *categories.Service
	Attributes  *attributes.Service
	Products    *products.Service
	Vendors     *vendors.Service
	Inventory   *inventory.Service
	Orders      *orders.Service
	Reports     *reports.Service
	ReportCache *reports.Cache
	Idempotency *shared.IdempotencyStore
	Metrics     *observability.Metrics
}

// NewServices wires repositories and services over the shared pools.
// Metrics may be nil for processes that do not expose /metrics.
func NewServices(cfg *Config, pool *pgxpool.Pool, rdb *redis.Client, metrics *observability.Metrics, logger *slog.Logger) *Services {
	auditLogger := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)
	locker := shared.NewLocker(rdb, 0)
	reportCache := reports.NewCache(rdb, cfg.ReportCacheTTL)

	categoryService := categories.NewService(categories.NewRepository(pool))
	productService := products.NewService(products.NewRepository(pool), categoryService, locker, auditLogger, reportCache, logger.With(slog.String("module", "products")))

	invDeps := inventory.ServiceDeps{
		Audit:  auditLogger,
		Locker: locker,
		Cache:  reportCache,
		Logger: logger.With(slog.String("module", "inventory")),
	}
	orderDeps := orders.ServiceDeps{
		Audit:       auditLogger,
		Idempotency: idempotency,
		Logger:      logger.With(slog.String("module", "orders")),
	}
	if metrics != nil {
		reportCache.Observe(metrics)
		invDeps.Metrics = metrics
		orderDeps.Metrics = metrics
	}
	inventoryService := inventory.NewService(inventory.NewRepository(pool), inventory.ServiceConfig{LowStockThreshold: cfg.LowStockThreshold}, invDeps)

	return &Services{
		Auth:        auth.NewService(auth.NewRepository(pool)),
		Audit:       audit.NewService(audit.NewRepository(pool)),
		RBAC:        rbac.NewService(pool),
		Categories:  categoryService,
		Attributes:  attributes.NewService(attributes.NewRepository(pool)),
		Products:    productService,
		Vendors:     vendors.NewService(vendors.NewRepository(pool)),
		Inventory:   inventoryService,
		Orders:      orders.NewService(orders.NewRepository(pool), inventoryService, orderDeps),
		Reports:     reports.NewService(reports.NewRepository(pool), reportCache, cfg.LowStockThreshold, logger.With(slog.String("module", "reports"))),
		ReportCache: reportCache,
		Idempotency: idempotency,
		Metrics:     metrics,
	}
}
