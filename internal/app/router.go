package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/odyssey-erp/odyssey-backoffice/internal/audit/http"
	"github.com/odyssey-erp/odyssey-backoffice/internal/auth"
	"github.com/odyssey-erp/odyssey-backoffice/internal/inventory"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/attributes"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/categories"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/products"
	"github.com/odyssey-erp/odyssey-backoffice/internal/masterdata/vendors"
	"github.com/odyssey-erp/odyssey-backoffice/internal/observability"
	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/reports"
	"github.com/odyssey-erp/odyssey-backoffice/internal/sales/orders"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
	"github.com/odyssey-erp/odyssey-backoffice/jobs"
	"github.com/odyssey-erp/odyssey-backoffice/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	AuditHandler       *audithttp.Handler
	CategoryHandler    *categories.Handler
	AttributeHandler   *attributes.Handler
	ProductHandler     *products.Handler
	VendorHandler      *vendors.Handler
	InventoryHandler   *inventory.Handler
	OrderHandler       *orders.Handler
	ReportsHandler     *reports.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
	PermissionsHandler *rbac.PermissionsHandler
}

// NewRouter constructs the chi.Router with back-office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/masterdata", func(r chi.Router) {
		r.Route("/categories", params.CategoryHandler.MountRoutes)
		r.Route("/attributes", params.AttributeHandler.MountRoutes)
		r.Route("/products", params.ProductHandler.MountRoutes)
		r.Route("/vendors", params.VendorHandler.MountRoutes)
	})
	r.Route("/inventory", func(r chi.Router) {
		params.InventoryHandler.MountRoutes(r)
		r.Route("/products", params.ProductHandler.MountLookupRoutes)
	})
	r.Route("/sales", func(r chi.Router) {
		params.OrderHandler.MountRoutes(r)
		r.Route("/products", params.ProductHandler.MountPriceRoutes)
	})
	r.Route("/reports", params.ReportsHandler.MountRoutes)
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})

	return r
}
