package reports

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReportsView))
		r.Get("/dashboard", h.dashboard)
		r.Get("/sales", h.sales)
		r.Get("/stock", h.stock)
		r.Get("/sales/export.{format}", h.exportSales)
		r.Get("/stock/export.{format}", h.exportStock)
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) sales(w http.ResponseWriter, r *http.Request) {
	filter, err := salesFilterFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.Sales(r.Context(), filter)
	if err != nil {
		h.logger.Error("sales report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Stock(r.Context(), httpx.QueryInt(r, "threshold", 0))
	if err != nil {
		h.logger.Error("stock report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) exportSales(w http.ResponseWriter, r *http.Request) {
	filter, err := salesFilterFromRequest(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	orders, err := h.service.SalesOrders(r.Context(), filter)
	if err != nil {
		h.logger.Error("sales export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.export(w, chi.URLParam(r, "format"), "sales_report",
		func(buf *bytes.Buffer) error { return WriteSalesCSV(buf, orders) },
		func(buf *bytes.Buffer) error { return WriteSalesXLSX(buf, orders) })
}

func (h *Handler) exportStock(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.StockRows(r.Context(), httpx.QueryInt(r, "threshold", 0))
	if err != nil {
		h.logger.Error("stock export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.export(w, chi.URLParam(r, "format"), "stock_report",
		func(buf *bytes.Buffer) error { return WriteStockCSV(buf, rows) },
		func(buf *bytes.Buffer) error { return WriteStockXLSX(buf, rows) })
}

func (h *Handler) export(w http.ResponseWriter, format, name string, csvFn, xlsxFn func(*bytes.Buffer) error) {
	var (
		buf         bytes.Buffer
		contentType string
		err         error
	)
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = csvFn(&buf)
	case "xlsx":
		contentType = xlsxContentType
		err = xlsxFn(&buf)
	default:
		httpx.RespondError(w, shared.NewValidationError("format", "format must be csv or xlsx"))
		return
	}
	if err != nil {
		h.logger.Error("render export", slog.String("format", format), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	filename := name + "_" + time.Now().Format("20060102") + "." + format
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func salesFilterFromRequest(r *http.Request) (SalesFilter, error) {
	q := r.URL.Query()
	var filter SalesFilter
	verr := &shared.ValidationError{}
	for _, p := range []struct {
		field string
		dst   **time.Time
	}{{"start_date", &filter.Start}, {"end_date", &filter.End}} {
		raw := q.Get(p.field)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			verr.Add(p.field, "date must be formatted YYYY-MM-DD")
			continue
		}
		*p.dst = &t
	}
	if raw := q.Get("vendor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			verr.Add("vendor_id", "vendor_id must be a positive number")
		}
		filter.VendorID = id
	}
	return filter, verr.Err()
}
