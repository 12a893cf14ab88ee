package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	orderMutations  *prometheus.CounterVec
	stockIns        prometheus.Counter
	stockRejections prometheus.Counter
	cacheLookups    *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_order_mutations_total",
		Help: "Jumlah order yang dibuat, diubah, atau dihapus.",
	}, []string{"operation"})
	stockIns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_stock_ins_completed_total",
		Help: "Jumlah batch stock-in yang diselesaikan.",
	})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_stock_rejected_lines_total",
		Help: "Jumlah baris yang ditolak karena stok tidak cukup.",
	})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_report_cache_lookups_total",
		Help: "Jumlah pencarian cache laporan berdasarkan hasil (hit atau miss).",
	}, []string{"result"})
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requests, duration, orders, stockIns, rejections, cacheLookups,
	)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		orderMutations:  orders,
		stockIns:        stockIns,
		stockRejections: rejections,
		cacheLookups:    cacheLookups,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// OrderMutated mencatat operasi order (create, update, delete).
func (m *Metrics) OrderMutated(operation string) {
	if m == nil {
		return
	}
	m.orderMutations.WithLabelValues(operation).Inc()
}

// StockInCompleted mencatat batch stock-in yang selesai.
func (m *Metrics) StockInCompleted() {
	if m == nil {
		return
	}
	m.stockIns.Inc()
}

// StockRejected mencatat baris yang gagal karena stok.
func (m *Metrics) StockRejected(lines int) {
	if m == nil || lines <= 0 {
		return
	}
	m.stockRejections.Add(float64(lines))
}

// ReportCacheLookup mencatat hit atau miss cache laporan.
func (m *Metrics) ReportCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
