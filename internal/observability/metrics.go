package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/ardash/internal/ar"
	jobmetrics "github.com/odyssey-erp/ardash/internal/jobs"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ingestFiles     *prometheus.CounterVec
	ingestRows      *prometheus.CounterVec
	jobs            *jobmetrics.Metrics
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ardash_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ardash_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	files := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ardash_ingest_files_total",
		Help: "Jumlah file piutang yang dibaca berdasarkan sumber, format dan hasil.",
	}, []string{"source", "format", "result"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ardash_ingest_rows_total",
		Help: "Jumlah baris faktur yang dimuat atau dilewati saat pembersihan.",
	}, []string{"outcome"})
	registry.MustRegister(requests, duration, files, rows)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		ingestFiles:     files,
		ingestRows:      rows,
		jobs:            jobmetrics.NewMetrics(registry),
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

// ObserveIngest mencatat hasil pembacaan satu file beserta jumlah baris yang dilewati.
func (m *Metrics) ObserveIngest(source, format string, loaded int, skipped ar.SkipCounts, err error) {
	if m == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ingestFiles.WithLabelValues(source, format, result).Inc()
	if err != nil {
		return
	}
	m.ingestRows.WithLabelValues("loaded").Add(float64(loaded))
	m.ingestRows.WithLabelValues("blank").Add(float64(skipped.Blank))
	m.ingestRows.WithLabelValues("no_customer").Add(float64(skipped.NoCustomer))
	m.ingestRows.WithLabelValues("fully_paid").Add(float64(skipped.FullyPaid))
}

// Jobs mengembalikan metrik job latar belakang yang terdaftar pada registry yang sama.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
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
