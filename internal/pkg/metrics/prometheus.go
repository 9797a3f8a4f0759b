package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagesentry",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "usagesentry",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "usagesentry",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Detection metrics
	detectionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagesentry",
			Subsystem: "detection",
			Name:      "runs_total",
			Help:      "Total number of detection runs",
		},
		[]string{"status"},
	)

	detectionRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "usagesentry",
			Subsystem: "detection",
			Name:      "run_duration_seconds",
			Help:      "Duration of a full detection run in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	anomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagesentry",
			Subsystem: "detection",
			Name:      "anomalies_total",
			Help:      "Total number of newly persisted anomalies",
		},
		[]string{"type", "severity"},
	)

	openAnomalies = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "usagesentry",
			Subsystem: "detection",
			Name:      "open_anomalies",
			Help:      "Number of currently open anomalies",
		},
		[]string{"severity"},
	)

	// Alert dispatch metrics
	alertsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagesentry",
			Subsystem: "alerts",
			Name:      "dispatched_total",
			Help:      "Total number of alert channel deliveries",
		},
		[]string{"channel", "status"},
	)

	// Provider sync metrics
	providerSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "usagesentry",
			Subsystem: "provider",
			Name:      "syncs_total",
			Help:      "Total number of upstream usage sync attempts",
		},
		[]string{"status"},
	)
)

// RecordDetectionRun records the outcome and duration of a detection run
func RecordDetectionRun(status string, duration time.Duration) {
	detectionRunsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		detectionRunDuration.Observe(duration.Seconds())
	}
}

// RecordAnomalyDetected records a newly persisted anomaly
func RecordAnomalyDetected(anomalyType, severity string) {
	anomaliesDetectedTotal.WithLabelValues(anomalyType, severity).Inc()
}

// SetOpenAnomalies sets the open-anomaly gauge for a severity
func SetOpenAnomalies(severity string, count int) {
	openAnomalies.WithLabelValues(severity).Set(float64(count))
}

// RecordAlertDispatch records a channel delivery attempt
func RecordAlertDispatch(channel, status string) {
	alertsDispatchedTotal.WithLabelValues(channel, status).Inc()
}

// RecordProviderSync records an upstream sync attempt
func RecordProviderSync(status string) {
	providerSyncTotal.WithLabelValues(status).Inc()
}

// Handler returns the prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments HTTP requests
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil && routeCtx.RoutePattern() != "" {
			path = routeCtx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.status)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
