package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the HTTP layer and the fan-out.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	backendWritesTotal      *prometheus.CounterVec
	backendWriteDuration    *prometheus.HistogramVec
	backendSessionsInflight *prometheus.GaugeVec
	validationFailuresTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notify_relay",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notify_relay",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		backendWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notify_relay",
				Name:      "backend_writes_total",
				Help:      "Total number of per-backend transactional writes by outcome.",
			},
			[]string{"system", "status"},
		),
		backendWriteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notify_relay",
				Name:      "backend_write_duration_seconds",
				Help:      "Duration of one backend transaction including session acquisition.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"system"},
		),
		backendSessionsInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "notify_relay",
				Name:      "backend_sessions_inflight",
				Help:      "Current number of acquired backend sessions.",
			},
			[]string{"system"},
		),
		validationFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notify_relay",
				Name:      "validation_failures_total",
				Help:      "Total number of rejected notify requests.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.backendWritesTotal,
		m.backendWriteDuration,
		m.backendSessionsInflight,
		m.validationFailuresTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) ObserveBackendWrite(system string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	statusLabel := strings.TrimSpace(strings.ToLower(status))
	if statusLabel == "" {
		statusLabel = "unknown"
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.backendWritesTotal.WithLabelValues(normalizeSystem(system), statusLabel).Inc()
	m.backendWriteDuration.WithLabelValues(normalizeSystem(system)).Observe(seconds)
}

func (m *Metrics) IncSessionInFlight(system string) {
	if m == nil {
		return
	}
	m.backendSessionsInflight.WithLabelValues(normalizeSystem(system)).Inc()
}

func (m *Metrics) DecSessionInFlight(system string) {
	if m == nil {
		return
	}
	m.backendSessionsInflight.WithLabelValues(normalizeSystem(system)).Dec()
}

func (m *Metrics) IncValidationFailure() {
	if m == nil {
		return
	}
	m.validationFailuresTotal.Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeSystem(system string) string {
	normalized := strings.ToLower(strings.TrimSpace(system))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
