package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsBackendCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.ObserveBackendWrite("SYSTEM1", "success", 15*time.Millisecond)
	metrics.ObserveBackendWrite("system2", "error", 40*time.Millisecond)
	metrics.ObserveBackendWrite("system2", "", -time.Second)
	metrics.IncSessionInFlight("system1")
	metrics.DecSessionInFlight("system1")
	metrics.IncValidationFailure()

	if got := testutil.ToFloat64(metrics.backendWritesTotal.WithLabelValues("system1", "success")); got != 1 {
		t.Fatalf("backend_writes_total{system1,success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.backendWritesTotal.WithLabelValues("system2", "error")); got != 1 {
		t.Fatalf("backend_writes_total{system2,error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.backendWritesTotal.WithLabelValues("system2", "unknown")); got != 1 {
		t.Fatalf("backend_writes_total{system2,unknown} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.backendSessionsInflight.WithLabelValues("system1")); got != 0 {
		t.Fatalf("backend_sessions_inflight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.validationFailuresTotal); got != 1 {
		t.Fatalf("validation_failures_total = %v, want 1", got)
	}
}

func TestMetricsNilReceiverIsNoop(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.ObserveBackendWrite("system1", "success", time.Millisecond)
	metrics.IncSessionInFlight("system1")
	metrics.DecSessionInFlight("system1")
	metrics.IncValidationFailure()

	if metrics.Handler() == nil {
		t.Fatal("Handler() should fall back to the default handler")
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Post("/work/notifyme", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("POST", "/work/notifyme", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("POST", "/work/notifyme", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
