package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/kursadbilgin/notify-relay/internal/handler"
	"github.com/kursadbilgin/notify-relay/internal/observability"
	"github.com/kursadbilgin/notify-relay/internal/ratelimit"
	"github.com/kursadbilgin/notify-relay/internal/transport"
	"go.uber.org/zap"
)

const (
	appName         = "notify-relay"
	notifyRateLimit = "notifyme"
)

// Deps are the collaborators the HTTP surface is built from. Metrics and
// Limiter are optional.
type Deps struct {
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Limiter      ratelimit.RateLimiter
	Notify       *handler.NotifyHandler
	HealthChecks map[string]handler.HealthCheck
}

// NewApp builds the fiber app: health probes, /metrics and the notify route.
func NewApp(deps Deps) (*fiber.App, error) {
	if deps.Notify == nil {
		return nil, fmt.Errorf("notify handler is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	if deps.Metrics != nil {
		app.Use(deps.Metrics.HTTPMiddleware())
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	handler.RegisterHealthRoutes(app, deps.HealthChecks)

	deps.Notify.SetMetrics(deps.Metrics)
	app.Use("/work", ratelimit.Middleware(deps.Limiter, notifyRateLimit, logger))
	if err := handler.RegisterNotifyRoutes(app, deps.Notify); err != nil {
		return nil, err
	}

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not found")
	})

	return app, nil
}
