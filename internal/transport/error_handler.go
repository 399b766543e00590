package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/notify-relay/internal/domain"
	"github.com/kursadbilgin/notify-relay/internal/observability"
	"go.uber.org/zap"
)

const internalErrorMessage = "Internal server error"

// ErrorHandler renders handler errors. Validation failures carry their
// violation list, fiber errors their message, and anything else a generic 500
// whose detail only goes to the log.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx, err error) error {
		requestID, _ := c.Locals("requestid").(string)
		reqLogger := observability.ForRequest(logger, c.Method(), c.Path(), requestID)

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			reqLogger.Error("validation failed", zap.Any("errors", validationErr.Violations))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": validationErr.Violations,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			reqLogger.Error("request error", zap.Int("status", fiberErr.Code), zap.Error(err))
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiberErr.Message,
			})
		}

		reqLogger.Error("unexpected error", zap.Int("status", fiber.StatusInternalServerError), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": internalErrorMessage,
		})
	}
}
