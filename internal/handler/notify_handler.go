package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/notify-relay/internal/domain"
	"github.com/kursadbilgin/notify-relay/internal/observability"
)

type RelayService interface {
	Notify(ctx context.Context, req domain.NotificationRequest, rawBody []byte) ([]domain.BackendResult, error)
}

type NotifyHandler struct {
	service   RelayService
	validator *domain.RequestValidator
	metrics   *observability.Metrics
}

func NewNotifyHandler(service RelayService, validator *domain.RequestValidator) (*NotifyHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("relay service is required")
	}
	if validator == nil {
		return nil, fmt.Errorf("request validator is required")
	}
	return &NotifyHandler{service: service, validator: validator}, nil
}

func (h *NotifyHandler) SetMetrics(metrics *observability.Metrics) {
	if h == nil {
		return
	}
	h.metrics = metrics
}

func RegisterNotifyRoutes(router fiber.Router, h *NotifyHandler) error {
	if h == nil {
		return fmt.Errorf("notify handler is required")
	}

	work := router.Group("/work")
	work.Post("/notifyme", h.Notify)

	return nil
}

type notifyResponse struct {
	Results []backendResultResponse `json:"results"`
}

type backendResultResponse struct {
	System string  `json:"system"`
	Status string  `json:"status"`
	LogID  *int64  `json:"log_id,omitempty"`
	Error  *string `json:"error,omitempty"`
}

// Notify validates the body and fans it out. Per-backend failures still
// answer 200; the error handler renders validation and unexpected errors.
func (h *NotifyHandler) Notify(c *fiber.Ctx) error {
	// fiber reuses the request buffer once the handler returns.
	rawBody := append([]byte(nil), c.Body()...)

	req, err := h.validator.Parse(rawBody)
	if err != nil {
		h.metrics.IncValidationFailure()
		return err
	}

	results, err := h.service.Notify(requestContext(c), req, rawBody)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(notifyResponse{
		Results: toBackendResultResponses(results),
	})
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if requestID, ok := c.Locals("requestid").(string); ok && requestID != "" {
		ctx = observability.WithRequestID(ctx, requestID)
	}
	return ctx
}

func toBackendResultResponses(results []domain.BackendResult) []backendResultResponse {
	responses := make([]backendResultResponse, 0, len(results))
	for _, result := range results {
		r := backendResultResponse{
			System: result.System.String(),
			Status: result.Status.String(),
		}
		if result.Succeeded() {
			logID := result.LogID
			r.LogID = &logID
		} else {
			msg := result.Error
			r.Error = &msg
		}
		responses = append(responses, r)
	}
	return responses
}
