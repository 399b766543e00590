package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kursadbilgin/notify-relay/internal/domain"
	"github.com/kursadbilgin/notify-relay/internal/observability"
	"github.com/kursadbilgin/notify-relay/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// successResponsePayload is what api_logs records as the response of a write.
const successResponsePayload = `{"success":true}`

type RelayOptions struct {
	// Concurrent writes to every target at once instead of one after another.
	Concurrent bool
	// IsolateAcquireFailures reports a failed session acquisition as that
	// backend's error entry. When false the whole request fails.
	IsolateAcquireFailures bool
}

// RelayService fans a notification out to independent backends, each written
// in its own transaction.
type RelayService struct {
	backends map[domain.System]repository.Backend
	logger   *zap.Logger
	metrics  *observability.Metrics
	opts     RelayOptions
	now      func() time.Time
}

func NewRelayService(backends []repository.Backend, opts RelayOptions, logger *zap.Logger) (*RelayService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := make(map[domain.System]repository.Backend, len(backends))
	for _, b := range backends {
		if b == nil {
			return nil, fmt.Errorf("backend is required")
		}
		system := b.System()
		if !system.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, string(system))
		}
		if _, exists := registry[system]; exists {
			return nil, fmt.Errorf("duplicate backend %s", system)
		}
		registry[system] = b
	}

	return &RelayService{
		backends: registry,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}, nil
}

func (s *RelayService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Notify writes req to every backend in its target set and returns one result
// per target, in target order. A backend failure is reported in its result
// entry; only faults outside a backend transaction are returned as errors.
func (s *RelayService) Notify(ctx context.Context, req domain.NotificationRequest, rawBody []byte) ([]domain.BackendResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	targets := req.TargetSystem.TargetSet()
	backends := make([]repository.Backend, 0, len(targets))
	for _, system := range targets {
		backend, ok := s.backends[system]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not configured", domain.ErrUnknownBackend, system)
		}
		backends = append(backends, backend)
	}

	payload := requestPayload(rawBody)
	if s.opts.Concurrent {
		return s.fanOutConcurrent(ctx, backends, req, payload)
	}
	return s.fanOutSequential(ctx, backends, req, payload)
}

func (s *RelayService) fanOutSequential(
	ctx context.Context,
	backends []repository.Backend,
	req domain.NotificationRequest,
	payload string,
) ([]domain.BackendResult, error) {
	results := make([]domain.BackendResult, 0, len(backends))
	for _, backend := range backends {
		result, err := s.write(ctx, backend, req, payload)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// fanOutConcurrent runs one goroutine per backend. Each goroutine owns its
// slot in results, so ordering follows backends.
func (s *RelayService) fanOutConcurrent(
	ctx context.Context,
	backends []repository.Backend,
	req domain.NotificationRequest,
	payload string,
) ([]domain.BackendResult, error) {
	results := make([]domain.BackendResult, len(backends))

	var g errgroup.Group
	for i, backend := range backends {
		g.Go(func() error {
			result, err := s.write(ctx, backend, req, payload)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *RelayService) write(
	ctx context.Context,
	backend repository.Backend,
	req domain.NotificationRequest,
	payload string,
) (domain.BackendResult, error) {
	system := backend.System()
	logger := observability.ForBackend(s.logger, ctx, system.String())
	start := s.now()

	session, err := backend.Acquire(ctx)
	if err != nil {
		if !s.opts.IsolateAcquireFailures {
			return domain.BackendResult{}, fmt.Errorf("%s: %w", system, err)
		}
		logger.Error("backend session acquisition failed", zap.Error(err))
		s.metrics.ObserveBackendWrite(system.String(), domain.ResultError.String(), s.now().Sub(start))
		return domain.ErrorResult(system, err), nil
	}

	s.metrics.IncSessionInFlight(system.String())
	defer func() {
		s.metrics.DecSessionInFlight(system.String())
		if err := session.Release(); err != nil {
			logger.Warn("failed to release backend session", zap.Error(err))
		}
	}()

	logID, err := s.runTransaction(ctx, session, req, payload, logger)
	if err != nil {
		logger.Error("backend transaction failed", zap.Error(err))
		s.metrics.ObserveBackendWrite(system.String(), domain.ResultError.String(), s.now().Sub(start))
		return domain.ErrorResult(system, err), nil
	}

	s.metrics.ObserveBackendWrite(system.String(), domain.ResultSuccess.String(), s.now().Sub(start))
	return domain.SuccessResult(system, logID), nil
}

// runTransaction inserts the notification check and then the api log. It
// commits only when both inserts succeed and rolls back otherwise.
func (s *RelayService) runTransaction(
	ctx context.Context,
	session repository.Session,
	req domain.NotificationRequest,
	payload string,
	logger *zap.Logger,
) (int64, error) {
	tx, err := session.Begin(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	check := &domain.NotificationCheck{
		DmID:        req.DmID,
		NotifyCheck: req.NotifyCheck,
		CrDate:      now,
		UpdateDate:  now,
	}
	if err := tx.InsertNotificationCheck(ctx, check); err != nil {
		rollback(tx, logger)
		return 0, err
	}

	apiLog := &domain.APILog{
		Endpoint:        domain.NotifyEndpoint,
		Method:          domain.NotifyMethod,
		RequestPayload:  payload,
		ResponsePayload: successResponsePayload,
		StatusCode:      http.StatusOK,
		CreatedAt:       now,
	}
	if err := tx.InsertAPILog(ctx, apiLog); err != nil {
		rollback(tx, logger)
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		rollback(tx, logger)
		return 0, err
	}

	return apiLog.ID, nil
}

func rollback(tx repository.Tx, logger *zap.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Warn("transaction rollback failed", zap.Error(err))
	}
}

func requestPayload(rawBody []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, rawBody); err != nil {
		return string(rawBody)
	}
	return buf.String()
}
