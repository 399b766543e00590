package observability

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys shared by every relay log line.
const (
	FieldService   = "service"
	FieldRequestID = "requestId"
	FieldSystem    = "system"
	FieldMethod    = "method"
	FieldPath      = "path"
)

const serviceName = "notify-relay"

type requestIDKey struct{}

// NewLogger builds the JSON production logger. An empty level means info.
func NewLogger(level string) (*zap.Logger, error) {
	lvl := strings.TrimSpace(level)
	if lvl == "" {
		lvl = zapcore.InfoLevel.String()
	}
	parsed, err := zapcore.ParseLevel(strings.ToLower(lvl))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	cfg.InitialFields = map[string]any{FieldService: serviceName}

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	return requestID, ok && requestID != ""
}

// ForRequest scopes logger to one inbound HTTP request.
func ForRequest(logger *zap.Logger, method string, path string, requestID string) *zap.Logger {
	fields := []zap.Field{
		zap.String(FieldMethod, method),
		zap.String(FieldPath, path),
	}
	if requestID != "" {
		fields = append(fields, zap.String(FieldRequestID, requestID))
	}
	return orNop(logger).With(fields...)
}

// ForBackend scopes logger to the write on one backend, keeping the request id
// carried by ctx so that every backend line of a request can be joined.
func ForBackend(logger *zap.Logger, ctx context.Context, system string) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if requestID, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, zap.String(FieldRequestID, requestID))
	}
	fields = append(fields, zap.String(FieldSystem, system))
	return orNop(logger).With(fields...)
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
