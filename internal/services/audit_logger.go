package services

import (
	"context"
	"log/slog"
	"time"

	"nexusmc-api/internal/models"

	"github.com/google/uuid"
)

// RequestIDContextKey carries the trace ID in request contexts.
type RequestIDContextKey struct{}

// AuditLogger emits the pipeline's operational events as structured log lines.
// Every line carries event_type, timestamp and the request's correlation_id.
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditLogger(logger *slog.Logger) AuditLoggerInterface {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger, now: time.Now}
}

func (al *AuditLogger) emit(ctx context.Context, level slog.Level, msg, eventType string, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("event_type", eventType),
		slog.Time("timestamp", al.now()),
		slog.String("correlation_id", correlationID(ctx)),
	)
	al.logger.LogAttrs(ctx, level, msg, attrs...)
}

func (al *AuditLogger) LogClassificationFailed(ctx context.Context, reason models.FailureReason, errorMsg string) {
	al.emit(ctx, slog.LevelWarn, "transaction classification failed", "classification_failed",
		slog.String("reason", string(reason)),
		slog.String("error", errorMsg),
	)
}

func (al *AuditLogger) LogCircuitBreakerStateChange(ctx context.Context, service string, oldState, newState string) {
	al.emit(ctx, slog.LevelWarn, "circuit breaker state change", "circuit_breaker_state_change",
		slog.String("service", service),
		slog.String("old_state", oldState),
		slog.String("new_state", newState),
	)
}

func (al *AuditLogger) LogProviderRetry(ctx context.Context, operation string, attempt int, backoffMs int64, errorMsg string) {
	al.emit(ctx, slog.LevelInfo, "bank provider retry attempt", "provider_retry",
		slog.String("operation", operation),
		slog.Int("attempt", attempt),
		slog.Int64("backoff_ms", backoffMs),
		slog.String("error", errorMsg),
	)
}

// LogProviderFallback is a warning when a live fetch failed and info when the user simply has no bank linked.
func (al *AuditLogger) LogProviderFallback(ctx context.Context, userID uuid.UUID, provenance models.Provenance, errorMsg string) {
	attrs := []slog.Attr{
		slog.String("user_id", userID.String()),
		slog.String("provenance", provenance.String()),
	}
	level := slog.LevelInfo
	if errorMsg != "" {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", errorMsg))
	}
	al.emit(ctx, level, "using mock transactions", "provider_fallback", attrs...)
}

func (al *AuditLogger) LogDashboardBuilt(ctx context.Context, userID uuid.UUID, provenance models.Provenance, transactionCount int, durationMs int64) {
	al.emit(ctx, slog.LevelInfo, "dashboard built", "dashboard_built",
		slog.String("user_id", userID.String()),
		slog.String("provenance", provenance.String()),
		slog.Int("transaction_count", transactionCount),
		slog.Int64("duration_ms", durationMs),
	)
}

func correlationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDContextKey{}).(string)
	return id
}
