package services

import (
	"context"
	"fmt"
	"time"

	"nexusmc-api/internal/config"
	"nexusmc-api/internal/models"
)

// DashboardService runs the source → categorizer → aggregator pipeline for one user.
type DashboardService struct {
	source      TransactionSourceInterface
	categorizer CategorizerInterface
	aggregator  AggregatorInterface
	auditLogger AuditLoggerInterface
	metrics     MetricsRecorderInterface
	timeout     time.Duration
}

func NewDashboardService(
	source TransactionSourceInterface,
	categorizer CategorizerInterface,
	aggregator AggregatorInterface,
	auditLogger AuditLoggerInterface,
	metrics MetricsRecorderInterface,
	cfg config.DashboardConfig,
) DashboardServiceInterface {
	return &DashboardService{
		source:      source,
		categorizer: categorizer,
		aggregator:  aggregator,
		auditLogger: auditLogger,
		metrics:     metrics,
		timeout:     cfg.Timeout,
	}
}

// Build degrades upstream problems to mock transactions or the Other category.
// It fails when the pipeline deadline or the caller's context ends before the
// expenses are categorized, and on an internal inconsistency.
func (s *DashboardService) Build(ctx context.Context, user *models.User) (*models.DashboardResult, error) {
	start := time.Now()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	batch := s.source.Fetch(ctx, user)
	categories := s.categorizer.CategorizeExpenses(ctx, batch.Transactions)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dashboard pipeline: %w", err)
	}

	summary, err := s.aggregator.Summarize(batch.Transactions, categories)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize spending: %w", err)
	}

	duration := time.Since(start)
	s.metrics.RecordProcessingTime(MetricDashboardBuild, duration)
	s.metrics.IncrementCounter(MetricDashboardProvenance, map[string]string{"provenance": batch.Provenance.String()})
	s.metrics.RecordGauge(MetricDashboardTransactions, float64(len(batch.Transactions)), nil)
	s.auditLogger.LogDashboardBuilt(ctx, user.ID, batch.Provenance, len(batch.Transactions), duration.Milliseconds())

	return &models.DashboardResult{
		Summary:    *summary,
		Provenance: batch.Provenance,
	}, nil
}
