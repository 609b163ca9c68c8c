package services

import (
	"context"
	"log/slog"

	"nexusmc-api/internal/models"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency caps in-flight classifier calls when no positive limit is given.
const DefaultMaxConcurrency = 8

// Categorizer turns classifier outcomes into labels. Failures are logged, counted
// and collapsed to Other, so neither method can fail.
type Categorizer struct {
	classifier     ClassifierInterface
	auditLogger    AuditLoggerInterface
	metrics        MetricsRecorderInterface
	logger         *slog.Logger
	maxConcurrency int
}

func NewCategorizer(
	classifier ClassifierInterface,
	auditLogger AuditLoggerInterface,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
	maxConcurrency int,
) CategorizerInterface {
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency
	}

	return &Categorizer{
		classifier:     classifier,
		auditLogger:    auditLogger,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

func (c *Categorizer) Categorize(ctx context.Context, description string) models.CategoryLabel {
	outcome := c.classifier.Classify(ctx, description)

	if outcome.Succeeded() {
		c.metrics.IncrementCounter(MetricClassificationOutcome, map[string]string{
			"status": "success",
			"reason": "",
		})
		return outcome.Label
	}

	c.metrics.IncrementCounter(MetricClassificationOutcome, map[string]string{
		"status": "failure",
		"reason": string(outcome.Reason),
	})

	errorMsg := ""
	if outcome.Err != nil {
		errorMsg = outcome.Err.Error()
	}
	c.auditLogger.LogClassificationFailed(ctx, outcome.Reason, errorMsg)

	return models.CategoryOther
}

// CategorizeExpenses classifies the expense subsequence of transactions.
// The result has one label per expense, in input order.
func (c *Categorizer) CategorizeExpenses(ctx context.Context, transactions []models.Transaction) []models.CategoryLabel {
	expenses := models.Expenses(transactions)
	labels := make([]models.CategoryLabel, len(expenses))
	if len(expenses) == 0 {
		return labels
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)

	for i, tx := range expenses {
		g.Go(func() error {
			labels[i] = c.Categorize(gctx, tx.Name)
			return nil
		})
	}

	// Categorize never fails, so Wait is only the fan-in barrier.
	_ = g.Wait()

	c.logger.DebugContext(ctx, "categorized expenses",
		"expenses", len(expenses),
		"max_concurrency", c.maxConcurrency,
	)

	return labels
}
