package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nexusmc-api/internal/config"
	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/models"
)

const (
	huggingFaceService      = "huggingface"
	maxInferenceBodyBytes   = 1 << 20
	defaultInferenceTimeout = 15 * time.Second
)

type AuthTransport struct {
	apiKey string
	base   http.RoundTripper
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return t.base.RoundTrip(req)
}

// HuggingFaceClassifier calls the zero-shot classification inference API.
// It is safe for concurrent use; the circuit breaker is the only shared mutable state.
type HuggingFaceClassifier struct {
	config  config.HuggingFaceConfig
	client  *http.Client
	breaker CircuitBreakerInterface
	metrics MetricsRecorderInterface
	logger  *slog.Logger
}

func NewHuggingFaceClassifier(
	cfg config.HuggingFaceConfig,
	auditLogger AuditLoggerInterface,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
) ClassifierInterface {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultInferenceTimeout
	}
	if cfg.ModelURL == "" {
		cfg.ModelURL = config.DefaultHuggingFaceModelURL
	}

	breakerConfig := DefaultCircuitBreakerConfig()
	if cfg.BreakerMaxFail > 0 {
		breakerConfig.FailureThreshold = cfg.BreakerMaxFail
	}
	if cfg.BreakerReset > 0 {
		breakerConfig.OpenTimeout = cfg.BreakerReset
	}
	breakerConfig.OnStateChange = func(from, to models.CircuitBreakerState) {
		auditLogger.LogCircuitBreakerStateChange(context.Background(), huggingFaceService, from.String(), to.String())
		metrics.RecordGauge(MetricCircuitBreakerState, float64(to), map[string]string{"service": huggingFaceService})
	}

	client := &http.Client{
		Transport: &AuthTransport{
			apiKey: cfg.APIKey,
			base:   http.DefaultTransport,
		},
	}

	return &HuggingFaceClassifier{
		config:  cfg,
		client:  client,
		breaker: NewCircuitBreaker(breakerConfig),
		metrics: metrics,
		logger:  logger,
	}
}

// Classify never retries; every failure is reported as an outcome, not an error.
func (s *HuggingFaceClassifier) Classify(ctx context.Context, description string) models.ClassificationOutcome {
	if s.config.APIKey == "" {
		return models.ClassificationFailure(models.FailureMissingCredential, errors.New("hugging face api key is not configured"))
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return models.ClassificationFailure(models.FailureEmptyDescription, nil)
	}

	if err := s.breaker.Allow(); err != nil {
		return models.ClassificationFailure(models.FailureCircuitOpen, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	outcome := s.classify(callCtx, description)
	s.metrics.RecordProcessingTime(MetricClassificationDuration, time.Since(start))

	// A caller that went away says nothing about the upstream's health.
	switch {
	case !outcome.Succeeded() && ctx.Err() != nil:
		s.breaker.Release()
	case outcome.Reason == models.FailureTransport,
		outcome.Reason == models.FailureTimeout,
		outcome.Reason == models.FailureHTTPStatus:
		s.breaker.Report(true)
	default:
		s.breaker.Report(false)
	}

	return outcome
}

func (s *HuggingFaceClassifier) classify(ctx context.Context, description string) models.ClassificationOutcome {
	req, err := s.buildRequest(ctx, dto.ZeroShotRequest{
		Inputs: description,
		Parameters: dto.ZeroShotParameters{
			CandidateLabels: models.CandidateLabelStrings(),
			MultiLabel:      false,
		},
		Options: dto.InferenceOptions{WaitForModel: true},
	})
	if err != nil {
		return models.ClassificationFailure(models.FailureTransport, err)
	}

	resp, body, err := s.do(req)
	if err != nil {
		if isTimeout(err) {
			return models.ClassificationFailure(models.FailureTimeout, err)
		}
		return models.ClassificationFailure(models.FailureTransport, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return models.ClassificationFailure(models.FailureHTTPStatus,
			fmt.Errorf("unexpected inference response (%d): %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var result dto.ZeroShotResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return models.ClassificationFailure(models.FailureMalformedResponse, fmt.Errorf("decode inference response: %w", err))
	}
	if len(result.Labels) == 0 {
		return models.ClassificationFailure(models.FailureMalformedResponse, errors.New("inference response has no labels"))
	}

	label, ok := models.ParseCategoryLabel(result.Labels[0])
	if !ok {
		return models.ClassificationFailure(models.FailureUnknownLabel, fmt.Errorf("label %q is not a known category", result.Labels[0]))
	}

	return models.ClassificationSuccess(label)
}

func (s *HuggingFaceClassifier) buildRequest(ctx context.Context, body dto.ZeroShotRequest) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.ModelURL, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return req, nil
}

func (s *HuggingFaceClassifier) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug(
			"inference request failed",
			"url", req.URL.String(),
			"error", err,
		)
		return nil, nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxInferenceBodyBytes))
	resp.Body.Close()

	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}

	return resp, body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
