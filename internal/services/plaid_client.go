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

	"github.com/cenkalti/backoff/v4"
)

var ErrProviderNotConfigured = errors.New("bank data provider is not configured")

const (
	plaidOperationLinkToken = "link_token_create"
	plaidOperationExchange  = "public_token_exchange"
	plaidOperationSync      = "transactions_sync"

	maxSyncPages        = 10
	syncPageSize        = 100
	maxPlaidBodyBytes   = 4 << 20
	defaultPlaidTimeout = 20 * time.Second
)

// ProviderError is a non-2xx answer from Plaid.
type ProviderError struct {
	Operation  string
	StatusCode int
	ErrorType  string
	ErrorCode  string
	Message    string
	RequestID  string
}

func (e *ProviderError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("plaid %s failed (%d %s): %s", e.Operation, e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("plaid %s failed (%d): %s", e.Operation, e.StatusCode, e.Message)
}

// IsInvalidCredential reports whether Plaid rejected the request input, e.g. an
// expired public token or a revoked access token.
func (e *ProviderError) IsInvalidCredential() bool {
	return e.StatusCode == http.StatusBadRequest
}

func (e *ProviderError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  15 * time.Second,
	}
}

type PlaidClientOption func(*PlaidClient)

func WithPlaidBaseURL(baseURL string) PlaidClientOption {
	return func(c *PlaidClient) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithPlaidHTTPClient(client *http.Client) PlaidClientOption {
	return func(c *PlaidClient) {
		c.client = client
	}
}

func WithPlaidRetryConfig(retry RetryConfig) PlaidClientOption {
	return func(c *PlaidClient) {
		c.retry = retry
	}
}

// PlaidClient implements the three Plaid endpoints the service uses over plain REST.
type PlaidClient struct {
	config      config.PlaidConfig
	baseURL     string
	client      *http.Client
	retry       RetryConfig
	auditLogger AuditLoggerInterface
	metrics     MetricsRecorderInterface
	logger      *slog.Logger
}

func NewPlaidClient(
	cfg config.PlaidConfig,
	auditLogger AuditLoggerInterface,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
	opts ...PlaidClientOption,
) BankDataProviderInterface {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPlaidTimeout
	}

	retry := DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries

	c := &PlaidClient{
		config:      cfg,
		baseURL:     cfg.BaseURL(),
		client:      &http.Client{Timeout: timeout},
		retry:       retry,
		auditLogger: auditLogger,
		metrics:     metrics,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *PlaidClient) Enabled() bool {
	return c.config.Enabled()
}

func (c *PlaidClient) CreateLinkToken(ctx context.Context, clientUserID string) (*dto.PlaidLinkTokenCreateResponse, error) {
	if !c.Enabled() {
		return nil, ErrProviderNotConfigured
	}

	req := dto.PlaidLinkTokenCreateRequest{
		ClientName:   c.config.ClientName,
		Language:     c.config.Language,
		CountryCodes: c.config.CountryCodes,
		User:         dto.PlaidUser{ClientUserID: clientUserID},
		Products:     c.config.Products,
	}

	var resp dto.PlaidLinkTokenCreateResponse
	if err := c.post(ctx, plaidOperationLinkToken, "/link/token/create", req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *PlaidClient) ExchangePublicToken(ctx context.Context, publicToken string) (*dto.PlaidPublicTokenExchangeResponse, error) {
	if !c.Enabled() {
		return nil, ErrProviderNotConfigured
	}

	var resp dto.PlaidPublicTokenExchangeResponse
	err := c.post(ctx, plaidOperationExchange, "/item/public_token/exchange",
		dto.PlaidPublicTokenExchangeRequest{PublicToken: publicToken}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.AccessToken == "" {
		return nil, fmt.Errorf("plaid %s returned no access token", plaidOperationExchange)
	}

	return &resp, nil
}

// SyncTransactions pages through /transactions/sync from an empty cursor and
// returns the added transactions. At most maxSyncPages pages are read.
func (c *PlaidClient) SyncTransactions(ctx context.Context, accessToken string) ([]models.Transaction, error) {
	if !c.Enabled() {
		return nil, ErrProviderNotConfigured
	}

	var transactions []models.Transaction
	cursor := ""

	for page := 0; page < maxSyncPages; page++ {
		var resp dto.PlaidTransactionsSyncResponse
		err := c.post(ctx, plaidOperationSync, "/transactions/sync", dto.PlaidTransactionsSyncRequest{
			AccessToken: accessToken,
			Cursor:      cursor,
			Count:       syncPageSize,
		}, &resp)
		if err != nil {
			return nil, err
		}

		for _, pt := range resp.Added {
			tx, err := toTransaction(pt)
			if err != nil {
				c.logger.WarnContext(ctx, "skipping invalid plaid transaction",
					"transaction_id", pt.TransactionID,
					"error", err,
				)
				continue
			}
			transactions = append(transactions, tx)
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return transactions, nil
		}
		cursor = resp.NextCursor
	}

	c.logger.WarnContext(ctx, "plaid sync stopped at page limit", "pages", maxSyncPages)
	return transactions, nil
}

func toTransaction(pt dto.PlaidTransaction) (models.Transaction, error) {
	date, err := models.ParseDate(pt.Date)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("date %q: %w", pt.Date, err)
	}

	name := pt.Name
	if name == "" {
		name = pt.MerchantName
	}

	return models.Transaction{
		TransactionID: pt.TransactionID,
		AccountID:     pt.AccountID,
		Date:          date,
		Name:          name,
		Amount:        pt.Amount,
		Category:      pt.Category,
		Pending:       pt.Pending,
	}, nil
}

// post sends a JSON request, retrying transport errors, 429 and 5xx with exponential backoff.
func (c *PlaidClient) post(ctx context.Context, operation, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	start := time.Now()
	attempt := 0

	op := func() error {
		attempt++
		respBody, err := c.do(ctx, operation, path, payload)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode plaid %s response: %w", operation, err))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.metrics.IncrementCounter(MetricProviderRetry, map[string]string{"operation": operation})
		c.auditLogger.LogProviderRetry(ctx, operation, attempt, wait.Milliseconds(), err.Error())
	}

	err = backoff.RetryNotify(op, c.backoff(ctx), notify)

	c.metrics.RecordProcessingTime(MetricProviderRequest, time.Since(start))
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.IncrementCounter(MetricProviderRequest, map[string]string{"operation": operation, "status": status})

	return err
}

func (c *PlaidClient) backoff(ctx context.Context) backoff.BackOff {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.retry.InitialInterval
	expBackoff.MaxInterval = c.retry.MaxInterval
	expBackoff.Multiplier = c.retry.Multiplier
	expBackoff.MaxElapsedTime = c.retry.MaxElapsedTime

	maxRetries := c.retry.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(maxRetries)), ctx)
}

// do performs a single attempt. Errors that must not be retried are wrapped in backoff.Permanent.
func (c *PlaidClient) do(ctx context.Context, operation, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PLAID-CLIENT-ID", c.config.ClientID)
	req.Header.Set("PLAID-SECRET", c.config.Secret)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(fmt.Errorf("plaid %s: %w", operation, err))
		}
		return nil, fmt.Errorf("plaid %s: %w", operation, err)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaidBodyBytes))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read plaid %s response: %w", operation, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		providerErr := newProviderError(operation, resp.StatusCode, respBody)
		c.logger.WarnContext(ctx, "plaid error response",
			"operation", operation,
			"status", resp.StatusCode,
			"error_code", providerErr.ErrorCode,
			"request_id", providerErr.RequestID,
		)
		if providerErr.retryable() {
			return nil, providerErr
		}
		return nil, backoff.Permanent(providerErr)
	}

	return respBody, nil
}

func newProviderError(operation string, statusCode int, body []byte) *ProviderError {
	providerErr := &ProviderError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    truncate(string(body), 200),
	}

	var errResp dto.PlaidErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.ErrorCode != "" {
		providerErr.ErrorType = errResp.ErrorType
		providerErr.ErrorCode = errResp.ErrorCode
		providerErr.Message = errResp.ErrorMessage
		providerErr.RequestID = errResp.RequestID
	}

	return providerErr
}
