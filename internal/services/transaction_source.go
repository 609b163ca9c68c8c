package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nexusmc-api/internal/models"
)

const mockAccountID = "mock_acc"

// MockTransactions returns the fixed demo transactions dated relative to today.
func MockTransactions(today models.Date) []models.Transaction {
	daysAgo := func(n int) models.Date {
		return models.NewDate(today.AddDate(0, 0, -n))
	}

	return []models.Transaction{
		{
			TransactionID: "mock_1",
			AccountID:     mockAccountID,
			Date:          daysAgo(1),
			Name:          "Mock Cafe Visit",
			Amount:        12.50,
			Category:      []string{"Food and Drink", "Restaurants"},
		},
		{
			TransactionID: "mock_2",
			AccountID:     mockAccountID,
			Date:          daysAgo(2),
			Name:          "Mock Subway Card",
			Amount:        35.00,
			Category:      []string{"Travel", "Public Transportation"},
		},
		{
			TransactionID: "mock_3",
			AccountID:     mockAccountID,
			Date:          daysAgo(3),
			Name:          "Mock Salary Deposit",
			Amount:        -500.00,
			Category:      []string{"Transfer", "Payroll"},
		},
	}
}

// TransactionSource fetches a user's transactions from the bank-data provider and
// substitutes the mock list whenever live data is unavailable.
type TransactionSource struct {
	provider    BankDataProviderInterface
	cipher      TokenCipherInterface
	auditLogger AuditLoggerInterface
	logger      *slog.Logger
	now         func() time.Time
}

func NewTransactionSource(
	provider BankDataProviderInterface,
	cipher TokenCipherInterface,
	auditLogger AuditLoggerInterface,
	logger *slog.Logger,
) TransactionSourceInterface {
	return &TransactionSource{
		provider:    provider,
		cipher:      cipher,
		auditLogger: auditLogger,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *TransactionSource) Fetch(ctx context.Context, user *models.User) *models.TransactionBatch {
	if !s.provider.Enabled() {
		s.logger.DebugContext(ctx, "bank provider not configured, serving mock transactions", "user_id", user.ID)
		return s.mockBatch(models.ProvenanceMock)
	}

	if !user.HasLinkedBank() {
		s.logger.DebugContext(ctx, "user has no linked bank, serving mock transactions", "user_id", user.ID)
		return s.mockBatch(models.ProvenanceMock)
	}

	transactions, err := s.fetchLive(ctx, *user.PlaidAccessToken)
	if err != nil {
		s.auditLogger.LogProviderFallback(ctx, user.ID, models.ProvenanceFallback, err.Error())
		return s.mockBatch(models.ProvenanceFallback)
	}

	if transactions == nil {
		transactions = []models.Transaction{}
	}

	return &models.TransactionBatch{
		Transactions: transactions,
		AccountName:  models.LiveAccountName,
		Provenance:   models.ProvenanceLive,
	}
}

func (s *TransactionSource) fetchLive(ctx context.Context, encryptedToken string) ([]models.Transaction, error) {
	accessToken, err := s.cipher.Decrypt(encryptedToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}

	transactions, err := s.provider.SyncTransactions(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("sync transactions: %w", err)
	}

	return transactions, nil
}

func (s *TransactionSource) mockBatch(provenance models.Provenance) *models.TransactionBatch {
	return &models.TransactionBatch{
		Transactions: MockTransactions(models.NewDate(s.now())),
		AccountName:  models.MockAccountName,
		Provenance:   provenance,
	}
}
