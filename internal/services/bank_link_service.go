package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/models"
	"nexusmc-api/internal/repositories"

	"github.com/google/uuid"
)

var ErrAccessTokenEncryption = errors.New("failed to secure access token")

const accessTokenSetMessage = "Access token set successfully"

// BankLinkService links a user to the bank-data provider and stores the resulting
// access token encrypted.
type BankLinkService struct {
	userRepo     repositories.UserRepositoryInterface
	provider     BankDataProviderInterface
	cipher       TokenCipherInterface
	source       TransactionSourceInterface
	auditService AuditServiceInterface
	metrics      MetricsRecorderInterface
	logger       *slog.Logger
}

func NewBankLinkService(
	userRepo repositories.UserRepositoryInterface,
	provider BankDataProviderInterface,
	cipher TokenCipherInterface,
	source TransactionSourceInterface,
	auditService AuditServiceInterface,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
) BankLinkServiceInterface {
	return &BankLinkService{
		userRepo:     userRepo,
		provider:     provider,
		cipher:       cipher,
		source:       source,
		auditService: auditService,
		metrics:      metrics,
		logger:       logger,
	}
}

func (s *BankLinkService) CreateLinkToken(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*dto.LinkTokenResponse, error) {
	if !s.provider.Enabled() {
		return nil, ErrProviderNotConfigured
	}

	resp, err := s.provider.CreateLinkToken(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create link token: %w", err)
	}

	if err := s.auditService.LogLinkTokenCreated(userID, ipAddress, userAgent); err != nil {
		s.logger.WarnContext(ctx, "failed to audit link token creation", "user_id", userID, "error", err)
	}

	return &dto.LinkTokenResponse{
		LinkToken:  resp.LinkToken,
		Expiration: resp.Expiration,
	}, nil
}

// SetAccessToken exchanges a Link public token and stores the access token encrypted.
// Provider rejections are returned as *ProviderError.
func (s *BankLinkService) SetAccessToken(ctx context.Context, userID uuid.UUID, publicToken, ipAddress, userAgent string) (*dto.SetAccessTokenResponse, error) {
	if !s.provider.Enabled() {
		return nil, ErrProviderNotConfigured
	}

	exchange, err := s.provider.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange public token: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(exchange.AccessToken)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encrypt access token", "user_id", userID, "error", err)
		return nil, ErrAccessTokenEncryption
	}

	if err := s.userRepo.UpdateBankLink(userID, encrypted, exchange.ItemID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}

	s.metrics.IncrementCounter(MetricBankLinked, nil)
	if err := s.auditService.LogBankLinked(userID, exchange.ItemID, ipAddress, userAgent); err != nil {
		s.logger.WarnContext(ctx, "failed to audit bank link", "user_id", userID, "error", err)
	}

	return &dto.SetAccessTokenResponse{
		Message: accessTokenSetMessage,
		ItemID:  exchange.ItemID,
	}, nil
}

func (s *BankLinkService) GetTransactions(ctx context.Context, user *models.User) *models.TransactionBatch {
	return s.source.Fetch(ctx, user)
}
