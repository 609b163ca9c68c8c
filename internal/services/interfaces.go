package services

import (
	"context"
	"time"

	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/models"

	"github.com/google/uuid"
)

type AuthServiceInterface interface {
	Register(req *dto.RegisterRequest, ipAddress, userAgent string) (*models.User, error)
	Login(req *dto.TokenRequest, ipAddress, userAgent string) (*dto.TokenResponse, error)
	RefreshTokens(refreshToken, ipAddress, userAgent string) (*dto.TokenResponse, error)
	Logout(accessToken, ipAddress, userAgent string) error
}

type TokenServiceInterface interface {
	GenerateAccessToken(user *models.User) (string, time.Time, error)
	GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error)
	ValidateAccessToken(tokenString string) (*models.CustomClaims, error)
	ValidateRefreshToken(tokenString string) (*models.CustomClaims, error)
	ExtractTokenFromHeader(authHeader string) (string, error)
	GetJTI(tokenString string) (string, error)
	GetTokenExpiry(tokenString string) (time.Time, error)
}

type PasswordServiceInterface interface {
	ValidatePassword(password string) error
	HashPassword(password string) (string, error)
	ComparePassword(password, hash string) bool
}

// AuditServiceInterface records user-initiated changes outside the authentication flow
type AuditServiceInterface interface {
	CreateAuditLog(log *models.AuditLog) error
	GetUserActivity(userID uuid.UUID, offset, limit int) ([]*models.AuditLog, int64, error)
	LogProfileUpdate(userID uuid.UUID, ipAddress, userAgent string, changes map[string]interface{}) error
	LogLinkTokenCreated(userID uuid.UUID, ipAddress, userAgent string) error
	LogBankLinked(userID uuid.UUID, itemID, ipAddress, userAgent string) error
}

// AuditLoggerInterface writes structured operational events for the transaction pipeline
type AuditLoggerInterface interface {
	LogClassificationFailed(ctx context.Context, reason models.FailureReason, errorMsg string)
	LogCircuitBreakerStateChange(ctx context.Context, service string, oldState, newState string)
	LogProviderRetry(ctx context.Context, operation string, attempt int, backoffMs int64, errorMsg string)
	LogProviderFallback(ctx context.Context, userID uuid.UUID, provenance models.Provenance, errorMsg string)
	LogDashboardBuilt(ctx context.Context, userID uuid.UUID, provenance models.Provenance, transactionCount int, durationMs int64)
}

type MetricsRecorderInterface interface {
	IncrementCounter(name string, tags map[string]string)
	RecordProcessingTime(name string, duration time.Duration)
	RecordGauge(name string, value float64, tags map[string]string)
}

type CircuitBreakerInterface interface {
	Allow() error
	Report(failed bool)
	Release()
	State() models.CircuitBreakerState
	Failures() int
}

// ClassifierInterface predicts a category label for one transaction description
type ClassifierInterface interface {
	Classify(ctx context.Context, description string) models.ClassificationOutcome
}

// CategorizerInterface turns classification outcomes into labels, collapsing failures to Other
type CategorizerInterface interface {
	Categorize(ctx context.Context, description string) models.CategoryLabel
	CategorizeExpenses(ctx context.Context, transactions []models.Transaction) []models.CategoryLabel
}

type AggregatorInterface interface {
	SpendingByCategory(transactions []models.Transaction, categories []models.CategoryLabel) (models.CategorizedAmount, error)
	TopCategory(spending models.CategorizedAmount) (models.CategoryLabel, float64, bool)
	Insight(spending models.CategorizedAmount) string
	Tip() string
	Summarize(transactions []models.Transaction, categories []models.CategoryLabel) (*models.DashboardSummary, error)
}

// BankDataProviderInterface is the subset of the Plaid API the service relies on
type BankDataProviderInterface interface {
	Enabled() bool
	CreateLinkToken(ctx context.Context, clientUserID string) (*dto.PlaidLinkTokenCreateResponse, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*dto.PlaidPublicTokenExchangeResponse, error)
	SyncTransactions(ctx context.Context, accessToken string) ([]models.Transaction, error)
}

type TokenCipherInterface interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

// TransactionSourceInterface fetches a user's transactions and never fails; see models.Provenance
type TransactionSourceInterface interface {
	Fetch(ctx context.Context, user *models.User) *models.TransactionBatch
}

type DashboardServiceInterface interface {
	Build(ctx context.Context, user *models.User) (*models.DashboardResult, error)
}

type ProfileServiceInterface interface {
	GetProfile(userID uuid.UUID) (*models.User, error)
	UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest, ipAddress, userAgent string) (*models.User, error)
}

type BankLinkServiceInterface interface {
	CreateLinkToken(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (*dto.LinkTokenResponse, error)
	SetAccessToken(ctx context.Context, userID uuid.UUID, publicToken, ipAddress, userAgent string) (*dto.SetAccessTokenResponse, error)
	GetTransactions(ctx context.Context, user *models.User) *models.TransactionBatch
}

type InvestmentServiceInterface interface {
	GetDemoData(user *models.User) *models.InvestmentOverview
}
