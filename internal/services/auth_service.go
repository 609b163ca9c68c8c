package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nexusmc-api/internal/config"
	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/models"
	"nexusmc-api/internal/repositories"

	"github.com/google/uuid"
)

const TokenTypeBearer = "bearer"

// Blacklist lifetime for access tokens whose expiry cannot be read.
const fallbackBlacklistTTL = 24 * time.Hour

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountLocked       = errors.New("account is locked due to too many failed attempts")
	ErrUserAlreadyExists   = errors.New("user with this email already exists")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrWeakPassword        = errors.New("password does not meet requirements")
)

type AuthService struct {
	users       repositories.UserRepositoryInterface
	sessions    repositories.RefreshTokenRepositoryInterface
	auditRepo   repositories.AuditLogRepositoryInterface
	revocations repositories.BlacklistedTokenRepositoryInterface
	passwords   PasswordServiceInterface
	tokens      TokenServiceInterface
	metrics     MetricsRecorderInterface
	maxFailures int
	logger      *slog.Logger
	now         func() time.Time
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	refreshTokenRepo repositories.RefreshTokenRepositoryInterface,
	auditRepo repositories.AuditLogRepositoryInterface,
	blacklistedTokenRepo repositories.BlacklistedTokenRepositoryInterface,
	passwordService PasswordServiceInterface,
	tokenService TokenServiceInterface,
	metrics MetricsRecorderInterface,
	security config.SecurityConfig,
	logger *slog.Logger,
) AuthServiceInterface {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:       userRepo,
		sessions:    refreshTokenRepo,
		auditRepo:   auditRepo,
		revocations: blacklistedTokenRepo,
		passwords:   passwordService,
		tokens:      tokenService,
		metrics:     metrics,
		maxFailures: security.MaxFailedAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// client identifies the caller of an authentication request in the audit trail.
type client struct {
	ip        string
	userAgent string
}

// authEvent is one audited outcome. A zero subject means the caller could not be tied to an account.
type authEvent struct {
	metric   string
	action   string
	resource string
	subject  uuid.UUID
	reason   string
	extra    map[string]interface{}
}

func (e authEvent) metadata() map[string]interface{} {
	if e.reason == "" && len(e.extra) == 0 {
		return nil
	}
	metadata := make(map[string]interface{}, len(e.extra)+1)
	for key, value := range e.extra {
		metadata[key] = value
	}
	if e.reason != "" {
		metadata["reason"] = e.reason
	}
	return metadata
}

func (s *AuthService) Register(req *dto.RegisterRequest, ipAddress, userAgent string) (*models.User, error) {
	caller := client{ip: ipAddress, userAgent: userAgent}
	email := normalizeEmail(req.Email)
	rejected := authEvent{
		action:   models.AuditActionRegister,
		resource: models.AuditResourceUser,
		reason:   "email_already_exists",
		extra:    map[string]interface{}{"email": email},
	}

	existing, err := s.users.GetByEmail(email)
	switch {
	case err != nil && !errors.Is(err, repositories.ErrUserNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	case existing != nil:
		s.record(rejected, caller)
		return nil, ErrUserAlreadyExists
	}

	if err := s.passwords.ValidatePassword(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: hash, Role: models.RoleUser}
	if err := s.users.Create(user); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			s.record(rejected, caller)
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.record(authEvent{
		metric:   "register",
		action:   models.AuditActionRegister,
		resource: models.AuditResourceUser,
		subject:  user.ID,
	}, caller)

	return user, nil
}

// Login checks the password grant and issues an access/refresh token pair.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(req *dto.TokenRequest, ipAddress, userAgent string) (*dto.TokenResponse, error) {
	caller := client{ip: ipAddress, userAgent: userAgent}
	email := normalizeEmail(req.Identifier())
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	failed := func(reason string) authEvent {
		return authEvent{
			metric:   "login_failed",
			action:   models.AuditActionFailedLogin,
			resource: models.AuditResourceAuth,
			reason:   reason,
			extra:    map[string]interface{}{"email": email},
		}
	}

	user, err := s.users.GetByEmail(email)
	if errors.Is(err, repositories.ErrUserNotFound) {
		s.record(failed("user_not_found"), caller)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsLocked() {
		event := failed("account_locked")
		event.metric = "login_locked"
		s.record(event, caller)
		return nil, ErrAccountLocked
	}

	if !s.passwords.ComparePassword(req.Password, user.PasswordHash) {
		s.registerFailedAttempt(user, caller)
		s.record(failed("invalid_password"), caller)
		return nil, ErrInvalidCredentials
	}

	if err := s.users.ResetFailedLoginAttempts(user.ID); err != nil {
		s.logger.Warn("failed to reset login attempts", "error", err, "user_id", user.ID)
	}

	pair, _, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	s.record(authEvent{
		metric:   "login_success",
		action:   models.AuditActionLogin,
		resource: models.AuditResourceAuth,
		subject:  user.ID,
	}, caller)

	return pair, nil
}

func (s *AuthService) registerFailedAttempt(user *models.User, caller client) {
	justLocked := user.IncrementFailedAttempts(s.maxFailures)
	if err := s.users.UpdateFailedLoginAttempts(user); err != nil {
		s.logger.Error("failed to update login attempts", "error", err, "user_id", user.ID)
	}
	if !justLocked {
		return
	}
	s.record(authEvent{
		metric:   "account_locked",
		action:   models.AuditActionAccountLocked,
		resource: models.AuditResourceUser,
		subject:  user.ID,
		extra:    map[string]interface{}{"failed_attempts": user.FailedLoginAttempts},
	}, caller)
}

// RefreshTokens rotates a refresh token: the presented token is revoked and linked to its successor.
// Presenting an already rotated token revokes every refresh token of the user.
func (s *AuthService) RefreshTokens(refreshToken, ipAddress, userAgent string) (*dto.TokenResponse, error) {
	caller := client{ip: ipAddress, userAgent: userAgent}
	reject := func(userID uuid.UUID, reason string) (*dto.TokenResponse, error) {
		s.record(authEvent{
			action:   models.AuditActionTokenRefresh,
			resource: models.AuditResourceAuth,
			subject:  userID,
			reason:   reason,
		}, caller)
		return nil, ErrInvalidRefreshToken
	}

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return reject(uuid.Nil, "invalid_token")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return reject(uuid.Nil, "invalid_subject")
	}

	stored, err := s.sessions.GetByTokenHash(hashToken(refreshToken))
	switch {
	case err != nil:
		return reject(userID, "token_not_found")
	case stored.UserID != userID:
		return reject(userID, "token_owner_mismatch")
	case stored.WasRotated():
		if err := s.sessions.RevokeAllForUser(userID); err != nil {
			s.logger.Error("failed to revoke refresh tokens after reuse", "error", err, "user_id", userID)
		}
		return reject(userID, "token_reuse")
	case !stored.IsValid():
		return reject(userID, "token_expired_or_revoked")
	}

	user, err := s.users.GetByID(userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	pair, successor, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	stored.RevokeFor(successor.ID)
	if err := s.sessions.Update(stored); err != nil {
		s.logger.Warn("failed to revoke rotated refresh token",
			"error", err,
			"user_id", user.ID,
			"token_id", stored.ID)
	}

	s.record(authEvent{
		metric:   "token_refresh",
		action:   models.AuditActionTokenRefresh,
		resource: models.AuditResourceAuth,
		subject:  user.ID,
	}, caller)

	return pair, nil
}

// Logout blacklists the access token's JTI and revokes the user's refresh tokens.
// Expired or malformed tokens never fail the call.
func (s *AuthService) Logout(accessToken, ipAddress, userAgent string) error {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		if jti, _ := s.tokens.GetJTI(accessToken); jti != "" {
			s.revoke(jti, nil, s.now().Add(fallbackBlacklistTTL))
		}
		return nil
	}

	userID, _ := uuid.Parse(claims.UserID)

	expiry, err := s.tokens.GetTokenExpiry(accessToken)
	if err != nil {
		expiry = s.now().Add(fallbackBlacklistTTL)
	}
	s.revoke(claims.ID, &userID, expiry)

	if err := s.sessions.RevokeAllForUser(userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens", "error", err, "user_id", userID)
	}

	s.record(authEvent{
		metric:   "logout",
		action:   models.AuditActionLogout,
		resource: models.AuditResourceAuth,
		subject:  userID,
	}, client{ip: ipAddress, userAgent: userAgent})

	return nil
}

func (s *AuthService) revoke(jti string, userID *uuid.UUID, expiresAt time.Time) {
	entry := &models.BlacklistedToken{JTI: jti, UserID: userID, ExpiresAt: expiresAt}
	if err := s.revocations.Create(entry); err != nil {
		s.logger.Error("failed to blacklist token", "error", err, "jti", jti, "user_id", userID)
	}
}

// issueTokens signs a new pair and persists the refresh token hash.
func (s *AuthService) issueTokens(user *models.User) (*dto.TokenResponse, *models.RefreshToken, error) {
	access, accessExpiry, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, refreshExpiry, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: refreshExpiry,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresAt:    accessExpiry,
	}, session, nil
}

// record counts the event and appends it to the audit trail. Audit failures never block authentication.
func (s *AuthService) record(event authEvent, caller client) {
	if event.metric != "" && s.metrics != nil {
		s.metrics.IncrementCounter(MetricAuthenticationEvent, map[string]string{"event_type": event.metric})
	}

	entry := &models.AuditLog{
		Action:    event.action,
		Resource:  event.resource,
		IPAddress: caller.ip,
		UserAgent: caller.userAgent,
		Metadata:  event.metadata(),
	}
	if event.subject != uuid.Nil {
		subject := event.subject
		entry.UserID = &subject
		entry.ResourceID = subject.String()
	}

	if err := s.auditRepo.Create(entry); err != nil {
		s.logger.Error("failed to create audit log",
			"error", err,
			"action", event.action,
			"resource", event.resource)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashToken returns the hex SHA-256 under which refresh tokens are stored.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
