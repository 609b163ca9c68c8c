package services

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"nexusmc-api/internal/config"
	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/models"
	"nexusmc-api/internal/repositories"
	"nexusmc-api/internal/repositories/repository_mocks"
	"nexusmc-api/internal/services/service_mocks"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type AuthServiceTestSuite struct {
	suite.Suite
	ctrl                 *gomock.Controller
	userRepo             *repository_mocks.MockUserRepositoryInterface
	refreshTokenRepo     *repository_mocks.MockRefreshTokenRepositoryInterface
	auditRepo            *repository_mocks.MockAuditLogRepositoryInterface
	blacklistedTokenRepo *repository_mocks.MockBlacklistedTokenRepositoryInterface
	passwordService      *service_mocks.MockPasswordServiceInterface
	tokenService         *service_mocks.MockTokenServiceInterface
	metrics              *service_mocks.MockMetricsRecorderInterface
	authService          AuthServiceInterface
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.userRepo = repository_mocks.NewMockUserRepositoryInterface(s.ctrl)
	s.refreshTokenRepo = repository_mocks.NewMockRefreshTokenRepositoryInterface(s.ctrl)
	s.auditRepo = repository_mocks.NewMockAuditLogRepositoryInterface(s.ctrl)
	s.blacklistedTokenRepo = repository_mocks.NewMockBlacklistedTokenRepositoryInterface(s.ctrl)
	s.passwordService = service_mocks.NewMockPasswordServiceInterface(s.ctrl)
	s.tokenService = service_mocks.NewMockTokenServiceInterface(s.ctrl)
	s.metrics = service_mocks.NewMockMetricsRecorderInterface(s.ctrl)
	s.metrics.EXPECT().IncrementCounter(MetricAuthenticationEvent, gomock.Any()).AnyTimes()

	s.authService = NewAuthService(
		s.userRepo,
		s.refreshTokenRepo,
		s.auditRepo,
		s.blacklistedTokenRepo,
		s.passwordService,
		s.tokenService,
		s.metrics,
		config.SecurityConfig{MaxFailedAttempts: 3},
		slog.Default(),
	)
}

func (s *AuthServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (s *AuthServiceTestSuite) expectTokenIssue(user *models.User) *models.RefreshToken {
	stored := &models.RefreshToken{}
	s.tokenService.EXPECT().GenerateAccessToken(user).Return("access-token", time.Now().Add(30*time.Minute), nil)
	s.tokenService.EXPECT().GenerateRefreshToken(user.ID).Return("refresh-token", time.Now().Add(7*24*time.Hour), nil)
	s.refreshTokenRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(token *models.RefreshToken) error {
		*stored = *token
		return nil
	})
	return stored
}

func (s *AuthServiceTestSuite) TestRegister_Success() {
	req := &dto.RegisterRequest{Email: "  New@Example.com ", Password: "supersecret"}

	s.userRepo.EXPECT().GetByEmail("new@example.com").Return(nil, repositories.ErrUserNotFound)
	s.passwordService.EXPECT().ValidatePassword(req.Password).Return(nil)
	s.passwordService.EXPECT().HashPassword(req.Password).Return("hashed_password", nil)
	s.userRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(user *models.User) error {
		user.ID = uuid.New()
		return nil
	})
	s.auditRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(log *models.AuditLog) error {
		s.Equal(models.AuditActionRegister, log.Action)
		s.NotNil(log.UserID)
		return nil
	})

	user, err := s.authService.Register(req, "192.168.1.1", "Mozilla/5.0")

	s.Require().NoError(err)
	s.Equal("new@example.com", user.Email)
	s.Equal(models.RoleUser, user.Role)
	s.Equal("hashed_password", user.PasswordHash)
	s.Nil(user.Age)
	s.False(user.ESGInterest)
}

func (s *AuthServiceTestSuite) TestRegister_UserAlreadyExists() {
	req := &dto.RegisterRequest{Email: "taken@example.com", Password: "supersecret"}

	s.userRepo.EXPECT().GetByEmail(req.Email).Return(&models.User{ID: uuid.New(), Email: req.Email}, nil)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	user, err := s.authService.Register(req, "192.168.1.1", "Mozilla/5.0")

	s.ErrorIs(err, ErrUserAlreadyExists)
	s.Nil(user)
}

func (s *AuthServiceTestSuite) TestRegister_DuplicateOnInsert() {
	req := &dto.RegisterRequest{Email: "race@example.com", Password: "supersecret"}

	s.userRepo.EXPECT().GetByEmail(req.Email).Return(nil, repositories.ErrUserNotFound)
	s.passwordService.EXPECT().ValidatePassword(req.Password).Return(nil)
	s.passwordService.EXPECT().HashPassword(req.Password).Return("hash", nil)
	s.userRepo.EXPECT().Create(gomock.Any()).Return(repositories.ErrUserAlreadyExists)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	_, err := s.authService.Register(req, "", "")
	s.ErrorIs(err, ErrUserAlreadyExists)
}

func (s *AuthServiceTestSuite) TestRegister_WeakPassword() {
	req := &dto.RegisterRequest{Email: "weak@example.com", Password: "short"}

	s.userRepo.EXPECT().GetByEmail(req.Email).Return(nil, repositories.ErrUserNotFound)
	s.passwordService.EXPECT().ValidatePassword(req.Password).Return(ErrPasswordTooShort)

	user, err := s.authService.Register(req, "", "")

	s.ErrorIs(err, ErrWeakPassword)
	s.Contains(err.Error(), "too short")
	s.Nil(user)
}

func (s *AuthServiceTestSuite) TestRegister_LookupFailure() {
	req := &dto.RegisterRequest{Email: "x@example.com", Password: "supersecret"}
	s.userRepo.EXPECT().GetByEmail(req.Email).Return(nil, errors.New("connection refused"))

	_, err := s.authService.Register(req, "", "")
	s.Error(err)
	s.NotErrorIs(err, ErrUserAlreadyExists)
}

func (s *AuthServiceTestSuite) TestLogin_Success() {
	user := &models.User{ID: uuid.New(), Email: "ana@example.com", PasswordHash: "hash", Role: models.RoleUser}
	req := &dto.TokenRequest{Username: "Ana@Example.com", Password: "supersecret"}

	s.userRepo.EXPECT().GetByEmail("ana@example.com").Return(user, nil)
	s.passwordService.EXPECT().ComparePassword("supersecret", "hash").Return(true)
	s.userRepo.EXPECT().ResetFailedLoginAttempts(user.ID).Return(nil)
	stored := s.expectTokenIssue(user)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	tokens, err := s.authService.Login(req, "10.0.0.1", "curl/8.0")

	s.Require().NoError(err)
	s.Equal("access-token", tokens.AccessToken)
	s.Equal("refresh-token", tokens.RefreshToken)
	s.Equal(TokenTypeBearer, tokens.TokenType)
	s.Equal(user.ID, stored.UserID)
	s.Equal(hashToken("refresh-token"), stored.TokenHash)
}

func (s *AuthServiceTestSuite) TestLogin_AcceptsJSONEmailField() {
	user := &models.User{ID: uuid.New(), Email: "ana@example.com", PasswordHash: "hash", Role: models.RoleUser}

	s.userRepo.EXPECT().GetByEmail("ana@example.com").Return(user, nil)
	s.passwordService.EXPECT().ComparePassword("supersecret", "hash").Return(true)
	s.userRepo.EXPECT().ResetFailedLoginAttempts(user.ID).Return(nil)
	s.expectTokenIssue(user)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	_, err := s.authService.Login(&dto.TokenRequest{Email: "ana@example.com", Password: "supersecret"}, "", "")
	s.NoError(err)
}

func (s *AuthServiceTestSuite) TestLogin_MissingIdentifier() {
	_, err := s.authService.Login(&dto.TokenRequest{Password: "x"}, "", "")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *AuthServiceTestSuite) TestLogin_NonExistentUser() {
	s.userRepo.EXPECT().GetByEmail("ghost@example.com").Return(nil, repositories.ErrUserNotFound)
	s.auditRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(log *models.AuditLog) error {
		s.Equal(models.AuditActionFailedLogin, log.Action)
		s.Equal("user_not_found", log.Metadata["reason"])
		s.Nil(log.UserID)
		return nil
	})

	tokens, err := s.authService.Login(&dto.TokenRequest{Username: "ghost@example.com", Password: "whatever1"}, "", "")

	s.ErrorIs(err, ErrInvalidCredentials)
	s.Nil(tokens)
}

func (s *AuthServiceTestSuite) TestLogin_InvalidPasswordIncrementsCounter() {
	user := &models.User{ID: uuid.New(), Email: "ana@example.com", PasswordHash: "hash", Role: models.RoleUser}

	s.userRepo.EXPECT().GetByEmail(user.Email).Return(user, nil)
	s.passwordService.EXPECT().ComparePassword("wrong", "hash").Return(false)
	s.userRepo.EXPECT().UpdateFailedLoginAttempts(user).DoAndReturn(func(u *models.User) error {
		s.Equal(1, u.FailedLoginAttempts)
		s.False(u.IsLocked())
		return nil
	})
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	_, err := s.authService.Login(&dto.TokenRequest{Username: user.Email, Password: "wrong"}, "", "")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *AuthServiceTestSuite) TestLogin_LocksAfterMaxFailedAttempts() {
	user := &models.User{ID: uuid.New(), Email: "ana@example.com", PasswordHash: "hash", Role: models.RoleUser, FailedLoginAttempts: 2}

	s.userRepo.EXPECT().GetByEmail(user.Email).Return(user, nil)
	s.passwordService.EXPECT().ComparePassword("wrong", "hash").Return(false)
	s.userRepo.EXPECT().UpdateFailedLoginAttempts(user).Return(nil)

	var actions []string
	s.auditRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(log *models.AuditLog) error {
		actions = append(actions, log.Action)
		return nil
	}).Times(2)

	_, err := s.authService.Login(&dto.TokenRequest{Username: user.Email, Password: "wrong"}, "", "")

	s.ErrorIs(err, ErrInvalidCredentials)
	s.True(user.IsLocked())
	s.Equal([]string{models.AuditActionAccountLocked, models.AuditActionFailedLogin}, actions)
}

func (s *AuthServiceTestSuite) TestLogin_LockedAccount() {
	lockedAt := time.Now()
	user := &models.User{ID: uuid.New(), Email: "ana@example.com", PasswordHash: "hash", LockedAt: &lockedAt}

	s.userRepo.EXPECT().GetByEmail(user.Email).Return(user, nil)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	_, err := s.authService.Login(&dto.TokenRequest{Username: user.Email, Password: "supersecret"}, "", "")
	s.ErrorIs(err, ErrAccountLocked)
}

func (s *AuthServiceTestSuite) TestLogin_AuditFailureDoesNotBlock() {
	user := &models.User{ID: uuid.New(), Email: "ana@example.com", PasswordHash: "hash", Role: models.RoleUser}

	s.userRepo.EXPECT().GetByEmail(user.Email).Return(user, nil)
	s.passwordService.EXPECT().ComparePassword("supersecret", "hash").Return(true)
	s.userRepo.EXPECT().ResetFailedLoginAttempts(user.ID).Return(errors.New("db down"))
	s.expectTokenIssue(user)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(errors.New("db down"))

	tokens, err := s.authService.Login(&dto.TokenRequest{Username: user.Email, Password: "supersecret"}, "", "")
	s.NoError(err)
	s.NotNil(tokens)
}

func (s *AuthServiceTestSuite) TestRefreshTokens_RotatesToken() {
	user := &models.User{ID: uuid.New(), Email: "ana@example.com", Role: models.RoleUser}
	stored := &models.RefreshToken{ID: uuid.New(), UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}

	s.tokenService.EXPECT().ValidateRefreshToken("old-refresh").Return(&models.CustomClaims{UserID: user.ID.String()}, nil)
	s.refreshTokenRepo.EXPECT().GetByTokenHash(hashToken("old-refresh")).Return(stored, nil)
	s.userRepo.EXPECT().GetByID(user.ID).Return(user, nil)
	successor := s.expectTokenIssue(user)
	s.refreshTokenRepo.EXPECT().Update(stored).DoAndReturn(func(token *models.RefreshToken) error {
		s.True(token.IsRevoked())
		s.Require().NotNil(token.ReplacedByID)
		s.Equal(successor.ID, *token.ReplacedByID)
		return nil
	})
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	tokens, err := s.authService.RefreshTokens("old-refresh", "", "")

	s.Require().NoError(err)
	s.Equal("refresh-token", tokens.RefreshToken)
}

func (s *AuthServiceTestSuite) TestRefreshTokens_InvalidJWT() {
	s.tokenService.EXPECT().ValidateRefreshToken("bad").Return(nil, ErrInvalidToken)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	_, err := s.authService.RefreshTokens("bad", "", "")
	s.ErrorIs(err, ErrInvalidRefreshToken)
}

func (s *AuthServiceTestSuite) TestRefreshTokens_UnknownToken() {
	userID := uuid.New()
	s.tokenService.EXPECT().ValidateRefreshToken("unknown").Return(&models.CustomClaims{UserID: userID.String()}, nil)
	s.refreshTokenRepo.EXPECT().GetByTokenHash(hashToken("unknown")).Return(nil, repositories.ErrRefreshTokenNotFound)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	_, err := s.authService.RefreshTokens("unknown", "", "")
	s.ErrorIs(err, ErrInvalidRefreshToken)
}

func (s *AuthServiceTestSuite) TestRefreshTokens_ReuseRevokesFamily() {
	userID := uuid.New()
	revokedAt := time.Now().Add(-time.Minute)
	successorID := uuid.New()
	stored := &models.RefreshToken{
		ID:           uuid.New(),
		UserID:       userID,
		ExpiresAt:    time.Now().Add(time.Hour),
		RevokedAt:    &revokedAt,
		ReplacedByID: &successorID,
	}

	s.tokenService.EXPECT().ValidateRefreshToken("replayed").Return(&models.CustomClaims{UserID: userID.String()}, nil)
	s.refreshTokenRepo.EXPECT().GetByTokenHash(hashToken("replayed")).Return(stored, nil)
	s.refreshTokenRepo.EXPECT().RevokeAllForUser(userID).Return(nil)
	s.auditRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(log *models.AuditLog) error {
		s.Equal("token_reuse", log.Metadata["reason"])
		return nil
	})

	_, err := s.authService.RefreshTokens("replayed", "", "")
	s.ErrorIs(err, ErrInvalidRefreshToken)
}

func (s *AuthServiceTestSuite) TestRefreshTokens_ExpiredStoredToken() {
	userID := uuid.New()
	stored := &models.RefreshToken{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(-time.Hour)}

	s.tokenService.EXPECT().ValidateRefreshToken("expired").Return(&models.CustomClaims{UserID: userID.String()}, nil)
	s.refreshTokenRepo.EXPECT().GetByTokenHash(hashToken("expired")).Return(stored, nil)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	_, err := s.authService.RefreshTokens("expired", "", "")
	s.ErrorIs(err, ErrInvalidRefreshToken)
}

func (s *AuthServiceTestSuite) TestRefreshTokens_OwnerMismatch() {
	stored := &models.RefreshToken{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}

	s.tokenService.EXPECT().ValidateRefreshToken("foreign").Return(&models.CustomClaims{UserID: uuid.New().String()}, nil)
	s.refreshTokenRepo.EXPECT().GetByTokenHash(hashToken("foreign")).Return(stored, nil)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	_, err := s.authService.RefreshTokens("foreign", "", "")
	s.ErrorIs(err, ErrInvalidRefreshToken)
}

func (s *AuthServiceTestSuite) TestLogout_BlacklistsAndRevokes() {
	userID := uuid.New()
	expiry := time.Now().Add(20 * time.Minute)
	claims := &models.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1"},
		UserID:           userID.String(),
	}

	s.tokenService.EXPECT().ValidateAccessToken("access").Return(claims, nil)
	s.tokenService.EXPECT().GetTokenExpiry("access").Return(expiry, nil)
	s.blacklistedTokenRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(token *models.BlacklistedToken) error {
		s.Equal("jti-1", token.JTI)
		s.Require().NotNil(token.UserID)
		s.Equal(userID, *token.UserID)
		s.Equal(expiry, token.ExpiresAt)
		return nil
	})
	s.refreshTokenRepo.EXPECT().RevokeAllForUser(userID).Return(nil)
	s.auditRepo.EXPECT().Create(gomock.Any()).Return(nil)

	s.NoError(s.authService.Logout("access", "", ""))
}

func (s *AuthServiceTestSuite) TestLogout_InvalidTokenStillBlacklistsJTI() {
	s.tokenService.EXPECT().ValidateAccessToken("expired").Return(nil, ErrExpiredToken)
	s.tokenService.EXPECT().GetJTI("expired").Return("jti-expired", nil)
	s.blacklistedTokenRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(token *models.BlacklistedToken) error {
		s.Equal("jti-expired", token.JTI)
		s.Nil(token.UserID)
		return nil
	})

	s.NoError(s.authService.Logout("expired", "", ""))
}

func (s *AuthServiceTestSuite) TestLogout_GarbageToken() {
	s.tokenService.EXPECT().ValidateAccessToken("garbage").Return(nil, ErrInvalidToken)
	s.tokenService.EXPECT().GetJTI("garbage").Return("", ErrInvalidToken)

	s.NoError(s.authService.Logout("garbage", "", ""))
}

func (s *AuthServiceTestSuite) TestHashToken_IsDeterministic() {
	s.Equal(hashToken("abc"), hashToken("abc"))
	s.NotEqual(hashToken("abc"), hashToken("abd"))
	s.Len(hashToken("abc"), 64)
}

func (s *AuthServiceTestSuite) TestAuthEventMetadata() {
	s.Nil(authEvent{action: models.AuditActionLogin}.metadata())

	metadata := authEvent{reason: "invalid_password", extra: map[string]interface{}{"email": "ana@example.com"}}.metadata()
	s.Equal(map[string]interface{}{"reason": "invalid_password", "email": "ana@example.com"}, metadata)
}
