package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/errors"
	"nexusmc-api/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandler serves /auth.
type AuthHandler struct {
	auth services.AuthServiceInterface
}

func NewAuthHandler(auth services.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register creates an account.
// @Summary Register
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Email, password and optional profile"
// @Success 201 {object} dto.RegisterResponse
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001, VALIDATION_006"
// @Failure 409 {object} errors.ErrorResponse "USER_002"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	user, err := h.auth.Register(&req, getClientIP(c), c.Request().UserAgent())
	switch {
	case err == nil:
	case stderrors.Is(err, services.ErrUserAlreadyExists):
		return SendError(c, errors.UserAlreadyExists)
	case stderrors.Is(err, services.ErrWeakPassword):
		return SendError(c, errors.ValidationWeakPassword, errors.WithDetails(err.Error()))
	default:
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.RegisterResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		ESGInterest: user.ESGInterest,
		CreatedAt:   user.CreatedAt,
	})
}

// Token is the OAuth2 password grant. It takes a username/password form or a
// JSON body with email and password.
// @Summary Obtain tokens
// @Tags Authentication
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Success 200 {object} dto.TokenResponse
// @Failure 401 {object} errors.ErrorResponse "AUTH_001"
// @Failure 403 {object} errors.ErrorResponse "AUTH_006"
// @Router /auth/token [post]
func (h *AuthHandler) Token(c echo.Context) error {
	var req dto.TokenRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	if strings.TrimSpace(req.Identifier()) == "" {
		return SendError(c, errors.ValidationRequiredField, errors.WithDetails("username: is required"))
	}

	tokens, err := h.auth.Login(&req, getClientIP(c), c.Request().UserAgent())
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, tokens)
	case stderrors.Is(err, services.ErrAccountLocked):
		return SendError(c, errors.AuthAccountLocked)
	case stderrors.Is(err, services.ErrInvalidCredentials):
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		return SendError(c, errors.AuthInvalidCredentials)
	default:
		return SendSystemError(c, err)
	}
}

// RefreshToken rotates a refresh token.
// @Summary Refresh tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.TokenResponse
// @Failure 401 {object} errors.ErrorResponse "AUTH_007"
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req dto.RefreshTokenRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	tokens, err := h.auth.RefreshTokens(req.RefreshToken, getClientIP(c), c.Request().UserAgent())
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, tokens)
	case stderrors.Is(err, services.ErrInvalidRefreshToken):
		return SendError(c, errors.AuthInvalidRefreshToken)
	default:
		return SendSystemError(c, err)
	}
}

// Logout revokes the presented access token. The caller always gets 200 once
// the header is well formed.
// @Summary Logout
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse "AUTH_002, AUTH_004"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token, code := bearerToken(c)
	if code != "" {
		return SendError(c, code)
	}

	if err := h.auth.Logout(token, getClientIP(c), c.Request().UserAgent()); err != nil {
		slog.WarnContext(c.Request().Context(), "logout failed", "trace_id", getTraceID(c), "error", err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logout successful"})
}
