package middleware

import (
	stderrors "errors"

	"nexusmc-api/internal/errors"
	"nexusmc-api/internal/handlers"
	"nexusmc-api/internal/repositories"
	"nexusmc-api/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequireAuth creates a middleware that requires a valid, non-revoked JWT access token
// and loads the user it was issued to.
func RequireAuth(
	tokenService services.TokenServiceInterface,
	blacklistedTokenRepo repositories.BlacklistedTokenRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return unauthorized(c, errors.AuthMissingToken)
			}

			token, err := tokenService.ExtractTokenFromHeader(authHeader)
			if err != nil {
				return unauthorized(c, errors.AuthInvalidTokenFormat)
			}

			claims, err := tokenService.ValidateAccessToken(token)
			if err != nil {
				if stderrors.Is(err, services.ErrExpiredToken) {
					return unauthorized(c, errors.AuthExpiredToken)
				}
				return unauthorized(c, errors.AuthInvalidTokenFormat)
			}

			blacklistedToken, err := blacklistedTokenRepo.GetByJTI(claims.ID)
			switch {
			case err == nil && blacklistedToken != nil:
				return unauthorized(c, errors.AuthInvalidTokenFormat, errors.WithDetails("Token has been revoked"))
			case err != nil && !stderrors.Is(err, repositories.ErrTokenNotFound):
				return handlers.SendSystemError(c, err)
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				return unauthorized(c, errors.AuthInvalidTokenFormat, errors.WithDetails("Invalid user ID in token"))
			}

			user, err := userRepo.GetByID(userID)
			if err != nil {
				if stderrors.Is(err, repositories.ErrUserNotFound) {
					return unauthorized(c, errors.AuthInvalidTokenFormat)
				}
				return handlers.SendSystemError(c, err)
			}

			if user.IsLocked() {
				return handlers.SendError(c, errors.AuthAccountLocked)
			}

			c.Set(handlers.UserIDContextKey, user.ID)
			c.Set(handlers.UserContextKey, user)
			c.Set("user_email", user.Email)
			c.Set("user_role", user.Role)
			c.Set("token_jti", claims.ID)

			return next(c)
		}
	}
}

func unauthorized(c echo.Context, code errors.ErrorCode, opts ...errors.ErrorOption) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return handlers.SendError(c, code, opts...)
}
