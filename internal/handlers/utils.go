package handlers

import (
	stderrors "errors"
	"strconv"
	"strings"

	"nexusmc-api/internal/errors"
	"nexusmc-api/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Written by the authentication middleware.
const (
	UserIDContextKey = "user_id"
	UserContextKey   = "user"
)

var ErrUnauthorized = stderrors.New("unauthorized")

func getUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	if userID, ok := c.Get(UserIDContextKey).(uuid.UUID); ok && userID != uuid.Nil {
		return userID, nil
	}
	return uuid.Nil, ErrUnauthorized
}

func getUserFromContext(c echo.Context) (*models.User, error) {
	if user, ok := c.Get(UserContextKey).(*models.User); ok && user != nil {
		return user, nil
	}
	return nil, ErrUnauthorized
}

// getQueryInt falls back to def for missing, malformed or negative values.
func getQueryInt(c echo.Context, name string, def int) int {
	if value, err := strconv.Atoi(c.QueryParam(name)); err == nil && value >= 0 {
		return value
	}
	return def
}

// getClientIP goes through echo's IP extractor so proxy headers are honoured.
func getClientIP(c echo.Context) string {
	return c.RealIP()
}

// bindRequest decodes the body into dst and validates it. When ok is false the
// handler returns err unchanged: a malformed body has already been answered and
// validation failures are left to the error handler.
func bindRequest(c echo.Context, dst interface{}) (ok bool, err error) {
	if err := c.Bind(dst); err != nil {
		return false, SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}
	if err := c.Validate(dst); err != nil {
		return false, err
	}
	return true, nil
}

// bearerToken reads "Authorization: Bearer <token>". The scheme is case-insensitive.
func bearerToken(c echo.Context) (string, errors.ErrorCode) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", errors.AuthMissingToken
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" || strings.Contains(token, " ") {
		return "", errors.AuthInvalidTokenFormat
	}
	return token, ""
}
