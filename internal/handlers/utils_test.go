package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nexusmc-api/internal/errors"
	"nexusmc-api/internal/validation"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		code   errors.ErrorCode
	}{
		{"", "", errors.AuthMissingToken},
		{"Bearer abc.def.ghi", "abc.def.ghi", ""},
		{"bearer abc.def.ghi", "abc.def.ghi", ""},
		{"Basic dXNlcjpwYXNz", "", errors.AuthInvalidTokenFormat},
		{"Bearer", "", errors.AuthInvalidTokenFormat},
		{"Bearer ", "", errors.AuthInvalidTokenFormat},
		{"Bearer a b", "", errors.AuthInvalidTokenFormat},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			token, code := bearerToken(echo.New().NewContext(req, httptest.NewRecorder()))
			assert.Equal(t, tt.token, token)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestBindRequest(t *testing.T) {
	e := echo.New()
	e.Validator = validation.Default()

	type body struct {
		Name string `json:"name" validate:"required"`
	}
	newContext := func(payload string) (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		return e.NewContext(req, rec), rec
	}

	t.Run("valid", func(t *testing.T) {
		c, _ := newContext(`{"name":"ana"}`)
		var dst body
		ok, err := bindRequest(c, &dst)
		require.True(t, ok)
		require.NoError(t, err)
		assert.Equal(t, "ana", dst.Name)
	})

	t.Run("malformed body is answered", func(t *testing.T) {
		c, rec := newContext(`{"name":`)
		var dst body
		ok, err := bindRequest(c, &dst)
		assert.False(t, ok)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "VALIDATION_001")
	})

	t.Run("validation error is returned", func(t *testing.T) {
		c, rec := newContext(`{}`)
		var dst body
		ok, err := bindRequest(c, &dst)
		assert.False(t, ok)
		fields, isValidation := validation.FieldErrors(err)
		require.True(t, isValidation)
		assert.Equal(t, "is required", fields["name"])
		assert.False(t, c.Response().Committed)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestContextAccessors(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/?limit=5&offset=-1&page=x", nil), httptest.NewRecorder())

	_, err := getUserIDFromContext(c)
	assert.ErrorIs(t, err, ErrUnauthorized)
	c.Set(UserIDContextKey, uuid.Nil)
	_, err = getUserIDFromContext(c)
	assert.ErrorIs(t, err, ErrUnauthorized)

	id := uuid.New()
	c.Set(UserIDContextKey, id)
	got, err := getUserIDFromContext(c)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = getUserFromContext(c)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, 5, getQueryInt(c, "limit", 20))
	assert.Equal(t, 0, getQueryInt(c, "offset", 0))
	assert.Equal(t, 1, getQueryInt(c, "page", 1))
	assert.Equal(t, 7, getQueryInt(c, "missing", 7))
}
