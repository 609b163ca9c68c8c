package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "nexusmc-api/internal/errors"
	"nexusmc-api/internal/validation"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

type ErrorHandlerTestSuite struct {
	suite.Suite
	echo     *echo.Echo
	registry *prometheus.Registry
	handler  *ErrorHandler
}

func (s *ErrorHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.registry = prometheus.NewRegistry()
	s.handler = NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), s.registry)
	s.echo.HTTPErrorHandler = s.handler.Handle
	s.echo.Validator = validation.Default()
}

func TestErrorHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ErrorHandlerTestSuite))
}

func (s *ErrorHandlerTestSuite) context() (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.Set(TraceIDContextKey, "test-trace-id")
	return c, rec
}

func (s *ErrorHandlerTestSuite) decode(rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	var resp apperrors.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (s *ErrorHandlerTestSuite) errorCount() float64 {
	families, err := s.registry.Gather()
	s.Require().NoError(err)

	var total float64
	for _, family := range families {
		if family.GetName() != "api_errors_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func (s *ErrorHandlerTestSuite) TestEchoHTTPError() {
	c, rec := s.context()

	s.handler.Handle(echo.NewHTTPError(http.StatusNotFound, "Resource not found"), c)

	s.Equal(http.StatusNotFound, rec.Code)
	resp := s.decode(rec)
	s.Equal("SYSTEM_008", resp.Error.Code)
	s.Equal("Resource not found", resp.Error.Message)
	s.Equal("test-trace-id", resp.Error.TraceID)
	s.Equal(float64(1), s.errorCount())
}

func (s *ErrorHandlerTestSuite) TestGenericErrorHidesInternals() {
	c, rec := s.context()

	s.handler.Handle(fmt.Errorf("failed to summarize spending: %w", errors.New("pq: relation missing")), c)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("SYSTEM_001", s.decode(rec).Error.Code)
	s.NotContains(rec.Body.String(), "pq:")
	s.Contains(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

func (s *ErrorHandlerTestSuite) TestValidationErrors() {
	type profileInput struct {
		Age         *int    `json:"age" validate:"omitempty,gt=0,lte=130"`
		PrimaryGoal *string `json:"primary_goal" validate:"omitempty,not_blank"`
	}
	age := 0
	blank := "  "

	c, rec := s.context()
	err := c.Validate(profileInput{Age: &age, PrimaryGoal: &blank})
	s.Require().Error(err)

	s.handler.Handle(err, c)

	s.Equal(http.StatusBadRequest, rec.Code)
	resp := s.decode(rec)
	s.Equal("VALIDATION_001", resp.Error.Code)
	s.ElementsMatch([]string{"age: must be greater than 0", "primary_goal: must not be blank"}, resp.Error.Details)
}

func (s *ErrorHandlerTestSuite) TestNoTraceID() {
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	s.handler.Handle(errors.New("test error"), c)

	s.Equal("unknown", s.decode(rec).Error.TraceID)
}

func (s *ErrorHandlerTestSuite) TestCommittedResponseIsLeftAlone() {
	c, rec := s.context()
	_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})

	s.handler.Handle(errors.New("late error"), c)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "ok")
	s.Equal(float64(0), s.errorCount())
}

func (s *ErrorHandlerTestSuite) TestStatusToCodeMapping() {
	testCases := []struct {
		status       int
		expectedCode string
	}{
		{http.StatusBadRequest, "VALIDATION_001"},
		{http.StatusUnauthorized, "AUTH_002"},
		{http.StatusForbidden, "AUTH_005"},
		{http.StatusNotFound, "SYSTEM_008"},
		{http.StatusMethodNotAllowed, "VALIDATION_001"},
		{http.StatusTooManyRequests, "SYSTEM_006"},
		{http.StatusInternalServerError, "SYSTEM_001"},
		{http.StatusServiceUnavailable, "SYSTEM_003"},
		{http.StatusGatewayTimeout, "SYSTEM_007"},
		{http.StatusTeapot, "SYSTEM_005"},
	}

	for _, tc := range testCases {
		s.Run(http.StatusText(tc.status), func() {
			c, rec := s.context()

			s.handler.Handle(echo.NewHTTPError(tc.status), c)

			s.Equal(tc.status, rec.Code)
			s.Equal(tc.expectedCode, s.decode(rec).Error.Code)
		})
	}
}

func (s *ErrorHandlerTestSuite) TestUnknownRouteThroughEcho() {
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("SYSTEM_008", s.decode(rec).Error.Code)
}
