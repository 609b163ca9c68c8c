package handlers

import (
	"log/slog"
	"net/http"

	"nexusmc-api/internal/errors"

	"github.com/labstack/echo/v4"
)

// Handlers answer errors through SendError (known client or provider errors) or
// SendSystemError (everything else). Internal error text never reaches the client.

// TraceIDContextKey is the echo context key the request ID middleware writes to.
const TraceIDContextKey = "trace_id"

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse = errors.ErrorResponse

func getTraceID(c echo.Context) string {
	traceID, _ := c.Get(TraceIDContextKey).(string)
	return traceID
}

// SendError writes the catalog response for code with its mapped status.
func SendError(c echo.Context, code errors.ErrorCode, opts ...errors.ErrorOption) error {
	errorResponse := errors.NewErrorResponse(code, getTraceID(c), opts...)
	return c.JSON(errorResponse.GetHTTPStatus(), errorResponse)
}

// SendSystemError logs err and answers SYSTEM_001.
func SendSystemError(c echo.Context, err error) error {
	traceID := getTraceID(c)
	slog.ErrorContext(c.Request().Context(), "internal error",
		"trace_id", traceID,
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)
	return c.JSON(http.StatusInternalServerError, errors.NewSystemError(traceID))
}
