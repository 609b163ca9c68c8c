package middleware

import (
	"context"

	"nexusmc-api/internal/handlers"
	"nexusmc-api/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const (
	TraceIDHeader     = "X-Trace-ID"
	TraceIDContextKey = handlers.TraceIDContextKey
)

// RequestID tags each request with a trace ID, reusing the caller's X-Trace-ID when present.
// The ID lands in the response header, the echo context and the request context.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator:        uuid.NewString,
		TargetHeader:     TraceIDHeader,
		RequestIDHandler: bindTraceID,
	})
}

func bindTraceID(c echo.Context, traceID string) {
	c.Set(TraceIDContextKey, traceID)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), services.RequestIDContextKey{}, traceID)))
}

// GetTraceID returns "" outside RequestID.
func GetTraceID(c echo.Context) string {
	traceID, _ := c.Get(TraceIDContextKey).(string)
	return traceID
}
