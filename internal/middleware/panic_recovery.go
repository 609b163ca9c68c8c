package middleware

import (
	"log/slog"
	"net/http"

	"nexusmc-api/internal/errors"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const panicStackSize = 8 << 10

// PanicRecovery answers SYSTEM_001 when a later handler panics. The panic value
// and the goroutine stack go to the log only.
func PanicRecovery(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RecoverWithConfig(echomw.RecoverConfig{
		StackSize:       panicStackSize,
		DisableStackAll: true,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			traceID := GetTraceID(c)
			if traceID == "" {
				traceID = "unknown"
			}
			req := c.Request()
			logger.ErrorContext(req.Context(), "panic recovered",
				"trace_id", traceID,
				"panic", err.Error(),
				"stack_trace", string(stack),
				"method", req.Method,
				"path", req.URL.Path,
			)

			if c.Response().Committed {
				return nil
			}
			if sendErr := c.JSON(http.StatusInternalServerError, errors.NewSystemError(traceID)); sendErr != nil {
				logger.Error("failed to write panic response", "trace_id", traceID, "error", sendErr)
			}
			return nil
		},
	})
}
