package handlers

import (
	"context"
	"net/http"
	"time"

	"nexusmc-api/internal/errors"

	"github.com/labstack/echo/v4"
)

const (
	rootMessage        = "NexusMC AI Backend is running!"
	healthCheckTimeout = 2 * time.Second
)

// Pinger is implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthResponse struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks"`
}

type HealthCheckHandler struct {
	db  Pinger
	now func() time.Time
}

func NewHealthCheckHandler(db Pinger) *HealthCheckHandler {
	return &HealthCheckHandler{db: db, now: time.Now}
}

// Root is the service banner.
// @Summary Service banner
// @Tags Health
// @Produce json
// @Success 200 {object} MessageResponse
// @Router / [get]
func (h *HealthCheckHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: rootMessage})
}

// HealthCheck reports 503 when the database does not answer a ping within two seconds.
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} errors.ErrorResponse "SYSTEM_003"
// @Router /health [get]
func (h *HealthCheckHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return SendError(c, errors.SystemServiceUnavailable, errors.WithDetails("database: unreachable"))
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   h.now().UTC().Format(time.RFC3339),
		Checks: map[string]string{"database": "up"},
	})
}
