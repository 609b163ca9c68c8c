package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	"nexusmc-api/internal/errors"
	"nexusmc-api/internal/services"

	"github.com/labstack/echo/v4"
)

// ProvenanceHeader tells clients whether the data behind a response is live or mock
const ProvenanceHeader = "X-Data-Provenance"

type DashboardHandler struct {
	dashboardService services.DashboardServiceInterface
}

func NewDashboardHandler(dashboardService services.DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetData builds the dashboard summary for the current user
// @Summary Dashboard data
// @Description Balance, spending per predicted category, a savings insight and a tip of the day.
// @Tags Dashboard
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.DashboardSummary
// @Header 200 {string} X-Data-Provenance "live, mock or fallback"
// @Failure 500 {object} errors.ErrorResponse "SYSTEM_001"
// @Failure 504 {object} errors.ErrorResponse "SYSTEM_007"
// @Router /dashboard/data [get]
func (h *DashboardHandler) GetData(c echo.Context) error {
	user, err := getUserFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthInvalidTokenFormat)
	}

	result, err := h.dashboardService.Build(c.Request().Context(), user)
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "dashboard build failed",
			"trace_id", getTraceID(c),
			"user_id", user.ID,
			"error", err,
		)
		if stderrors.Is(err, context.DeadlineExceeded) {
			return SendError(c, errors.SystemTimeout)
		}
		return SendSystemError(c, err)
	}

	c.Response().Header().Set(ProvenanceHeader, result.Provenance.String())
	return c.JSON(http.StatusOK, result.Summary)
}
