package handlers

import (
	"net/http"

	"nexusmc-api/internal/errors"
	"nexusmc-api/internal/services"

	"github.com/labstack/echo/v4"
)

type InvestmentHandler struct {
	investmentService services.InvestmentServiceInterface
}

func NewInvestmentHandler(investmentService services.InvestmentServiceInterface) *InvestmentHandler {
	return &InvestmentHandler{investmentService: investmentService}
}

// GetDemoData returns illustrative investment content tailored to the user's profile
// @Summary Investment demo data
// @Tags Investment
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.InvestmentOverview
// @Router /investment/demo_data [get]
func (h *InvestmentHandler) GetDemoData(c echo.Context) error {
	user, err := getUserFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthInvalidTokenFormat)
	}

	return c.JSON(http.StatusOK, h.investmentService.GetDemoData(user))
}
