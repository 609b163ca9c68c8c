package handlers

import (
	stderrors "errors"
	"net/http"

	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/errors"
	"nexusmc-api/internal/services"

	"github.com/labstack/echo/v4"
)

// PlaidHandler exposes the bank-link flow and the user's transactions
type PlaidHandler struct {
	bankLinkService services.BankLinkServiceInterface
}

func NewPlaidHandler(bankLinkService services.BankLinkServiceInterface) *PlaidHandler {
	return &PlaidHandler{bankLinkService: bankLinkService}
}

// CreateLinkToken creates a Plaid Link token for the current user
// @Summary Create Plaid Link token
// @Tags Plaid
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.LinkTokenResponse
// @Failure 503 {object} errors.ErrorResponse "PROVIDER_001"
// @Failure 500 {object} errors.ErrorResponse "PROVIDER_002"
// @Router /plaid/create_link_token [post]
func (h *PlaidHandler) CreateLinkToken(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthInvalidTokenFormat)
	}

	resp, err := h.bankLinkService.CreateLinkToken(c.Request().Context(), userID, getClientIP(c), c.Request().UserAgent())
	if err != nil {
		if stderrors.Is(err, services.ErrProviderNotConfigured) {
			return SendError(c, errors.ProviderUnavailable)
		}
		return SendError(c, errors.ProviderLinkTokenFailed)
	}

	return c.JSON(http.StatusOK, resp)
}

// SetAccessToken exchanges the Link public token and stores the resulting access token
// @Summary Link a bank account
// @Tags Plaid
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.SetAccessTokenRequest true "Public token from Plaid Link"
// @Success 200 {object} dto.SetAccessTokenResponse
// @Failure 400 {object} errors.ErrorResponse "PROVIDER_003"
// @Failure 500 {object} errors.ErrorResponse "PROVIDER_004"
// @Router /plaid/set_access_token [post]
func (h *PlaidHandler) SetAccessToken(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthInvalidTokenFormat)
	}

	var req dto.SetAccessTokenRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	resp, err := h.bankLinkService.SetAccessToken(c.Request().Context(), userID, req.PublicToken, getClientIP(c), c.Request().UserAgent())
	if err != nil {
		var providerErr *services.ProviderError
		switch {
		case stderrors.Is(err, services.ErrProviderNotConfigured):
			return SendError(c, errors.ProviderUnavailable)
		case stderrors.As(err, &providerErr):
			return SendError(c, errors.ProviderExchangeRejected, errors.WithDetails(providerErr.Error()))
		case stderrors.Is(err, services.ErrAccessTokenEncryption):
			return SendError(c, errors.ProviderSecureTokenFailed)
		case stderrors.Is(err, services.ErrUserNotFound):
			return SendError(c, errors.UserNotFound)
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// GetTransactions lists the user's transactions, falling back to mock data
// @Summary List transactions
// @Tags Plaid
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.TransactionsResponse
// @Router /plaid/transactions [get]
func (h *PlaidHandler) GetTransactions(c echo.Context) error {
	user, err := getUserFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthInvalidTokenFormat)
	}

	batch := h.bankLinkService.GetTransactions(c.Request().Context(), user)
	c.Response().Header().Set(ProvenanceHeader, batch.Provenance.String())

	return c.JSON(http.StatusOK, dto.TransactionsResponse{
		Transactions: batch.Transactions,
		AccountName:  batch.AccountName,
		Source:       batch.Provenance,
	})
}
