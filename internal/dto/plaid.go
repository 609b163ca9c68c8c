package dto

import (
	"time"

	"nexusmc-api/internal/models"
)

// API DTOs

// LinkTokenResponse is returned to the client to open Plaid Link
type LinkTokenResponse struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
}

// SetAccessTokenRequest carries the public token produced by Plaid Link
type SetAccessTokenRequest struct {
	PublicToken string `json:"public_token" validate:"required,public_token"`
}

type SetAccessTokenResponse struct {
	Message string `json:"message"`
	ItemID  string `json:"item_id"`
}

// TransactionsResponse lists the user's transactions and where they came from.
type TransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
	AccountName  string               `json:"account_name"`
	Source       models.Provenance    `json:"source"`
}

// Plaid wire DTOs

type PlaidUser struct {
	ClientUserID string `json:"client_user_id"`
}

type PlaidLinkTokenCreateRequest struct {
	ClientName   string    `json:"client_name"`
	Language     string    `json:"language"`
	CountryCodes []string  `json:"country_codes"`
	User         PlaidUser `json:"user"`
	Products     []string  `json:"products"`
}

type PlaidLinkTokenCreateResponse struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
	RequestID  string    `json:"request_id"`
}

type PlaidPublicTokenExchangeRequest struct {
	PublicToken string `json:"public_token"`
}

type PlaidPublicTokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

type PlaidTransactionsSyncRequest struct {
	AccessToken string `json:"access_token"`
	Cursor      string `json:"cursor,omitempty"`
	Count       int    `json:"count,omitempty"`
}

type PlaidTransaction struct {
	TransactionID string   `json:"transaction_id"`
	AccountID     string   `json:"account_id"`
	Date          string   `json:"date"`
	Name          string   `json:"name"`
	MerchantName  string   `json:"merchant_name"`
	Amount        float64  `json:"amount"`
	Category      []string `json:"category"`
	Pending       bool     `json:"pending"`
}

type PlaidTransactionsSyncResponse struct {
	Added      []PlaidTransaction `json:"added"`
	Modified   []PlaidTransaction `json:"modified"`
	NextCursor string             `json:"next_cursor"`
	HasMore    bool               `json:"has_more"`
	RequestID  string             `json:"request_id"`
}

// PlaidErrorResponse is the error body Plaid returns with non-2xx statuses.
type PlaidErrorResponse struct {
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}
