package services

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"nexusmc-api/internal/config"
	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/services/service_mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type PlaidClientTestSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	auditLogger *service_mocks.MockAuditLoggerInterface
	metrics     *service_mocks.MockMetricsRecorderInterface
	mux         *http.ServeMux
	server      *httptest.Server
	config      config.PlaidConfig
}

func TestPlaidClientSuite(t *testing.T) {
	suite.Run(t, new(PlaidClientTestSuite))
}

func (s *PlaidClientTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.auditLogger = service_mocks.NewMockAuditLoggerInterface(s.ctrl)
	s.metrics = service_mocks.NewMockMetricsRecorderInterface(s.ctrl)
	s.metrics.EXPECT().IncrementCounter(gomock.Any(), gomock.Any()).AnyTimes()
	s.metrics.EXPECT().RecordProcessingTime(gomock.Any(), gomock.Any()).AnyTimes()

	s.mux = http.NewServeMux()
	s.server = httptest.NewServer(s.mux)
	s.config = config.PlaidConfig{
		ClientID:     "client-id",
		Secret:       "secret",
		Environment:  config.PlaidEnvSandbox,
		ClientName:   "NexusMC AI",
		Language:     "es",
		Products:     []string{"transactions"},
		CountryCodes: []string{"US"},
		MaxRetries:   2,
	}
}

func (s *PlaidClientTestSuite) TearDownTest() {
	s.server.Close()
	s.ctrl.Finish()
}

func (s *PlaidClientTestSuite) newClient() BankDataProviderInterface {
	return NewPlaidClient(s.config, s.auditLogger, s.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithPlaidBaseURL(s.server.URL),
		WithPlaidRetryConfig(RetryConfig{
			MaxRetries:      s.config.MaxRetries,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
			MaxElapsedTime:  time.Second,
		}),
	)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *PlaidClientTestSuite) TestCreateLinkToken() {
	var captured dto.PlaidLinkTokenCreateRequest
	s.mux.HandleFunc("/link/token/create", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("client-id", r.Header.Get("PLAID-CLIENT-ID"))
		s.Equal("secret", r.Header.Get("PLAID-SECRET"))
		s.NoError(json.NewDecoder(r.Body).Decode(&captured))
		writeJSON(w, http.StatusOK, map[string]any{
			"link_token": "link-sandbox-123",
			"expiration": "2026-10-17T12:00:00Z",
			"request_id": "req-1",
		})
	})

	resp, err := s.newClient().CreateLinkToken(s.T().Context(), "user-1")

	s.Require().NoError(err)
	s.Equal("link-sandbox-123", resp.LinkToken)
	s.Equal(2026, resp.Expiration.Year())
	s.Equal("NexusMC AI", captured.ClientName)
	s.Equal("es", captured.Language)
	s.Equal([]string{"US"}, captured.CountryCodes)
	s.Equal([]string{"transactions"}, captured.Products)
	s.Equal("user-1", captured.User.ClientUserID)
}

func (s *PlaidClientTestSuite) TestNotConfigured() {
	s.config.ClientID = ""
	client := s.newClient()

	s.False(client.Enabled())

	_, err := client.CreateLinkToken(s.T().Context(), "user-1")
	s.ErrorIs(err, ErrProviderNotConfigured)
	_, err = client.ExchangePublicToken(s.T().Context(), "public")
	s.ErrorIs(err, ErrProviderNotConfigured)
	_, err = client.SyncTransactions(s.T().Context(), "access")
	s.ErrorIs(err, ErrProviderNotConfigured)
}

func (s *PlaidClientTestSuite) TestExchangePublicToken() {
	s.mux.HandleFunc("/item/public_token/exchange", func(w http.ResponseWriter, r *http.Request) {
		var req dto.PlaidPublicTokenExchangeRequest
		s.NoError(json.NewDecoder(r.Body).Decode(&req))
		s.Equal("public-sandbox-abc", req.PublicToken)
		writeJSON(w, http.StatusOK, dto.PlaidPublicTokenExchangeResponse{AccessToken: "access-sandbox-xyz", ItemID: "item-1"})
	})

	resp, err := s.newClient().ExchangePublicToken(s.T().Context(), "public-sandbox-abc")

	s.Require().NoError(err)
	s.Equal("access-sandbox-xyz", resp.AccessToken)
	s.Equal("item-1", resp.ItemID)
}

func (s *PlaidClientTestSuite) TestClientErrorIsPermanent() {
	var calls atomic.Int32
	s.mux.HandleFunc("/item/public_token/exchange", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, dto.PlaidErrorResponse{
			ErrorType:    "INVALID_INPUT",
			ErrorCode:    "INVALID_PUBLIC_TOKEN",
			ErrorMessage: "provided public token is in an invalid format",
			RequestID:    "req-2",
		})
	})

	_, err := s.newClient().ExchangePublicToken(s.T().Context(), "bogus")

	var providerErr *ProviderError
	s.Require().True(errors.As(err, &providerErr))
	s.True(providerErr.IsInvalidCredential())
	s.Equal("INVALID_PUBLIC_TOKEN", providerErr.ErrorCode)
	s.Equal("req-2", providerErr.RequestID)
	s.Equal(int32(1), calls.Load())
}

func (s *PlaidClientTestSuite) TestServerErrorIsRetried() {
	var calls atomic.Int32
	s.mux.HandleFunc("/link/token/create", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusInternalServerError, dto.PlaidErrorResponse{ErrorType: "API_ERROR", ErrorCode: "INTERNAL_SERVER_ERROR"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"link_token": "link-ok", "expiration": "2026-10-17T12:00:00Z"})
	})
	s.auditLogger.EXPECT().LogProviderRetry(gomock.Any(), plaidOperationLinkToken, gomock.Any(), gomock.Any(), gomock.Any()).Times(2)

	resp, err := s.newClient().CreateLinkToken(s.T().Context(), "user-1")

	s.Require().NoError(err)
	s.Equal("link-ok", resp.LinkToken)
	s.Equal(int32(3), calls.Load())
}

func (s *PlaidClientTestSuite) TestRetriesExhausted() {
	var calls atomic.Int32
	s.mux.HandleFunc("/transactions/sync", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	s.auditLogger.EXPECT().LogProviderRetry(gomock.Any(), plaidOperationSync, gomock.Any(), gomock.Any(), gomock.Any()).Times(2)

	_, err := s.newClient().SyncTransactions(s.T().Context(), "access")

	var providerErr *ProviderError
	s.Require().True(errors.As(err, &providerErr))
	s.Equal(http.StatusBadGateway, providerErr.StatusCode)
	s.False(providerErr.IsInvalidCredential())
	s.Equal(int32(3), calls.Load())
}

func (s *PlaidClientTestSuite) TestSyncTransactionsPages() {
	var calls atomic.Int32
	s.mux.HandleFunc("/transactions/sync", func(w http.ResponseWriter, r *http.Request) {
		var req dto.PlaidTransactionsSyncRequest
		s.NoError(json.NewDecoder(r.Body).Decode(&req))
		s.Equal("access", req.AccessToken)

		switch calls.Add(1) {
		case 1:
			s.Empty(req.Cursor)
			writeJSON(w, http.StatusOK, dto.PlaidTransactionsSyncResponse{
				Added: []dto.PlaidTransaction{
					{TransactionID: "t1", AccountID: "a1", Date: "2026-10-15", Name: "Starbucks", Amount: 4.33},
					{TransactionID: "bad", AccountID: "a1", Date: "15/10/2026", Name: "Broken", Amount: 1},
				},
				NextCursor: "cursor-2",
				HasMore:    true,
			})
		default:
			s.Equal("cursor-2", req.Cursor)
			writeJSON(w, http.StatusOK, dto.PlaidTransactionsSyncResponse{
				Added: []dto.PlaidTransaction{
					{TransactionID: "t2", AccountID: "a1", Date: "2026-10-16", MerchantName: "Uber", Amount: 12, Category: []string{"Travel"}},
				},
				NextCursor: "cursor-3",
				HasMore:    false,
			})
		}
	})

	transactions, err := s.newClient().SyncTransactions(s.T().Context(), "access")

	s.Require().NoError(err)
	s.Require().Len(transactions, 2)
	s.Equal("t1", transactions[0].TransactionID)
	s.Equal("2026-10-15", transactions[0].Date.String())
	s.Equal("Uber", transactions[1].Name)
	s.Equal([]string{"Travel"}, transactions[1].Category)
	s.Equal(int32(2), calls.Load())
}

func (s *PlaidClientTestSuite) TestSyncTransactionsStopsAtPageLimit() {
	var calls atomic.Int32
	s.mux.HandleFunc("/transactions/sync", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, dto.PlaidTransactionsSyncResponse{
			Added:      []dto.PlaidTransaction{{TransactionID: "t", Date: "2026-10-15", Name: "x", Amount: 1}},
			NextCursor: "more",
			HasMore:    true,
		})
	})

	transactions, err := s.newClient().SyncTransactions(s.T().Context(), "access")

	s.Require().NoError(err)
	s.Len(transactions, maxSyncPages)
	s.Equal(int32(maxSyncPages), calls.Load())
}

func (s *PlaidClientTestSuite) TestMalformedResponseIsNotRetried() {
	var calls atomic.Int32
	s.mux.HandleFunc("/item/public_token/exchange", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("not json"))
	})

	_, err := s.newClient().ExchangePublicToken(s.T().Context(), "public")

	s.Error(err)
	s.Equal(int32(1), calls.Load())
}
