package models

// Provenance records where the transactions behind a response came from.
type Provenance string

const (
	// ProvenanceLive means the bank-data provider answered.
	ProvenanceLive Provenance = "live"
	// ProvenanceMock means no provider is configured or the user has not linked a bank.
	ProvenanceMock Provenance = "mock"
	// ProvenanceFallback means a live fetch was attempted and failed, so mock data was substituted.
	ProvenanceFallback Provenance = "fallback"
)

const (
	LiveAccountName = "Linked Account (Plaid)"
	MockAccountName = "Mock Linked Account"
)

func (p Provenance) String() string {
	return string(p)
}

func (p Provenance) IsMock() bool {
	return p == ProvenanceMock || p == ProvenanceFallback
}

// TransactionBatch is the result of a transaction fetch.
type TransactionBatch struct {
	Transactions []Transaction
	AccountName  string
	Provenance   Provenance
}
