package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_IsExpense(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		expense bool
	}{
		{"positive amount is an expense", 12.50, true},
		{"negative amount is a credit", -500, false},
		{"zero amount is not an expense", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expense, Transaction{Amount: tt.amount}.IsExpense())
		})
	}
}

func TestExpenses_KeepsOrder(t *testing.T) {
	transactions := []Transaction{
		{TransactionID: "a", Amount: 5},
		{TransactionID: "b", Amount: -20},
		{TransactionID: "c", Amount: 7},
		{TransactionID: "d", Amount: 0},
	}

	expenses := Expenses(transactions)

	require.Len(t, expenses, 2)
	assert.Equal(t, "a", expenses[0].TransactionID)
	assert.Equal(t, "c", expenses[1].TransactionID)
}

func TestDate_JSON(t *testing.T) {
	tx := Transaction{
		TransactionID: "mock_1",
		Date:          NewDate(time.Date(2024, time.March, 9, 17, 45, 0, 0, time.Local)),
		Amount:        12.5,
	}

	body, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"date":"2024-03-09"`)

	var decoded Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"transaction_id":"x","date":"2023-12-31","amount":1}`), &decoded))
	assert.Equal(t, "2023-12-31", decoded.Date.String())
}

func TestDate_UnmarshalInvalid(t *testing.T) {
	var d Date
	assert.ErrorIs(t, d.UnmarshalJSON([]byte(`"31/12/2023"`)), ErrInvalidDate)
	assert.NoError(t, d.UnmarshalJSON([]byte(`null`)))
	assert.True(t, d.IsZero())
}
