package models

import (
	"errors"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("date must use the YYYY-MM-DD layout")

// Date is a calendar date without a time of day, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	value := strings.Trim(string(data), `"`)
	if value == "" || value == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Transaction is a single bank transaction as returned by the provider or the mock source.
// Positive amounts are money leaving the account; negative amounts are credits.
type Transaction struct {
	TransactionID string   `json:"transaction_id"`
	AccountID     string   `json:"account_id"`
	Date          Date     `json:"date"`
	Name          string   `json:"name"`
	Amount        float64  `json:"amount"`
	Category      []string `json:"category,omitempty"`
	Pending       bool     `json:"pending"`
}

// IsExpense reports whether the transaction is an outflow and therefore subject to categorization.
func (t Transaction) IsExpense() bool {
	return t.Amount > 0
}

// Expenses returns the expense subsequence in input order.
func Expenses(transactions []Transaction) []Transaction {
	expenses := make([]Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.IsExpense() {
			expenses = append(expenses, tx)
		}
	}
	return expenses
}
