// Package finance defines the transaction snapshot consumed by the analytics
// core and the validation rules applied to it.
package finance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType partitions transactions for every downstream aggregation.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is an immutable input record.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId,omitempty"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Date        time.Time       `json:"date"`
	Account     string          `json:"account,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// AmountFloat returns the amount as a float64 for statistics.
func (t Transaction) AmountFloat() float64 {
	return t.Amount.InexactFloat64()
}

// Day returns the transaction date truncated to midnight UTC.
func (t Transaction) Day() time.Time {
	d := t.Date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate checks a single transaction.
func Validate(tx Transaction) error {
	if !tx.Type.Valid() {
		return &DataError{
			Code:          ErrUnknownType,
			Field:         "type",
			TransactionID: tx.ID,
			Message:       fmt.Sprintf("unknown transaction type %q", tx.Type),
		}
	}
	if tx.Amount.IsNegative() {
		return &DataError{
			Code:          ErrNegativeAmount,
			Field:         "amount",
			TransactionID: tx.ID,
			Message:       fmt.Sprintf("amount must be non-negative, got %s", tx.Amount.String()),
		}
	}
	if !tx.Category.Valid() {
		return &DataError{
			Code:          ErrUnknownCategory,
			Field:         "category",
			TransactionID: tx.ID,
			Message:       fmt.Sprintf("unknown category value %d", int(tx.Category)),
		}
	}
	if tx.Date.IsZero() {
		return &DataError{
			Code:          ErrMalformedDate,
			Field:         "date",
			TransactionID: tx.ID,
			Message:       "date is missing",
		}
	}
	return nil
}

// ValidateAll checks every transaction and returns the first failure.
func ValidateAll(txs []Transaction) error {
	for _, tx := range txs {
		if err := Validate(tx); err != nil {
			return err
		}
	}
	return nil
}

// FilterType returns the transactions of type t, preserving order.
func FilterType(txs []Transaction, t TransactionType) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

// wireTransaction is the JSON shape accepted on input. Dates may be plain
// calendar dates or RFC 3339 timestamps.
type wireTransaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId,omitempty"`
	Type        TransactionType `json:"type"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Account     string          `json:"account,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// UnmarshalJSON decodes a transaction, reporting malformed fields as *DataError.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w wireTransaction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	date, err := ParseDate(w.Date)
	if err != nil {
		return &DataError{Code: ErrMalformedDate, Field: "date", TransactionID: w.ID, Message: "cannot parse date", Cause: err}
	}

	var amount decimal.Decimal
	if len(w.Amount) > 0 {
		if err := amount.UnmarshalJSON(w.Amount); err != nil {
			return &DataError{Code: ErrMalformedAmount, Field: "amount", TransactionID: w.ID, Message: "cannot parse amount", Cause: err}
		}
	}

	category := CategoryOther
	if w.Category != "" {
		category, err = ParseCategory(w.Category)
		if err != nil {
			de := err.(*DataError)
			de.TransactionID = w.ID
			return de
		}
	}

	*t = Transaction{
		ID:          w.ID,
		UserID:      w.UserID,
		Type:        TransactionType(strings.ToLower(string(w.Type))),
		Amount:      amount,
		Description: w.Description,
		Category:    category,
		Date:        date,
		Account:     w.Account,
		Tags:        w.Tags,
		Notes:       w.Notes,
	}
	return nil
}

// ParseDate accepts "2006-01-02" or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, s)
}
