// Package store persists transaction snapshots. The analytics core never
// touches it; the service loads a user's snapshot here and hands it over.
package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// ErrNotFound is returned (wrapped) when a transaction does not exist.
var ErrNotFound = errors.New("not found")

// DefaultPageSize applies when a caller passes a non-positive page size.
const DefaultPageSize = 100

// Store defines the persistence operations used by the service
type Store interface {
	CreateTransaction(ctx context.Context, tx *finance.Transaction) error
	BatchCreateTransactions(ctx context.Context, txs []*finance.Transaction) error
	GetTransaction(ctx context.Context, transactionID string) (*finance.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID string) error
	// ListTransactions returns a page of a user's transactions ordered by date,
	// optionally bounded by an inclusive date range.
	ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*finance.Transaction, string, error)
}

// LoadSnapshot pages through every transaction of userID on or after
// startDate (nil for all history).
func LoadSnapshot(ctx context.Context, s Store, userID string, startDate *time.Time) ([]finance.Transaction, error) {
	var (
		out   []finance.Transaction
		token string
	)
	for {
		page, next, err := s.ListTransactions(ctx, userID, startDate, nil, 500, token)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions: %w", err)
		}
		for _, tx := range page {
			out = append(out, *tx)
		}
		if next == "" {
			return out, nil
		}
		token = next
	}
}

// EncodePageToken encodes a document ID into a page token.
func EncodePageToken(docID string) string {
	if docID == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(docID))
}

// DecodePageToken decodes a page token back to a document ID.
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
