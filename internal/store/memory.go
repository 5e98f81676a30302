package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

// MemoryStore implements Store interface with in-memory storage
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]*finance.Transaction
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]*finance.Transaction),
	}
}

func (m *MemoryStore) CreateTransaction(ctx context.Context, tx *finance.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(tx)
	return nil
}

// BatchCreateTransactions stores every transaction, assigning missing IDs.
func (m *MemoryStore) BatchCreateTransactions(ctx context.Context, txs []*finance.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tx := range txs {
		m.put(tx)
	}
	return nil
}

func (m *MemoryStore) put(tx *finance.Transaction) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	stored := *tx
	stored.Tags = append([]string(nil), tx.Tags...)
	m.transactions[tx.ID] = &stored
}

func (m *MemoryStore) GetTransaction(ctx context.Context, transactionID string) (*finance.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[transactionID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
	}
	out := *tx
	return &out, nil
}

func (m *MemoryStore) DeleteTransaction(ctx context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[transactionID]; !ok {
		return fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
	}
	delete(m.transactions, transactionID)
	return nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*finance.Transaction, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matching []*finance.Transaction
	for _, tx := range m.transactions {
		if userID != "" && tx.UserID != userID {
			continue
		}
		if startDate != nil && tx.Date.Before(*startDate) {
			continue
		}
		if endDate != nil && tx.Date.After(*endDate) {
			continue
		}
		matching = append(matching, tx)
	}

	// Same ordering as the Firestore query: date, then document ID
	sort.Slice(matching, func(i, j int) bool {
		if !matching[i].Date.Equal(matching[j].Date) {
			return matching[i].Date.Before(matching[j].Date)
		}
		return matching[i].ID < matching[j].ID
	})

	startIdx := 0
	if pageToken != "" {
		cursorID, err := DecodePageToken(pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		startIdx = len(matching)
		for i, tx := range matching {
			if tx.ID == cursorID {
				startIdx = i + 1
				break
			}
		}
	}
	matching = matching[startIdx:]

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	var nextToken string
	if len(matching) > int(pageSize) {
		matching = matching[:pageSize]
		nextToken = EncodePageToken(matching[pageSize-1].ID)
	}

	result := make([]*finance.Transaction, 0, len(matching))
	for _, tx := range matching {
		out := *tx
		result = append(result, &out)
	}
	return result, nextToken, nil
}
