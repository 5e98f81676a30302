package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

const transactionsCollection = "transactions"

// FirestoreStore implements the Store interface using Firestore
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{
		client: client,
	}
}

// transactionDoc is the stored form. Amount keeps the exact decimal text;
// AmountCents supports range queries and sorting in the console.
type transactionDoc struct {
	ID          string    `firestore:"Id"`
	UserID      string    `firestore:"UserId"`
	Type        string    `firestore:"Type"`
	Amount      string    `firestore:"Amount"`
	AmountCents int64     `firestore:"AmountCents"`
	Description string    `firestore:"Description"`
	Category    string    `firestore:"Category"`
	Date        time.Time `firestore:"Date"`
	Account     string    `firestore:"Account,omitempty"`
	Tags        []string  `firestore:"Tags,omitempty"`
	Notes       string    `firestore:"Notes,omitempty"`
}

func toDoc(tx *finance.Transaction) transactionDoc {
	return transactionDoc{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		AmountCents: tx.Amount.Shift(2).Round(0).IntPart(),
		Description: tx.Description,
		Category:    tx.Category.String(),
		Date:        tx.Date.UTC(),
		Account:     tx.Account,
		Tags:        tx.Tags,
		Notes:       tx.Notes,
	}
}

func (d transactionDoc) transaction() (*finance.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		// documents written before the decimal field existed
		amount = decimal.New(d.AmountCents, -2)
	}
	category, err := finance.ParseCategory(d.Category)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", d.ID, err)
	}
	return &finance.Transaction{
		ID:          d.ID,
		UserID:      d.UserID,
		Type:        finance.TransactionType(d.Type),
		Amount:      amount,
		Description: d.Description,
		Category:    category,
		Date:        d.Date,
		Account:     d.Account,
		Tags:        d.Tags,
		Notes:       d.Notes,
	}, nil
}

// CreateTransaction creates a new transaction in Firestore
func (s *FirestoreStore) CreateTransaction(ctx context.Context, tx *finance.Transaction) error {
	if tx.ID == "" {
		tx.ID = s.client.Collection(transactionsCollection).NewDoc().ID
	}
	_, err := s.client.Collection(transactionsCollection).Doc(tx.ID).Set(ctx, toDoc(tx))
	return err
}

// BatchCreateTransactions writes transactions in batches of 500, the
// Firestore limit per commit.
func (s *FirestoreStore) BatchCreateTransactions(ctx context.Context, txs []*finance.Transaction) error {
	col := s.client.Collection(transactionsCollection)
	for i := 0; i < len(txs); i += 500 {
		batch := s.client.Batch()
		end := i + 500
		if end > len(txs) {
			end = len(txs)
		}
		for _, tx := range txs[i:end] {
			if tx.ID == "" {
				tx.ID = col.NewDoc().ID
			}
			batch.Set(col.Doc(tx.ID), toDoc(tx))
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("failed to batch create transactions: %w", err)
		}
	}
	return nil
}

// GetTransaction retrieves a transaction from Firestore
func (s *FirestoreStore) GetTransaction(ctx context.Context, transactionID string) (*finance.Transaction, error) {
	doc, err := s.client.Collection(transactionsCollection).Doc(transactionID).Get(ctx)
	if err != nil {
		if doc != nil && !doc.Exists() {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	var d transactionDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to parse transaction: %w", err)
	}
	return d.transaction()
}

// DeleteTransaction deletes a transaction from Firestore
func (s *FirestoreStore) DeleteTransaction(ctx context.Context, transactionID string) error {
	_, err := s.client.Collection(transactionsCollection).Doc(transactionID).Delete(ctx)
	return err
}

// ListTransactions lists a user's transactions ordered by date.
func (s *FirestoreStore) ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*finance.Transaction, string, error) {
	query := s.client.Collection(transactionsCollection).Query

	// NOTE: field names match the firestore tags on transactionDoc
	if userID != "" {
		query = query.Where("UserId", "==", userID)
	}
	if startDate != nil {
		query = query.Where("Date", ">=", *startDate)
	}
	if endDate != nil {
		query = query.Where("Date", "<=", *endDate)
	}

	// Range filters need OrderBy on the range field first; the cursor then
	// carries both the date and the document ID.
	query = query.OrderBy("Date", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		cursorDoc, err := s.client.Collection(transactionsCollection).Doc(docID).Get(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch cursor document: %w", err)
		}
		query = query.StartAfter(cursorDoc.Data()["Date"], docID)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	query = query.Limit(int(pageSize) + 1) // +1 to detect next page

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list transactions: %w", err)
	}

	var nextPageToken string
	if len(docs) > int(pageSize) {
		docs = docs[:pageSize]
		nextPageToken = EncodePageToken(docs[pageSize-1].Ref.ID)
	}

	txs := make([]*finance.Transaction, 0, len(docs))
	for _, doc := range docs {
		var d transactionDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, "", fmt.Errorf("failed to parse transaction: %w", err)
		}
		tx, err := d.transaction()
		if err != nil {
			return nil, "", err
		}
		txs = append(txs, tx)
	}
	return txs, nextPageToken, nil
}
