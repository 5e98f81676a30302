package service

import (
	"github.com/castlemilk/pfinance/insights/internal/anomaly"
	"github.com/castlemilk/pfinance/insights/internal/classifier"
	"github.com/castlemilk/pfinance/insights/internal/engine"
	"github.com/castlemilk/pfinance/insights/internal/finance"
	"github.com/castlemilk/pfinance/insights/internal/forecast"
	"github.com/castlemilk/pfinance/insights/internal/savings"
)

type AddTransactionsRequest struct {
	Transactions []finance.Transaction `json:"transactions"`
}

type AddTransactionsResponse struct {
	IDs []string `json:"ids"`
}

type ListTransactionsRequest struct {
	// StartDate and EndDate are inclusive YYYY-MM-DD or RFC 3339 dates.
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	PageSize  int32  `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions  []*finance.Transaction `json:"transactions"`
	NextPageToken string                 `json:"nextPageToken,omitempty"`
}

type DeleteTransactionRequest struct {
	ID string `json:"id"`
}

type DeleteTransactionResponse struct{}

// SnapshotRequest is embedded by every analysis request. When Transactions
// is empty the caller's stored history is analysed.
type SnapshotRequest struct {
	Transactions []finance.Transaction `json:"transactions,omitempty"`
}

// SnapshotInfo tells the caller what was analysed.
type SnapshotInfo struct {
	TransactionsAnalyzed int  `json:"transactionsAnalyzed"`
	Truncated            bool `json:"truncated,omitempty"`
}

type PredictRequest struct {
	SnapshotRequest
	Horizon int `json:"horizon,omitempty"`
}

type PredictResponse struct {
	SnapshotInfo
	Predictions []forecast.Prediction `json:"predictions"`
}

type AnomaliesRequest struct {
	SnapshotRequest
}

type AnomaliesResponse struct {
	SnapshotInfo
	Anomalies []anomaly.Record `json:"anomalies"`
}

type SavingsGoalsRequest struct {
	SnapshotRequest
}

type SavingsGoalsResponse struct {
	SnapshotInfo
	Recommendation savings.Recommendation `json:"recommendation"`
}

type RecurringRequest struct {
	SnapshotRequest
	Horizon int `json:"horizon,omitempty"`
}

type RecurringResponse struct {
	SnapshotInfo
	Patterns []forecast.RecurringPattern `json:"patterns"`
}

type CategorizeRequest struct {
	Description string `json:"description"`
}

type CategorizeResponse struct {
	classifier.Result
}

type InsightsRequest struct {
	SnapshotRequest
	Horizon int `json:"horizon,omitempty"`
}

type InsightsResponse struct {
	SnapshotInfo
	Report engine.Report `json:"report"`
}
