package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"connectrpc.com/connect"

	"github.com/castlemilk/pfinance/insights/internal/auth"
	"github.com/castlemilk/pfinance/insights/internal/engine"
	"github.com/castlemilk/pfinance/insights/internal/finance"
	"github.com/castlemilk/pfinance/insights/internal/logger"
	"github.com/castlemilk/pfinance/insights/internal/store"
)

// DefaultFreeTierLimit is how many of the most recent transactions a free
// account has analysed.
const DefaultFreeTierLimit = 100

// maxImportBatch bounds a single AddTransactions call.
const maxImportBatch = 5000

type InsightsService struct {
	store         store.Store
	engine        *engine.Engine
	freeTierLimit int
}

// Option configures an InsightsService.
type Option func(*InsightsService)

// WithFreeTierLimit overrides DefaultFreeTierLimit.
func WithFreeTierLimit(n int) Option {
	return func(s *InsightsService) {
		if n > 0 {
			s.freeTierLimit = n
		}
	}
}

func NewInsightsService(store store.Store, engine *engine.Engine, opts ...Option) *InsightsService {
	s := &InsightsService{
		store:         store,
		engine:        engine,
		freeTierLimit: DefaultFreeTierLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTransactions validates and stores transactions for the caller and
// returns their new IDs in request order.
func (s *InsightsService) AddTransactions(ctx context.Context, req *connect.Request[AddTransactionsRequest]) (*connect.Response[AddTransactionsResponse], error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if len(req.Msg.Transactions) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("no transactions supplied"))
	}
	if len(req.Msg.Transactions) > maxImportBatch {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("at most %d transactions per request", maxImportBatch))
	}
	if err := finance.ValidateAll(req.Msg.Transactions); err != nil {
		return nil, toConnectError(ctx, err)
	}

	txs := make([]*finance.Transaction, len(req.Msg.Transactions))
	for i := range req.Msg.Transactions {
		tx := req.Msg.Transactions[i]
		// stored IDs are always server assigned
		tx.ID = ""
		tx.UserID = caller.UID
		txs[i] = &tx
	}
	if err := s.store.BatchCreateTransactions(ctx, txs); err != nil {
		return nil, toConnectError(ctx, fmt.Errorf("failed to store transactions: %w", err))
	}

	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	return connect.NewResponse(&AddTransactionsResponse{IDs: ids}), nil
}

// ListTransactions pages through the caller's stored transactions.
func (s *InsightsService) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	startDate, err := optionalDate(req.Msg.StartDate, "startDate")
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	endDate, err := optionalDate(req.Msg.EndDate, "endDate")
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	if endDate != nil {
		// inclusive of the whole end day
		end := endDate.Add(24*time.Hour - time.Nanosecond)
		endDate = &end
	}

	txs, next, err := s.store.ListTransactions(ctx, caller.UID, startDate, endDate, req.Msg.PageSize, req.Msg.PageToken)
	if err != nil {
		return nil, toConnectError(ctx, fmt.Errorf("failed to list transactions: %w", err))
	}
	return connect.NewResponse(&ListTransactionsResponse{
		Transactions:  txs,
		NextPageToken: next,
	}), nil
}

// DeleteTransaction removes one of the caller's transactions.
func (s *InsightsService) DeleteTransaction(ctx context.Context, req *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.GetTransaction(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	if _, err := auth.RequireOwner(ctx, tx.UserID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteTransaction(ctx, tx.ID); err != nil {
		return nil, toConnectError(ctx, fmt.Errorf("failed to delete transaction %s: %w", tx.ID, err))
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("user", caller.UID).Str("transaction", tx.ID).Msg("transaction deleted")
	return connect.NewResponse(&DeleteTransactionResponse{}), nil
}

// PredictExpenses forecasts the caller's expenses.
func (s *InsightsService) PredictExpenses(ctx context.Context, req *connect.Request[PredictRequest]) (*connect.Response[PredictResponse], error) {
	txs, info, err := s.snapshot(ctx, req.Msg.SnapshotRequest)
	if err != nil {
		return nil, err
	}
	preds, err := s.engine.PredictExpenses(ctx, txs, req.Msg.Horizon)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&PredictResponse{SnapshotInfo: info, Predictions: preds}), nil
}

// PredictIncome forecasts the caller's income.
func (s *InsightsService) PredictIncome(ctx context.Context, req *connect.Request[PredictRequest]) (*connect.Response[PredictResponse], error) {
	txs, info, err := s.snapshot(ctx, req.Msg.SnapshotRequest)
	if err != nil {
		return nil, err
	}
	preds, err := s.engine.PredictIncome(ctx, txs, req.Msg.Horizon)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&PredictResponse{SnapshotInfo: info, Predictions: preds}), nil
}

// IdentifyAnomalousSpending flags unusual spending this month.
func (s *InsightsService) IdentifyAnomalousSpending(ctx context.Context, req *connect.Request[AnomaliesRequest]) (*connect.Response[AnomaliesResponse], error) {
	txs, info, err := s.snapshot(ctx, req.Msg.SnapshotRequest)
	if err != nil {
		return nil, err
	}
	records, err := s.engine.IdentifyAnomalousSpending(ctx, txs)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&AnomaliesResponse{SnapshotInfo: info, Anomalies: records}), nil
}

// SuggestSavingsGoals recommends a savings target.
func (s *InsightsService) SuggestSavingsGoals(ctx context.Context, req *connect.Request[SavingsGoalsRequest]) (*connect.Response[SavingsGoalsResponse], error) {
	txs, info, err := s.snapshot(ctx, req.Msg.SnapshotRequest)
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.SuggestSavingsGoals(ctx, txs)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&SavingsGoalsResponse{SnapshotInfo: info, Recommendation: rec}), nil
}

// DetectRecurring lists recurring transactions and their next dates.
func (s *InsightsService) DetectRecurring(ctx context.Context, req *connect.Request[RecurringRequest]) (*connect.Response[RecurringResponse], error) {
	txs, info, err := s.snapshot(ctx, req.Msg.SnapshotRequest)
	if err != nil {
		return nil, err
	}
	patterns, err := s.engine.DetectRecurring(ctx, txs, req.Msg.Horizon)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&RecurringResponse{SnapshotInfo: info, Patterns: patterns}), nil
}

// CategorizeTransaction suggests a category for a description. It needs no
// stored data, only an authenticated caller.
func (s *InsightsService) CategorizeTransaction(ctx context.Context, req *connect.Request[CategorizeRequest]) (*connect.Response[CategorizeResponse], error) {
	if _, err := auth.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	return connect.NewResponse(&CategorizeResponse{Result: s.engine.CategorizeTransaction(req.Msg.Description)}), nil
}

// GenerateFinancialInsights runs every analysis and summarizes them.
func (s *InsightsService) GenerateFinancialInsights(ctx context.Context, req *connect.Request[InsightsRequest]) (*connect.Response[InsightsResponse], error) {
	txs, info, err := s.snapshot(ctx, req.Msg.SnapshotRequest)
	if err != nil {
		return nil, err
	}
	report, err := s.engine.GenerateFinancialInsights(ctx, txs, req.Msg.Horizon)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&InsightsResponse{SnapshotInfo: info, Report: report}), nil
}

// snapshot resolves the transactions to analyse: the inline list if one was
// sent, otherwise the caller's stored history inside the engine's window.
// Free accounts are then limited to their most recent transactions.
func (s *InsightsService) snapshot(ctx context.Context, req SnapshotRequest) ([]finance.Transaction, SnapshotInfo, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, SnapshotInfo{}, err
	}

	txs := req.Transactions
	if len(txs) == 0 {
		since := s.engine.HistoryStart()
		txs, err = store.LoadSnapshot(ctx, s.store, caller.UID, &since)
		if err != nil {
			return nil, SnapshotInfo{}, toConnectError(ctx, err)
		}
	}

	var truncated bool
	if auth.EffectiveTier(ctx) != auth.TierPro {
		txs, truncated = MostRecent(txs, s.freeTierLimit)
	}
	if truncated {
		log := logger.FromContext(ctx)
		log.Debug().Str("user", caller.UID).Int("limit", s.freeTierLimit).Msg("free tier snapshot truncated")
	}
	return txs, SnapshotInfo{TransactionsAnalyzed: len(txs), Truncated: truncated}, nil
}

// MostRecent returns the n most recent transactions (date, then ID, both
// descending) and whether anything was dropped. The input is not modified.
func MostRecent(txs []finance.Transaction, n int) ([]finance.Transaction, bool) {
	if n <= 0 || len(txs) <= n {
		return txs, false
	}
	sorted := make([]finance.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted[:n], true
}

func optionalDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := finance.ParseDate(s)
	if err != nil {
		return nil, &finance.DataError{
			Code:    finance.ErrMalformedDate,
			Field:   field,
			Message: fmt.Sprintf("cannot parse %s %q", field, s),
			Cause:   err,
		}
	}
	return &t, nil
}
