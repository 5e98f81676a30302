package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/pfinance/insights/internal/finance"
	"github.com/castlemilk/pfinance/insights/internal/logger"
)

var now = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTx(id string, t finance.TransactionType, amount string, desc string, c finance.Category, when time.Time) finance.Transaction {
	return finance.Transaction{
		ID:          id,
		Type:        t,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		Category:    c,
		Date:        when,
	}
}

// snapshot is a year of salary, rent and groceries with a shopping spike in
// the current month.
func snapshot() []finance.Transaction {
	var txs []finance.Transaction
	for i := 0; i < 12; i++ {
		m := now.AddDate(0, -i, 0)
		first := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
		txs = append(txs,
			newTx(fmt.Sprintf("sal-%d", i), finance.TypeIncome, "5000", "ACME payroll", finance.CategorySalary, first),
			newTx(fmt.Sprintf("rent-%d", i), finance.TypeExpense, "1800", "Rent", finance.CategoryHousing, first.AddDate(0, 0, 2)),
		)
		for w := 0; w < 4; w++ {
			txs = append(txs, newTx(fmt.Sprintf("food-%d-%d", i, w), finance.TypeExpense, fmt.Sprintf("%d", 120+10*w),
				fmt.Sprintf("Groceries week %d", w), finance.CategoryFood, first.AddDate(0, 0, 4+7*w)))
		}
		shop := "80"
		if i == 0 {
			shop = "400"
		}
		for s := 0; s < 2; s++ {
			txs = append(txs, newTx(fmt.Sprintf("shop-%d-%d", i, s), finance.TypeExpense, shop,
				fmt.Sprintf("Store visit %d-%d", i, s), finance.CategoryShopping, first.AddDate(0, 0, 5+s)))
		}
	}
	return txs
}

func newEngine(opts ...Option) *Engine {
	return New(append([]Option{WithClock(FixedClock(now))}, opts...)...)
}

func TestNew_Clamps(t *testing.T) {
	tests := []struct {
		name             string
		horizon          int
		lookback         int
		expectedHorizon  int
		expectedLookback int
	}{
		{"defaults", 0, 0, 3, 24},
		{"in range", 6, 12, 6, 12},
		{"too large", 100, 100, 24, 60},
		{"lookback too small", 1, 2, 1, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Horizon = tc.horizon
			cfg.LookbackMonths = tc.lookback
			e := newEngine(WithConfig(cfg))
			assert.Equal(t, tc.expectedHorizon, e.Config().Horizon)
			assert.Equal(t, tc.expectedLookback, e.Config().LookbackMonths)
			assert.Equal(t, tc.expectedLookback, e.Config().Expense.LookbackMonths)
			assert.Equal(t, tc.expectedLookback, e.Config().Income.LookbackMonths)
		})
	}
}

func TestHistoryStart(t *testing.T) {
	assert.Equal(t, time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC), newEngine().HistoryStart())

	cfg := DefaultConfig()
	cfg.LookbackMonths = 3
	// the anomaly history needs seven months
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), newEngine(WithConfig(cfg)).HistoryStart())
}

func TestPredict_Horizon(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	txs := snapshot()

	for requested, expected := range map[int]int{0: 3, -2: 3, 1: 1, 12: 12, 500: 24} {
		preds, err := e.PredictExpenses(ctx, txs, requested)
		require.NoError(t, err)
		assert.Len(t, preds, expected, "horizon %d", requested)
	}

	preds, err := e.PredictIncome(ctx, txs, 2)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "Jul 2025", preds[0].Month)
	assert.InEpsilon(t, 5000, preds[0].Amount, 0.05)
}

func TestPredictIncome_SteadySalary(t *testing.T) {
	var txs []finance.Transaction
	for i := 0; i < 7; i++ {
		paid := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
		txs = append(txs, newTx(paid.Format("2006-01"), finance.TypeIncome, "3000", "salary", finance.CategorySalary, paid))
	}
	preds, err := newEngine().PredictIncome(context.Background(), txs, 1)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.InEpsilon(t, 3000, preds[0].Amount, 0.05)
	assert.GreaterOrEqual(t, preds[0].Confidence, 0.8)
	require.Len(t, preds[0].RecurringContributions, 1)
	assert.Equal(t, 3000.0, preds[0].RecurringContributions[0].Amount)
	assert.Equal(t, finance.CategorySalary, preds[0].RecurringContributions[0].Category)
}

func TestEntryPoints_RejectInvalidSnapshot(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	txs := snapshot()
	bad := newTx("bad", finance.TypeExpense, "-5", "refund", finance.CategoryFood, now)
	txs = append(txs, bad)

	calls := map[string]func() error{
		"PredictExpenses": func() error { _, err := e.PredictExpenses(ctx, txs, 3); return err },
		"PredictIncome":   func() error { _, err := e.PredictIncome(ctx, txs, 3); return err },
		"IdentifyAnomalousSpending": func() error {
			_, err := e.IdentifyAnomalousSpending(ctx, txs)
			return err
		},
		"SuggestSavingsGoals": func() error { _, err := e.SuggestSavingsGoals(ctx, txs); return err },
		"GenerateFinancialInsights": func() error {
			_, err := e.GenerateFinancialInsights(ctx, txs, 3)
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			var dataErr *finance.DataError
			require.True(t, errors.As(err, &dataErr), "expected DataError, got %v", err)
			assert.Equal(t, finance.ErrNegativeAmount, dataErr.Code)
			assert.Equal(t, "bad", dataErr.TransactionID)
		})
	}
}

func TestIdentifyAnomalousSpending(t *testing.T) {
	records, err := newEngine().IdentifyAnomalousSpending(context.Background(), snapshot())
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, finance.CategoryShopping, records[0].Category)
	assert.InDelta(t, 800, records[0].CurrentAmount, 1e-9)
	assert.Len(t, records[0].ContributingTransactions, 2)
}

func TestSuggestSavingsGoals(t *testing.T) {
	rec, err := newEngine().SuggestSavingsGoals(context.Background(), snapshot())
	require.NoError(t, err)
	assert.Greater(t, rec.ProjectedIncome, 0.0)
	assert.Greater(t, rec.RecommendedMonthlyAmount, 0.0)
	require.Len(t, rec.Scenarios, 3)
	assert.LessOrEqual(t, rec.Scenarios[0].SavingsRate, rec.Scenarios[1].SavingsRate)
	assert.LessOrEqual(t, rec.Scenarios[1].SavingsRate, rec.Scenarios[2].SavingsRate)
	assert.NotEmpty(t, rec.Narrative)
}

func TestDetectRecurring(t *testing.T) {
	patterns, err := newEngine().DetectRecurring(context.Background(), snapshot(), 3)
	require.NoError(t, err)

	byDescription := make(map[string]bool)
	for _, p := range patterns {
		byDescription[p.Description] = true
		assert.True(t, p.Active, p.Description)
		assert.Equal(t, 30, p.IntervalDays, p.Description)
	}
	assert.True(t, byDescription["ACME payroll"])
	assert.True(t, byDescription["Rent"])
	assert.True(t, byDescription["Groceries week 0"])
	// one-off store visits never recur
	assert.False(t, byDescription["Store visit 0-0"])

	for i := 1; i < len(patterns); i++ {
		assert.GreaterOrEqual(t, patterns[i-1].Confidence, patterns[i].Confidence)
	}
}

func TestCategorizeTransaction(t *testing.T) {
	res := newEngine().CategorizeTransaction("Monthly Netflix subscription")
	assert.Equal(t, finance.CategoryEntertainment, res.Category)
	assert.Greater(t, res.Confidence, 0.5)
	assert.LessOrEqual(t, len(res.Alternatives), 2)
}

func TestGenerateFinancialInsights(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	txs := snapshot()

	report, err := e.GenerateFinancialInsights(ctx, txs, 2)
	require.NoError(t, err)
	assert.Equal(t, now, report.GeneratedAt)
	assert.Len(t, report.ExpenseForecast, 2)
	assert.Len(t, report.IncomeForecast, 2)

	// every section matches its standalone entry point
	expenses, err := e.PredictExpenses(ctx, txs, 2)
	require.NoError(t, err)
	assert.Equal(t, expenses, report.ExpenseForecast)
	income, err := e.PredictIncome(ctx, txs, 2)
	require.NoError(t, err)
	assert.Equal(t, income, report.IncomeForecast)
	anomalies, err := e.IdentifyAnomalousSpending(ctx, txs)
	require.NoError(t, err)
	assert.Equal(t, anomalies, report.Anomalies)
	rec, err := e.SuggestSavingsGoals(ctx, txs)
	require.NoError(t, err)
	assert.Equal(t, rec, report.Savings)

	require.NotEmpty(t, report.Summary.TopCategories)
	assert.Equal(t, finance.CategoryHousing, report.Summary.TopCategories[0].Category)
	assert.NotEmpty(t, report.Summary.Statements)
}

func TestGenerateFinancialInsights_Deterministic(t *testing.T) {
	e := newEngine()
	txs := snapshot()
	a, err := e.GenerateFinancialInsights(context.Background(), txs, 3)
	require.NoError(t, err)

	// reversed input order
	reversed := make([]finance.Transaction, len(txs))
	for i, tx := range txs {
		reversed[len(txs)-1-i] = tx
	}
	b, err := e.GenerateFinancialInsights(context.Background(), reversed, 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateFinancialInsights_Empty(t *testing.T) {
	report, err := newEngine().GenerateFinancialInsights(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, report.Anomalies)
	assert.Equal(t, []string{"Add a few months of transactions to unlock insights."}, report.Summary.Statements)
}

func TestClockIsConsulted(t *testing.T) {
	calls := 0
	clock := ClockFunc(func() time.Time {
		calls++
		return now
	})
	e := New(WithClock(clock))
	_, err := e.GenerateFinancialInsights(context.Background(), snapshot(), 1)
	require.NoError(t, err)
	// one reference date per invocation
	assert.Equal(t, 1, calls)
}

func TestLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewWithWriter(buf, logger.Options{Level: "debug", Format: "json"})

	e := newEngine(WithLogger(log))
	_, err := e.PredictExpenses(context.Background(), snapshot(), 1)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "forecast complete")
	assert.Contains(t, buf.String(), `"component":"engine"`)

	// a request-scoped logger takes precedence
	reqBuf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(reqBuf, logger.Options{Level: "debug", Format: "json"}))
	buf.Reset()
	_, err = e.IdentifyAnomalousSpending(ctx, snapshot())
	require.NoError(t, err)
	assert.Contains(t, reqBuf.String(), "anomaly detection complete")
	assert.Empty(t, buf.String())
}
