package forecast

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

func TestPredictIncome_SteadySalary(t *testing.T) {
	var txs []finance.Transaction
	for i := 0; i < 7; i++ {
		txs = append(txs, income(3000, "Salary", finance.CategorySalary, date(2024, time.December, 1).AddDate(0, i, 0)))
	}
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	preds, err := PredictIncome(txs, 1, now)
	require.NoError(t, err)
	require.Len(t, preds, 1)

	p := preds[0]
	assert.Equal(t, "Jul 2025", p.Month)
	assert.InEpsilon(t, 3000, p.Amount, 0.05)
	assert.GreaterOrEqual(t, p.Confidence, 0.8)
	assert.Zero(t, p.AnomalyRisk)

	require.Len(t, p.RecurringContributions, 1)
	assert.Equal(t, 3000.0, p.RecurringContributions[0].Amount)
	assert.Equal(t, finance.CategorySalary, p.RecurringContributions[0].Category)
	assert.InDelta(t, 3000, p.CategoryBreakdown.Get(finance.CategorySalary), 1e-9)
}

func TestPredictExpenses_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	start := MonthKey{2024, time.January}
	var txs []finance.Transaction
	for i := 0; i < 18; i++ {
		k := start.AddMonths(i)
		txs = append(txs,
			expense(1500, "Rent", finance.CategoryHousing, k.Start()),
			expense(15, "Streaming", finance.CategoryEntertainment, k.Start().AddDate(0, 0, 11)),
			expense(200+rng.Int63n(300), "groceries "+k.String(), finance.CategoryFood, k.Start().AddDate(0, 0, 5)),
			expense(50+rng.Int63n(150), "misc "+k.String(), finance.CategoryShopping, k.Start().AddDate(0, 0, 20)),
		)
	}
	now := time.Date(2025, time.June, 25, 0, 0, 0, 0, time.UTC)

	preds, err := PredictExpenses(txs, 6, now)
	require.NoError(t, err)
	require.Len(t, preds, 6)

	for i, p := range preds {
		assert.GreaterOrEqual(t, p.Amount, 0.0)
		assert.GreaterOrEqual(t, p.Confidence, 0.4)
		assert.LessOrEqual(t, p.Confidence, 0.95)
		assert.InDelta(t, p.Amount, p.CategoryBreakdown.Total(), 1e-6, "breakdown must sum to the amount")
		assert.GreaterOrEqual(t, p.AnomalyRisk, 0.0)
		assert.LessOrEqual(t, p.AnomalyRisk, 1.0)
		assert.Contains(t, []TrendDirection{TrendIncreasing, TrendDecreasing, TrendStable}, p.Trend)
		assert.False(t, math.IsNaN(p.Volatility))
		if i > 0 {
			assert.LessOrEqual(t, p.Confidence, preds[i-1].Confidence)
		}
		// Rent is recurring and lands in every month.
		assert.GreaterOrEqual(t, p.CategoryBreakdown.Get(finance.CategoryHousing), 1500.0)
	}
	assert.Equal(t, "Jul 2025", preds[0].Month)
	assert.Equal(t, "Dec 2025", preds[5].Month)
	assert.Empty(t, preds[0].Warnings)
}

func TestPredict_Deterministic(t *testing.T) {
	txs := monthlyExpenses(MonthKey{2024, time.March}, []int64{400, 520, 610, 380, 450, 700, 520, 480, 530, 610, 590, 640}, finance.CategoryFood)
	txs = append(txs, monthlyExpenses(MonthKey{2024, time.June}, []int64{90, 40, 60, 80, 75}, finance.CategoryTransportation)...)
	now := date(2025, time.February, 20)

	first, err := PredictExpenses(txs, 4, now)
	require.NoError(t, err)

	shuffled := append([]finance.Transaction(nil), txs...)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	second, err := PredictExpenses(shuffled, 4, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPredict_CalendarPriorWithThinHistory(t *testing.T) {
	txs := monthlyExpenses(MonthKey{2025, time.September}, []int64{1000, 1000, 1000}, finance.CategoryShopping)
	now := date(2025, time.November, 15)

	preds, err := PredictExpenses(txs, 2, now)
	require.NoError(t, err)
	require.Len(t, preds, 2)

	assert.Equal(t, "Dec 2025", preds[0].Month)
	assert.InDelta(t, 1150, preds[0].Amount, 1e-6)
	assert.InDelta(t, 900, preds[1].Amount, 1e-6)
	assert.InDelta(t, 1150, preds[0].CategoryBreakdown.Get(finance.CategoryShopping), 1e-6)
	assert.Equal(t, TrendStable, preds[0].Trend)
	assert.NotEmpty(t, preds[0].Warnings)
	assert.Empty(t, preds[0].SeasonalFactors)
	assert.Less(t, preds[1].Confidence, preds[0].Confidence)
}

func TestPredict_TrendLabel(t *testing.T) {
	amounts := make([]int64, 12)
	for i := range amounts {
		amounts[i] = 1000 + 200*int64(i)
	}
	txs := monthlyExpenses(MonthKey{2024, time.July}, amounts, finance.CategoryFood)
	now := date(2025, time.July, 2)

	preds, err := PredictExpenses(txs, 1, now)
	require.NoError(t, err)
	assert.Equal(t, "Aug 2025", preds[0].Month)
	assert.Equal(t, TrendIncreasing, preds[0].Trend)
	assert.Greater(t, preds[0].Amount, 3000.0)

	reversed := make([]int64, len(amounts))
	for i, a := range amounts {
		reversed[len(amounts)-1-i] = a
	}
	preds, err = PredictExpenses(monthlyExpenses(MonthKey{2024, time.July}, reversed, finance.CategoryFood), 1, now)
	require.NoError(t, err)
	assert.Equal(t, TrendDecreasing, preds[0].Trend)
}

func TestPredict_MonthEndSalary(t *testing.T) {
	var txs []finance.Transaction
	for m := time.January; m <= time.May; m++ {
		txs = append(txs, income(3000, "Salary", finance.CategorySalary, date(2025, m+1, 0)))
	}

	preds, err := PredictIncome(txs, 3, date(2025, time.June, 10))
	require.NoError(t, err)
	require.Len(t, preds, 3)

	expected := []time.Time{date(2025, time.July, 31), date(2025, time.August, 31), date(2025, time.September, 30)}
	for i, p := range preds {
		assert.InDelta(t, 3000, p.Amount, 1e-9, p.Month)
		require.Len(t, p.RecurringContributions, 1, p.Month)
		assert.Equal(t, expected[i], p.RecurringContributions[0].Date)
	}
}

func TestPredict_TransactionsWithoutIDs(t *testing.T) {
	var withIDs []finance.Transaction
	for i := 0; i < 12; i++ {
		k := MonthKey{2024, time.July}.AddMonths(i)
		withIDs = append(withIDs,
			expense(15, "Netflix", finance.CategoryEntertainment, k.Start().AddDate(0, 0, 4)),
			expense(1000, "groceries "+k.String(), finance.CategoryFood, k.Start().AddDate(0, 0, 9)),
		)
	}
	withoutIDs := make([]finance.Transaction, len(withIDs))
	for i, tx := range withIDs {
		tx.ID = ""
		withoutIDs[i] = tx
	}
	now := date(2025, time.June, 20)

	expected, err := PredictExpenses(withIDs, 2, now)
	require.NoError(t, err)
	actual, err := PredictExpenses(withoutIDs, 2, now)
	require.NoError(t, err)

	assert.Equal(t, expected, actual)
	require.Len(t, actual, 2)
	assert.InEpsilon(t, 1000, actual[0].CategoryBreakdown.Get(finance.CategoryFood), 0.05)
	assert.InDelta(t, 15, actual[0].CategoryBreakdown.Get(finance.CategoryEntertainment), 1e-9)
}

func TestPredict_StableAcrossMonthBoundary(t *testing.T) {
	amounts := make([]int64, 12)
	for i := range amounts {
		amounts[i] = 1000
	}
	txs := monthlyExpenses(MonthKey{2024, time.June}, amounts, finance.CategoryFood)

	for _, now := range []time.Time{date(2025, time.May, 28), date(2025, time.June, 2)} {
		t.Run(now.Format("2006-01-02"), func(t *testing.T) {
			preds, err := PredictExpenses(txs, 1, now)
			require.NoError(t, err)
			require.Len(t, preds, 1)
			assert.InEpsilon(t, 1000, preds[0].Amount, 0.01)
			assert.InDelta(t, 0, preds[0].Volatility, 1e-9)
			assert.Equal(t, TrendStable, preds[0].Trend)
		})
	}
}

func TestPredict_EdgeCases(t *testing.T) {
	now := date(2025, time.June, 15)

	t.Run("no history", func(t *testing.T) {
		preds, err := PredictExpenses(nil, 3, now)
		require.NoError(t, err)
		require.Len(t, preds, 3)
		for _, p := range preds {
			assert.Equal(t, 0.0, p.Amount)
			assert.GreaterOrEqual(t, p.Confidence, 0.4)
			assert.Equal(t, TrendStable, p.Trend)
			assert.NotEmpty(t, p.Warnings)
		}
	})

	t.Run("zero horizon", func(t *testing.T) {
		preds, err := PredictIncome(nil, 0, now)
		require.NoError(t, err)
		assert.Empty(t, preds)
	})

	t.Run("missing date fails before output", func(t *testing.T) {
		txs := monthlyExpenses(MonthKey{2025, time.January}, []int64{10, 20}, finance.CategoryFood)
		txs = append(txs, expense(5, "bad", finance.CategoryFood, time.Time{}))
		preds, err := PredictExpenses(txs, 3, now)
		require.Error(t, err)
		assert.True(t, finance.IsDataError(err))
		assert.Nil(t, preds)
	})

	t.Run("income and expense do not mix", func(t *testing.T) {
		txs := monthlyExpenses(MonthKey{2025, time.January}, []int64{100, 100, 100, 100, 100, 100}, finance.CategoryFood)
		preds, err := PredictIncome(txs, 2, now)
		require.NoError(t, err)
		for _, p := range preds {
			assert.Equal(t, 0.0, p.Amount)
		}
	})
}

func TestAverageAmount(t *testing.T) {
	assert.Equal(t, 0.0, AverageAmount(nil))
	assert.Equal(t, 150.0, AverageAmount([]Prediction{{Amount: 100}, {Amount: 200}}))
}
