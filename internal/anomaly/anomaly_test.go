package anomaly

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

var now = time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)

// history builds one expense per month from January 2025, followed by the
// current (July) amount.
func history(c finance.Category, amounts []int64, current int64) []finance.Transaction {
	var txs []finance.Transaction
	for i, a := range amounts {
		txs = append(txs, finance.Transaction{
			ID:          fmt.Sprintf("%s-%d", c, i),
			Type:        finance.TypeExpense,
			Amount:      decimal.NewFromInt(a),
			Description: fmt.Sprintf("%s purchase %d", c, i),
			Category:    c,
			Date:        time.Date(2025, time.January+time.Month(i), 10, 0, 0, 0, 0, time.UTC),
		})
	}
	if current > 0 {
		txs = append(txs, finance.Transaction{
			ID:          fmt.Sprintf("%s-current", c),
			Type:        finance.TypeExpense,
			Amount:      decimal.NewFromInt(current),
			Description: fmt.Sprintf("%s purchase now", c),
			Category:    c,
			Date:        time.Date(2025, time.July, 3, 0, 0, 0, 0, time.UTC),
		})
	}
	return txs
}

func TestDetect_SurgeBoundary(t *testing.T) {
	base := []int64{200, 100, 300, 100, 300, 200}

	t.Run("exactly 30 percent is flagged", func(t *testing.T) {
		records, err := Detect(history(finance.CategoryFood, base, 260), now, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, records, 1)

		r := records[0]
		assert.Equal(t, finance.CategoryFood, r.Category)
		assert.Equal(t, TriggerSurge, r.Trigger)
		assert.Equal(t, SeverityLow, r.Severity)
		assert.InDelta(t, 30, r.PercentageIncrease, 1e-9)
		assert.Equal(t, 260.0, r.CurrentAmount)
		assert.Equal(t, 200.0, r.PriorMonthAmount)
		assert.InDelta(t, 200, r.HistoricalMean, 1e-9)
		assert.Equal(t, 1.0, r.ImpactOnBudget)
		require.Len(t, r.ContributingTransactions, 1)
		assert.Equal(t, "food-current", r.ContributingTransactions[0].ID)
		assert.Greater(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	})

	t.Run("29 percent is not flagged", func(t *testing.T) {
		records, err := Detect(history(finance.CategoryFood, base, 258), now, DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestDetect_StatisticalOutlier(t *testing.T) {
	records, err := Detect(history(finance.CategoryUtilities, []int64{100, 90, 100, 90, 100, 110}, 130), now, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, TriggerOutlier, r.Trigger)
	assert.Less(t, r.PercentageIncrease, 30.0)
	assert.Greater(t, r.ZScore, 3.0)
	assert.Equal(t, SeverityHigh, r.Severity)
}

func TestDetect_TrendOvershoot(t *testing.T) {
	records, err := Detect(history(finance.CategoryTransportation, []int64{150, 80, 150, 80, 100, 150}, 180), now, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, TriggerTrendOvershoot, r.Trigger)
	assert.Equal(t, SeverityLow, r.Severity)
	assert.LessOrEqual(t, r.ZScore, 2.0)
}

func TestDetect_Preconditions(t *testing.T) {
	t.Run("small current amount", func(t *testing.T) {
		records, err := Detect(history(finance.CategoryFood, []int64{5, 5, 5, 5, 5, 5}, 20), now, DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("too few historical transactions", func(t *testing.T) {
		txs := history(finance.CategoryFood, []int64{0, 0, 0, 0, 100, 100}, 500)
		// drop the zero-amount months so only two history transactions remain
		txs = txs[4:]
		records, err := Detect(txs, now, DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("no expenses", func(t *testing.T) {
		records, err := Detect(nil, now, DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("malformed date", func(t *testing.T) {
		txs := history(finance.CategoryFood, []int64{100, 100, 100}, 200)
		txs[0].Date = time.Time{}
		_, err := Detect(txs, now, DefaultOptions())
		require.Error(t, err)
		assert.True(t, finance.IsDataError(err))
	})
}

func TestDetect_OrderingAndImpact(t *testing.T) {
	// Shopping doubles (high); food rises 30% on a far larger base (low).
	txs := history(finance.CategoryFood, []int64{2000, 1000, 3000, 1000, 3000, 2000}, 2600)
	txs = append(txs, history(finance.CategoryShopping, []int64{100, 100, 100, 100, 100, 100}, 220)...)

	records, err := Detect(txs, now, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, finance.CategoryShopping, records[0].Category)
	assert.Equal(t, SeverityHigh, records[0].Severity)
	assert.Equal(t, finance.CategoryFood, records[1].Category)
	assert.Equal(t, SeverityLow, records[1].Severity)

	assert.InDelta(t, 220.0/2820.0, records[0].ImpactOnBudget, 1e-9)
	assert.InDelta(t, 2600.0/2820.0, records[1].ImpactOnBudget, 1e-9)
}

func TestDetect_Deterministic(t *testing.T) {
	txs := history(finance.CategoryFood, []int64{200, 100, 300, 100, 300, 200}, 400)
	txs = append(txs, history(finance.CategoryShopping, []int64{100, 100, 100, 100, 100, 100}, 220)...)

	a, err := Detect(txs, now, DefaultOptions())
	require.NoError(t, err)
	reversed := make([]finance.Transaction, len(txs))
	for i, tx := range txs {
		reversed[len(txs)-1-i] = tx
	}
	b, err := Detect(reversed, now, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
