// Package anomaly flags categories whose current-month spending departs from
// their recent history.
package anomaly

import (
	"math"
	"sort"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/finance"
	"github.com/castlemilk/pfinance/insights/internal/forecast"
)

// Severity ranks how urgently an anomaly should be surfaced.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Trigger names the test that flagged a record.
type Trigger string

const (
	TriggerSurge          Trigger = "month_over_month_surge"
	TriggerOutlier        Trigger = "statistical_outlier"
	TriggerTrendOvershoot Trigger = "trend_overshoot"
)

// Options holds the detection thresholds.
type Options struct {
	MinCurrentAmount          float64
	MinHistoricalTransactions int
	HistoryMonths             int

	SurgeThreshold float64 // fractional month-over-month increase
	ZThreshold     float64

	OvershootFactor    float64 // current > factor*(mean + SlopeMonths*slope)
	SlopeMonths        float64
	MaxTrendVolatility float64

	HighZ, MediumZ             float64
	HighPercent, MediumPercent float64
	SeverityBump               map[Severity]float64
	VolatilityWeight           float64
}

// DefaultOptions returns the documented thresholds.
func DefaultOptions() Options {
	return Options{
		MinCurrentAmount:          20,
		MinHistoricalTransactions: 3,
		HistoryMonths:             6,
		SurgeThreshold:            0.3,
		ZThreshold:                2,
		OvershootFactor:           1.3,
		SlopeMonths:               3,
		MaxTrendVolatility:        0.3,
		HighZ:                     3,
		MediumZ:                   2.5,
		HighPercent:               100,
		MediumPercent:             50,
		SeverityBump: map[Severity]float64{
			SeverityHigh:   0.3,
			SeverityMedium: 0.2,
			SeverityLow:    0.1,
		},
		VolatilityWeight: 0.5,
	}
}

// Contribution cites a current-month transaction behind an anomaly.
type Contribution struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
}

// Record is one flagged category.
type Record struct {
	Category                 finance.Category `json:"category"`
	CurrentAmount            float64          `json:"currentAmount"`
	PriorMonthAmount         float64          `json:"priorMonthAmount"`
	HistoricalMean           float64          `json:"historicalMean"`
	HistoricalStdDev         float64          `json:"historicalStdDev"`
	PercentageIncrease       float64          `json:"percentageIncrease"`
	ZScore                   float64          `json:"zScore"`
	Trigger                  Trigger          `json:"trigger"`
	Severity                 Severity         `json:"severity"`
	Score                    float64          `json:"anomalyScore"`
	ImpactOnBudget           float64          `json:"impactOnBudget"`
	ContributingTransactions []Contribution   `json:"contributingTransactions"`
}

// tolerance absorbs float error at the surge boundary.
const tolerance = 1e-9

type categoryHistory struct {
	amounts       []float64
	transactions  int
	contributions []Contribution
}

// Detect compares each expense category's spend in the month containing now
// against the prior month and the trailing history.
func Detect(txs []finance.Transaction, now time.Time, opts Options) ([]Record, error) {
	series, err := forecast.Aggregate(txs, finance.TypeExpense, now, opts.HistoryMonths+1)
	if err != nil {
		return nil, err
	}
	if len(series.Months) == 0 {
		return nil, nil
	}

	current := series.Current
	prior := current.AddMonths(-1)

	// History starts at the first month with any expense so users with a
	// short record are not compared against empty months.
	first := series.Months[0].Key
	start := current.AddMonths(-opts.HistoryMonths)
	if start.Before(first) {
		start = first
	}
	var historyKeys []forecast.MonthKey
	for k := start; k.Before(current); k = k.AddMonths(1) {
		historyKeys = append(historyKeys, k)
	}

	var histories [finance.NumCategories]categoryHistory
	for c := range histories {
		histories[c].amounts = make([]float64, len(historyKeys))
	}
	for i, k := range historyKeys {
		for c, v := range series.Month(k).ByCategory {
			histories[c].amounts[i] = v
		}
	}

	// Count history transactions and collect current-month citations.
	for _, tx := range txs {
		if tx.Type != finance.TypeExpense || !tx.Category.Valid() {
			continue
		}
		k := forecast.MonthOf(tx.Date)
		h := &histories[tx.Category]
		switch {
		case k == current:
			h.contributions = append(h.contributions, Contribution{
				ID:          tx.ID,
				Description: tx.Description,
				Amount:      tx.AmountFloat(),
				Date:        tx.Date,
			})
		case !k.Before(start) && k.Before(current):
			h.transactions++
		}
	}

	currentMonth := series.Month(current)
	totalCurrent := currentMonth.Total

	var records []Record
	for _, c := range finance.Categories() {
		h := histories[c]
		cur := currentMonth.ByCategory.Get(c)
		if cur <= opts.MinCurrentAmount || h.transactions < opts.MinHistoricalTransactions {
			continue
		}
		rec, ok := evaluate(cur, series.Month(prior).ByCategory.Get(c), h.amounts, opts)
		if !ok {
			continue
		}
		rec.Category = c
		if totalCurrent > 0 {
			rec.ImpactOnBudget = math.Min(1, cur/totalCurrent)
		}
		rec.ContributingTransactions = h.contributions
		sort.SliceStable(rec.ContributingTransactions, func(i, j int) bool {
			a, b := rec.ContributingTransactions[i], rec.ContributingTransactions[j]
			if a.Amount != b.Amount {
				return a.Amount > b.Amount
			}
			return a.ID < b.ID
		})
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() > b.Severity.rank()
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Category < b.Category
	})
	return records, nil
}

// evaluate runs the three triggers for one category.
func evaluate(cur, prior float64, history []float64, opts Options) (Record, bool) {
	mean := forecast.Mean(history)
	std := forecast.StdDev(history)
	volatility := forecast.CoefficientOfVariation(history)

	rec := Record{
		CurrentAmount:    cur,
		PriorMonthAmount: prior,
		HistoricalMean:   mean,
		HistoricalStdDev: std,
	}

	surge := false
	if prior > 0 {
		increase := (cur - prior) / prior
		rec.PercentageIncrease = increase * 100
		surge = increase >= opts.SurgeThreshold-tolerance
	}

	outlier := false
	if std > 0 {
		rec.ZScore = (cur - mean) / std
		outlier = rec.ZScore > opts.ZThreshold
	}

	overshoot := false
	if len(history) >= 3 && volatility < opts.MaxTrendVolatility {
		tr := forecast.FitTrend(history, forecast.TrendOptions{
			Decay:         forecast.DefaultTrendOptions().Decay,
			MinPoints:     3,
			NoiseRSquared: forecast.DefaultTrendOptions().NoiseRSquared,
		})
		if tr.Fitted && tr.Slope > 0 {
			overshoot = cur > opts.OvershootFactor*(mean+opts.SlopeMonths*tr.Slope)
		}
	}

	var magnitude float64
	switch {
	case surge:
		rec.Trigger = TriggerSurge
	case outlier:
		rec.Trigger = TriggerOutlier
	case overshoot:
		rec.Trigger = TriggerTrendOvershoot
	default:
		return Record{}, false
	}
	if surge {
		magnitude += rec.PercentageIncrease / 100
	}
	if outlier {
		magnitude += rec.ZScore / 5
	}
	if !surge && !outlier {
		magnitude = 0.1
	}

	if rec.Trigger == TriggerTrendOvershoot {
		rec.Severity = SeverityLow
	} else {
		rec.Severity = severity(rec.ZScore, rec.PercentageIncrease, opts)
	}

	score := magnitude + opts.SeverityBump[rec.Severity] + volatility*opts.VolatilityWeight
	rec.Score = math.Max(0, math.Min(1, score))
	return rec, true
}

func severity(z, percent float64, opts Options) Severity {
	switch {
	case z > opts.HighZ || percent >= opts.HighPercent:
		return SeverityHigh
	case z > opts.MediumZ || percent >= opts.MediumPercent:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
