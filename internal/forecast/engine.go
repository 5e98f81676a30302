package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

// TrendDirection labels the slope of monthly totals.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Prediction is the forecast for one future month.
type Prediction struct {
	Month                  string                  `json:"month"`
	Period                 MonthKey                `json:"-"`
	Amount                 float64                 `json:"amount"`
	CategoryBreakdown      finance.CategoryAmounts `json:"categoryBreakdown"`
	Confidence             float64                 `json:"confidence"`
	Trend                  TrendDirection          `json:"trend"`
	Volatility             float64                 `json:"volatility"`
	SeasonalFactors        map[string]float64      `json:"seasonalFactors"`
	RecurringContributions []Occurrence            `json:"recurringContributions"`
	AnomalyRisk            float64                 `json:"anomalyRisk,omitempty"`
	Warnings               []string                `json:"warnings,omitempty"`
}

// EngineConfig tunes one side (expense or income) of the forecast.
type EngineConfig struct {
	Type finance.TransactionType
	// LookbackMonths bounds the history window, current month included.
	LookbackMonths int
	// RecentWindow is the number of months in the recent average.
	RecentWindow int

	Trend      TrendOptions
	Recurrence RecurrenceOptions

	// BaseConfidence is picked by the largest MinPoints not above the
	// history length.
	BaseConfidence    []ConfidenceTier
	DistancePenalty   float64
	VolatilityPenalty float64
	SameMonthBonus    float64
	MinConfidence     float64
	MaxConfidence     float64

	// Blend weights.
	TrendWeight            float64
	TrendWeightLong        float64 // with >= LongHistory points
	LongHistory            int
	SeasonalWeight         float64 // scaled by seasonal coverage
	RecentWeight           float64 // reduced by RecentVolatilityWeight*volatility
	RecentVolatilityWeight float64
	MinRecentWeight        float64

	// Multipliers is the calendar prior applied with strength 1-coverage.
	Multipliers SeasonalMultipliers

	// TrendThreshold is |slope|/recentAverage above which the trend is
	// labelled increasing or decreasing.
	TrendThreshold float64

	// AnomalyRisk is only reported for expenses.
	ReportAnomalyRisk bool
}

// ConfidenceTier maps a minimum history length to a base confidence.
type ConfidenceTier struct {
	MinPoints  int
	Confidence float64
}

// SeasonalMultipliers is a fixed calendar-effect table indexed by month.
type SeasonalMultipliers [12]float64

// For returns the multiplier for month (1 if unset).
func (m SeasonalMultipliers) For(month time.Month) float64 {
	v := m[int(month)-1]
	if v == 0 {
		return 1
	}
	return v
}

// ExpenseMultipliers: holiday spend in December, post-holiday dip in
// January, summer travel.
var ExpenseMultipliers = SeasonalMultipliers{
	time.January - 1:  0.90,
	time.June - 1:     1.05,
	time.July - 1:     1.05,
	time.August - 1:   1.05,
	time.December - 1: 1.15,
}

// IncomeMultipliers: year-end bonuses in December.
var IncomeMultipliers = SeasonalMultipliers{
	time.January - 1:  0.95,
	time.June - 1:     1.05,
	time.July - 1:     1.05,
	time.August - 1:   1.05,
	time.December - 1: 1.10,
}

func baseConfig(t finance.TransactionType) EngineConfig {
	return EngineConfig{
		Type:                   t,
		LookbackMonths:         24,
		RecentWindow:           3,
		Trend:                  DefaultTrendOptions(),
		Recurrence:             DefaultRecurrenceOptions(),
		DistancePenalty:        0.05,
		VolatilityPenalty:      0.1,
		SameMonthBonus:         0.05,
		MinConfidence:          0.4,
		MaxConfidence:          0.95,
		TrendWeight:            0.3,
		TrendWeightLong:        0.5,
		LongHistory:            12,
		SeasonalWeight:         0.4,
		RecentWeight:           0.7,
		RecentVolatilityWeight: 0.3,
		MinRecentWeight:        0.1,
		TrendThreshold:         0.05,
	}
}

// ExpenseConfig returns the default expense engine configuration.
func ExpenseConfig() EngineConfig {
	cfg := baseConfig(finance.TypeExpense)
	cfg.BaseConfidence = []ConfidenceTier{{12, 0.85}, {6, 0.75}, {3, 0.65}, {0, 0.5}}
	cfg.Multipliers = ExpenseMultipliers
	cfg.ReportAnomalyRisk = true
	return cfg
}

// IncomeConfig returns the default income engine configuration. Income is
// steadier than spending, so short histories start from a higher base.
func IncomeConfig() EngineConfig {
	cfg := baseConfig(finance.TypeIncome)
	cfg.BaseConfidence = []ConfidenceTier{{12, 0.85}, {6, 0.8}, {3, 0.7}, {0, 0.5}}
	cfg.Multipliers = IncomeMultipliers
	return cfg
}

// PredictExpenses forecasts the next horizon months of expenses.
func PredictExpenses(txs []finance.Transaction, horizon int, now time.Time) ([]Prediction, error) {
	return Predict(txs, horizon, now, ExpenseConfig())
}

// PredictIncome forecasts the next horizon months of income.
func PredictIncome(txs []finance.Transaction, horizon int, now time.Time) ([]Prediction, error) {
	return Predict(txs, horizon, now, IncomeConfig())
}

// Predict runs the ensemble forecast for cfg.Type.
func Predict(txs []finance.Transaction, horizon int, now time.Time, cfg EngineConfig) ([]Prediction, error) {
	if horizon <= 0 {
		return nil, nil
	}
	current := MonthOf(now)
	horizonEnd := current.AddMonths(horizon).End()
	earliest := current.AddMonths(-(cfg.LookbackMonths - 1)).Start()

	total, err := Aggregate(txs, cfg.Type, now, cfg.LookbackMonths)
	if err != nil {
		return nil, err
	}
	total = total.Dense().Completed()

	windowed := make([]finance.Transaction, 0, len(txs))
	for _, tx := range finance.FilterType(txs, cfg.Type) {
		if !tx.Date.Before(earliest) {
			windowed = append(windowed, tx)
		}
	}

	patterns := DetectRecurring(windowed, cfg.Type, now, horizonEnd, cfg.Recurrence)
	// Membership is by group key: snapshot transactions need not carry IDs.
	layered := make(map[string]bool)
	for _, p := range patterns {
		if len(p.ProjectedOccurrences) > 0 {
			layered[p.Key] = true
		}
	}
	residualTxs := make([]finance.Transaction, 0, len(windowed))
	for _, tx := range windowed {
		if !layered[GroupKey(tx.Description, tx.Category)] {
			residualTxs = append(residualTxs, tx)
		}
	}
	residual, err := Aggregate(residualTxs, cfg.Type, now, cfg.LookbackMonths)
	if err != nil {
		return nil, err
	}
	residual = alignTo(residual, total)

	totals := total.Totals()
	values := residual.Totals()
	keys := total.Keys()
	n := len(values)

	model := FitTrend(values, cfg.Trend)
	seasonal := EstimateSeasonality(keys, values, model)
	coverage := seasonal.Coverage()
	volatility := CoefficientOfVariation(totals)
	recentAverage := RecentAverage(values, cfg.RecentWindow)

	labelTrend := FitTrend(totals, cfg.Trend)
	direction := trendLabel(labelTrend, RecentAverage(totals, cfg.RecentWindow), cfg.TrendThreshold)

	shares := residual.CategoryTotals()
	shareTotal := shares.Total()

	var warnings []string
	if n < cfg.Trend.MinPoints {
		warnings = append(warnings, "insufficient history: fewer than 6 months of data, forecast falls back to recent averages")
	}

	predictions := make([]Prediction, 0, horizon)
	prevConfidence := math.Inf(1)
	for i := 0; i < horizon; i++ {
		target := current.AddMonths(i + 1)
		futureIndex := float64(n + i)
		if n > 0 {
			futureIndex = float64(target.Index() - keys[0].Index())
		}

		trendPred := recentAverage
		if model.Fitted {
			trendPred = math.Max(0, model.At(futureIndex))
		}
		seasonalPred := recentAverage * seasonal.Factor(target.Month)

		trendW := 0.0
		if model.Fitted {
			trendW = cfg.TrendWeight
			if n >= cfg.LongHistory {
				trendW = cfg.TrendWeightLong
			}
		}
		seasonalW := cfg.SeasonalWeight * coverage
		recentW := math.Max(cfg.MinRecentWeight, cfg.RecentWeight-cfg.RecentVolatilityWeight*volatility)
		sumW := trendW + seasonalW + recentW

		base := (trendPred*trendW + seasonalPred*seasonalW + recentAverage*recentW) / sumW
		prior := 1 + (cfg.Multipliers.For(target.Month)-1)*(1-coverage)
		base = math.Max(0, base*prior)

		var breakdown finance.CategoryAmounts
		if base > 0 {
			if shareTotal > 0 {
				breakdown = shares.Scale(base / shareTotal)
			} else {
				breakdown.Add(finance.CategoryOther, base)
			}
		}

		amount := base
		var contributions []Occurrence
		for _, p := range patterns {
			for _, occ := range p.OccurrencesIn(target) {
				contributions = append(contributions, occ)
				amount += occ.Amount
				breakdown.Add(occ.Category, occ.Amount)
			}
		}
		sort.SliceStable(contributions, func(a, b int) bool {
			return contributions[a].Date.Before(contributions[b].Date)
		})

		confidence := baseConfidence(cfg.BaseConfidence, n)
		confidence -= cfg.DistancePenalty * float64(i)
		confidence -= volatility * cfg.VolatilityPenalty
		if seasonal.Observations(target.Month) >= 2 {
			confidence += cfg.SameMonthBonus
		}
		confidence = clamp(confidence, cfg.MinConfidence, cfg.MaxConfidence)
		confidence = math.Min(confidence, prevConfidence)
		prevConfidence = confidence

		pred := Prediction{
			Month:                  target.Label(),
			Period:                 target,
			Amount:                 amount,
			CategoryBreakdown:      breakdown,
			Confidence:             confidence,
			Trend:                  direction,
			Volatility:             volatility,
			SeasonalFactors:        seasonal.ByMonthName(),
			RecurringContributions: contributions,
			Warnings:               warnings,
		}
		if cfg.ReportAnomalyRisk {
			pred.AnomalyRisk = clamp(volatility*0.5+(1-confidence)*0.5, 0, 1)
		}
		predictions = append(predictions, pred)
	}
	return predictions, nil
}

// alignTo reshapes s onto the months of ref, zero-filling missing months.
func alignTo(s, ref Series) Series {
	byKey := make(map[MonthKey]MonthlyAggregate, len(s.Months))
	for _, m := range s.Months {
		byKey[m.Key] = m
	}
	out := make([]MonthlyAggregate, len(ref.Months))
	for i, m := range ref.Months {
		if agg, ok := byKey[m.Key]; ok {
			out[i] = agg
		} else {
			out[i] = MonthlyAggregate{Key: m.Key}
		}
	}
	return Series{Type: s.Type, Months: out, Current: ref.Current}
}

func baseConfidence(tiers []ConfidenceTier, n int) float64 {
	best := ConfidenceTier{MinPoints: -1}
	for _, t := range tiers {
		if n >= t.MinPoints && t.MinPoints > best.MinPoints {
			best = t
		}
	}
	return best.Confidence
}

func trendLabel(t Trend, recentAverage, threshold float64) TrendDirection {
	if recentAverage <= 0 || !t.Fitted {
		return TrendStable
	}
	if math.Abs(t.Slope)/recentAverage <= threshold {
		return TrendStable
	}
	if t.Slope > 0 {
		return TrendIncreasing
	}
	return TrendDecreasing
}

// AverageAmount averages the predicted amounts, 0 for no predictions.
func AverageAmount(predictions []Prediction) float64 {
	if len(predictions) == 0 {
		return 0
	}
	var sum float64
	for _, p := range predictions {
		sum += p.Amount
	}
	return sum / float64(len(predictions))
}
