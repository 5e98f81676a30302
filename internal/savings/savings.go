// Package savings recommends a monthly savings target from income and expense
// forecasts and per-category reduction heuristics.
package savings

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/finance"
	"github.com/castlemilk/pfinance/insights/internal/forecast"
)

// Priority orders savings opportunities.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Rule is the reduction heuristic for one category.
type Rule struct {
	Rate       float64
	Priority   Priority
	Suggestion string
}

// FrequencyTier raises the food rate when many transactions per month
// suggest eating out.
type FrequencyTier struct {
	MinMonthlyTransactions float64
	Rate                   float64
}

// Options holds the savings heuristics.
type Options struct {
	Rules       map[finance.Category]Rule
	FoodTiers   []FrequencyTier // checked in order, first match wins
	DefaultRule Rule

	LookbackMonths  int
	MinTransactions int
	MinPotential    float64

	TargetRate           float64 // fraction of income
	DeficitAdoption      float64 // share of top potentials when nothing is left over
	DeficitTopN          int
	PotentialAdoption    float64 // share of potential added to what is available
	ModerateTopN         int
	ModerateAdoption     float64
	AggressiveAdoption   float64
	EmergencyFundMonths  []int
	BaseConfidence       float64
	FewTransactions      int
	ManyTransactions     int
	FewPenalty, ManyGain float64
	MaxConfidence        float64
}

// DefaultOptions returns the documented heuristics.
func DefaultOptions() Options {
	return Options{
		Rules: map[finance.Category]Rule{
			finance.CategoryFood:           {Rate: 0.15, Priority: PriorityHigh, Suggestion: "Plan meals and cook at home more often"},
			finance.CategoryEntertainment:  {Rate: 0.30, Priority: PriorityHigh, Suggestion: "Review subscriptions and cancel the ones you rarely use"},
			finance.CategoryShopping:       {Rate: 0.25, Priority: PriorityHigh, Suggestion: "Wait a few days before non-essential purchases"},
			finance.CategoryTransportation: {Rate: 0.15, Priority: PriorityMedium, Suggestion: "Combine trips or use public transport"},
			finance.CategoryPersonal:       {Rate: 0.20, Priority: PriorityMedium, Suggestion: "Look for cheaper alternatives for personal care"},
			finance.CategoryUtilities:      {Rate: 0.10, Priority: PriorityLow, Suggestion: "Compare providers and reduce usage"},
		},
		FoodTiers: []FrequencyTier{
			{MinMonthlyTransactions: 15, Rate: 0.25},
			{MinMonthlyTransactions: 8, Rate: 0.20},
		},
		DefaultRule:         Rule{Rate: 0.10, Priority: PriorityLow, Suggestion: "Track this category and set a monthly limit"},
		LookbackMonths:      6,
		MinTransactions:     3,
		MinPotential:        10,
		TargetRate:          0.20,
		DeficitAdoption:     0.7,
		DeficitTopN:         3,
		PotentialAdoption:   0.5,
		ModerateTopN:        2,
		ModerateAdoption:    0.5,
		AggressiveAdoption:  0.8,
		EmergencyFundMonths: []int{3, 6},
		BaseConfidence:      0.75,
		FewTransactions:     10,
		ManyTransactions:    50,
		FewPenalty:          0.8,
		ManyGain:            1.1,
		MaxConfidence:       0.95,
	}
}

// Potential is the estimated monthly saving available in one category.
type Potential struct {
	Category             finance.Category `json:"category"`
	MonthlySpend         float64          `json:"monthlySpend"`
	Rate                 float64          `json:"rate"`
	Amount               float64          `json:"amount"`
	Priority             Priority         `json:"priority"`
	TransactionsPerMonth float64          `json:"transactionsPerMonth"`
	Suggestion           string           `json:"suggestion"`
}

// Goal is the time needed to build an emergency fund.
type Goal struct {
	Label        string  `json:"label"`
	TargetAmount float64 `json:"targetAmount"`
	Months       int     `json:"months"`
	Reachable    bool    `json:"reachable"`
}

// Scenario is one what-if savings plan.
type Scenario struct {
	Name                  string  `json:"name"`
	MonthlySavings        float64 `json:"monthlySavings"`
	SavingsRate           float64 `json:"savingsRate"`
	MonthsToEmergencyFund int     `json:"monthsToEmergencyFund"`
	Reachable             bool    `json:"reachable"`
}

// Recommendation is the output of Advise.
type Recommendation struct {
	RecommendedMonthlyAmount   float64     `json:"recommendedMonthlyAmount"`
	SavingsRatePercent         float64     `json:"savingsRatePercent"`
	ProjectedIncome            float64     `json:"projectedIncome"`
	ProjectedExpenses          float64     `json:"projectedExpenses"`
	AvailableForSavings        float64     `json:"availableForSavings"`
	PotentialSavingsByCategory []Potential `json:"potentialSavingsByCategory"`
	TotalPotentialSavings      float64     `json:"totalPotentialSavings"`
	TimeToGoal                 []Goal      `json:"timeToGoal"`
	Scenarios                  []Scenario  `json:"scenarios"`
	Confidence                 float64     `json:"confidence"`
	Narrative                  string      `json:"narrative"`
	Warnings                   []string    `json:"warnings,omitempty"`
}

// Advise builds a recommendation from the income and expense forecasts
// (normally three months ahead) and the expense history in txs.
func Advise(txs []finance.Transaction, income, expenses []forecast.Prediction, now time.Time, opts Options) (Recommendation, error) {
	potentials, err := CategoryPotentials(txs, now, opts)
	if err != nil {
		return Recommendation{}, err
	}

	avgIncome := forecast.AverageAmount(income)
	avgExpenses := forecast.AverageAmount(expenses)
	available := avgIncome - avgExpenses

	rec := Recommendation{
		ProjectedIncome:            avgIncome,
		ProjectedExpenses:          avgExpenses,
		AvailableForSavings:        available,
		PotentialSavingsByCategory: potentials,
	}
	rec.SavingsRatePercent = rate(available, avgIncome)
	for _, p := range potentials {
		rec.TotalPotentialSavings += p.Amount
	}

	switch {
	case available <= 0:
		rec.RecommendedMonthlyAmount = opts.DeficitAdoption * topSum(potentials, opts.DeficitTopN)
		rec.Narrative = fmt.Sprintf("Projected expenses exceed income by %.2f a month. Cutting back in your top categories could free up %.2f a month.",
			-available, rec.RecommendedMonthlyAmount)
	case rec.SavingsRatePercent >= opts.TargetRate*100:
		rec.RecommendedMonthlyAmount = available
		rec.Narrative = fmt.Sprintf("Great work: you are on track to save %.1f%% of your income. Keep putting aside %.2f a month.",
			rec.SavingsRatePercent, available)
	default:
		target := opts.TargetRate * avgIncome
		rec.RecommendedMonthlyAmount = math.Min(target, available+opts.PotentialAdoption*rec.TotalPotentialSavings)
		rec.Narrative = fmt.Sprintf("You are saving %.1f%% of your income. Aim for %.2f a month to move toward a %.0f%% savings rate.",
			rec.SavingsRatePercent, rec.RecommendedMonthlyAmount, opts.TargetRate*100)
	}

	for _, m := range opts.EmergencyFundMonths {
		target := float64(m) * avgExpenses
		months, ok := monthsTo(target, rec.RecommendedMonthlyAmount)
		rec.TimeToGoal = append(rec.TimeToGoal, Goal{
			Label:        fmt.Sprintf("%d-month emergency fund", m),
			TargetAmount: target,
			Months:       months,
			Reachable:    ok,
		})
	}

	base := math.Max(available, 0)
	rec.Scenarios = []Scenario{
		scenario("conservative", base, avgIncome, avgExpenses),
		scenario("moderate", base+opts.ModerateAdoption*topSum(potentials, opts.ModerateTopN), avgIncome, avgExpenses),
		scenario("aggressive", base+opts.AggressiveAdoption*rec.TotalPotentialSavings, avgIncome, avgExpenses),
	}

	rec.Confidence = opts.BaseConfidence
	switch {
	case len(txs) < opts.FewTransactions:
		rec.Confidence *= opts.FewPenalty
		rec.Warnings = append(rec.Warnings, "limited transaction history: recommendation is a rough estimate")
	case len(txs) > opts.ManyTransactions:
		rec.Confidence = math.Min(opts.MaxConfidence, rec.Confidence*opts.ManyGain)
	}
	if avgIncome <= 0 {
		rec.Warnings = append(rec.Warnings, "no income history: savings rate cannot be estimated")
	}
	return rec, nil
}

// CategoryPotentials estimates the monthly saving per expense category over
// the lookback window, ranked by priority then amount.
func CategoryPotentials(txs []finance.Transaction, now time.Time, opts Options) ([]Potential, error) {
	series, err := forecast.Aggregate(txs, finance.TypeExpense, now, opts.LookbackMonths)
	if err != nil {
		return nil, err
	}
	series = series.Dense()
	months := len(series.Months)
	if months == 0 {
		return nil, nil
	}

	var counts [finance.NumCategories]int
	earliest := series.Months[0].Key
	for _, tx := range txs {
		if tx.Type != finance.TypeExpense || !tx.Category.Valid() {
			continue
		}
		k := forecast.MonthOf(tx.Date)
		if k.Before(earliest) || series.Current.Before(k) {
			continue
		}
		counts[tx.Category]++
	}

	totals := series.CategoryTotals()
	var out []Potential
	for _, c := range finance.Categories() {
		if counts[c] < opts.MinTransactions {
			continue
		}
		monthly := totals.Get(c) / float64(months)
		perMonth := float64(counts[c]) / float64(months)
		rule := opts.rule(c, perMonth)
		amount := monthly * rule.Rate
		if amount < opts.MinPotential {
			continue
		}
		out = append(out, Potential{
			Category:             c,
			MonthlySpend:         monthly,
			Rate:                 rule.Rate,
			Amount:               amount,
			Priority:             rule.Priority,
			TransactionsPerMonth: perMonth,
			Suggestion:           rule.Suggestion,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority.rank() != out[j].Priority.rank() {
			return out[i].Priority.rank() > out[j].Priority.rank()
		}
		return out[i].Amount > out[j].Amount
	})
	return out, nil
}

func (o Options) rule(c finance.Category, perMonth float64) Rule {
	r, ok := o.Rules[c]
	if !ok {
		return o.DefaultRule
	}
	if c == finance.CategoryFood {
		for _, tier := range o.FoodTiers {
			if perMonth > tier.MinMonthlyTransactions {
				r.Rate = tier.Rate
				break
			}
		}
	}
	return r
}

func scenario(name string, monthly, income, expenses float64) Scenario {
	months, ok := monthsTo(3*expenses, monthly)
	return Scenario{
		Name:                  name,
		MonthlySavings:        monthly,
		SavingsRate:           rate(monthly, income),
		MonthsToEmergencyFund: months,
		Reachable:             ok,
	}
}

func topSum(potentials []Potential, n int) float64 {
	amounts := make([]float64, len(potentials))
	for i, p := range potentials {
		amounts[i] = p.Amount
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(amounts)))
	var sum float64
	for i := 0; i < n && i < len(amounts); i++ {
		sum += amounts[i]
	}
	return sum
}

func rate(amount, income float64) float64 {
	if income <= 0 {
		return 0
	}
	return amount / income * 100
}

// monthsTo returns ceil(target/monthly). It is not reachable when nothing is
// saved each month.
func monthsTo(target, monthly float64) (int, bool) {
	if target <= 0 {
		return 0, true
	}
	if monthly <= 0 {
		return 0, false
	}
	return int(math.Ceil(target / monthly)), true
}
