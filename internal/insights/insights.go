// Package insights turns forecast, anomaly and savings results into short
// statements and ranked lists for display. It computes no statistics of its
// own beyond shares and differences of the values it is given.
package insights

import (
	"math"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/castlemilk/pfinance/insights/internal/anomaly"
	"github.com/castlemilk/pfinance/insights/internal/finance"
	"github.com/castlemilk/pfinance/insights/internal/forecast"
	"github.com/castlemilk/pfinance/insights/internal/savings"
)

// Input gathers the outputs the summary is derived from.
type Input struct {
	// Current is this month's expense aggregate.
	Current         forecast.MonthlyAggregate
	ExpenseForecast []forecast.Prediction
	IncomeForecast  []forecast.Prediction
	Anomalies       []anomaly.Record
	Savings         savings.Recommendation
}

// Options controls presentation.
type Options struct {
	Language      language.Tag
	TopCategories int
	TopTrends     int
}

// DefaultOptions returns English output with three categories and trends.
func DefaultOptions() Options {
	return Options{Language: language.English, TopCategories: 3, TopTrends: 3}
}

// CategoryShare is a category's slice of this month's spending.
type CategoryShare struct {
	Category finance.Category `json:"category"`
	Name     string           `json:"name"`
	Amount   float64          `json:"amount"`
	Share    float64          `json:"share"`
}

// TrendDelta compares a category's spend this month with next month's
// forecast.
type TrendDelta struct {
	Category      finance.Category `json:"category"`
	Name          string           `json:"name"`
	Current       float64          `json:"current"`
	Predicted     float64          `json:"predicted"`
	Change        float64          `json:"change"`
	ChangePercent float64          `json:"changePercent"`
}

// Summary is the output of Summarize.
type Summary struct {
	Statements    []string        `json:"statements"`
	TopCategories []CategoryShare `json:"topCategories"`
	Trends        []TrendDelta    `json:"trends"`
	Warnings      []string        `json:"warnings,omitempty"`
}

// Summarize builds the ordered statements and ranked lists.
func Summarize(in Input, opts Options) Summary {
	p := message.NewPrinter(opts.Language)
	title := cases.Title(opts.Language)
	name := func(c finance.Category) string { return title.String(c.String()) }

	var s Summary

	// Top categories by share of this month's spend
	total := in.Current.ByCategory.Total()
	if total > 0 {
		for _, ca := range in.Current.ByCategory.Ranked() {
			if len(s.TopCategories) == opts.TopCategories {
				break
			}
			s.TopCategories = append(s.TopCategories, CategoryShare{
				Category: ca.Category,
				Name:     name(ca.Category),
				Amount:   ca.Amount,
				Share:    ca.Amount / total * 100,
			})
		}
	}

	// Largest movements between this month and next month's forecast
	if len(in.ExpenseForecast) > 0 {
		next := in.ExpenseForecast[0].CategoryBreakdown
		var deltas []TrendDelta
		for _, c := range finance.Categories() {
			cur, pred := in.Current.ByCategory.Get(c), next.Get(c)
			if cur == 0 && pred == 0 {
				continue
			}
			d := TrendDelta{Category: c, Name: name(c), Current: cur, Predicted: pred, Change: pred - cur}
			if cur > 0 {
				d.ChangePercent = d.Change / cur * 100
			}
			deltas = append(deltas, d)
		}
		sort.SliceStable(deltas, func(i, j int) bool {
			return math.Abs(deltas[i].Change) > math.Abs(deltas[j].Change)
		})
		if len(deltas) > opts.TopTrends {
			deltas = deltas[:opts.TopTrends]
		}
		s.Trends = deltas
	}

	if len(s.TopCategories) > 0 {
		top := s.TopCategories[0]
		s.Statements = append(s.Statements, p.Sprintf("%s accounts for %.0f%% of your spending this month ($%.2f).",
			top.Name, top.Share, top.Amount))
	}

	for _, d := range s.Trends {
		switch {
		case d.Current == 0:
			s.Statements = append(s.Statements, p.Sprintf("%s spending of $%.2f is expected next month.", d.Name, d.Predicted))
		case d.Change > 0:
			s.Statements = append(s.Statements, p.Sprintf("%s spending is expected to rise %.0f%% next month.", d.Name, d.ChangePercent))
		case d.Change < 0:
			s.Statements = append(s.Statements, p.Sprintf("%s spending is expected to fall %.0f%% next month.", d.Name, -d.ChangePercent))
		}
	}

	if len(in.ExpenseForecast) > 0 {
		f := in.ExpenseForecast[0]
		s.Statements = append(s.Statements, p.Sprintf("Expenses for %s are forecast at $%.2f (%.0f%% confidence, %s trend).",
			f.Month, f.Amount, f.Confidence*100, f.Trend))
	}

	rec := in.Savings
	switch {
	case rec.ProjectedIncome <= 0:
	case rec.AvailableForSavings < 0:
		s.Statements = append(s.Statements, p.Sprintf("Projected expenses exceed income by $%.2f a month.", -rec.AvailableForSavings))
	case rec.SavingsRatePercent >= 20:
		s.Statements = append(s.Statements, p.Sprintf("You are saving %.1f%% of your income. Well done.", rec.SavingsRatePercent))
	default:
		s.Statements = append(s.Statements, p.Sprintf("You are saving %.1f%% of your income; 20%% is a healthy target.", rec.SavingsRatePercent))
	}
	switch n := len(rec.PotentialSavingsByCategory); n {
	case 0:
	case 1:
		s.Statements = append(s.Statements, p.Sprintf("Trimming %s could save about $%.2f a month.",
			name(rec.PotentialSavingsByCategory[0].Category), rec.TotalPotentialSavings))
	default:
		s.Statements = append(s.Statements, p.Sprintf("Trimming %d categories could save about $%.2f a month.", n, rec.TotalPotentialSavings))
	}

	if len(in.Anomalies) > 0 {
		a := in.Anomalies[0]
		if a.PriorMonthAmount > 0 {
			s.Statements = append(s.Statements, p.Sprintf("Unusual %s spending in %s: up %.0f%% on last month.",
				a.Severity, name(a.Category), a.PercentageIncrease))
		} else {
			s.Statements = append(s.Statements, p.Sprintf("Unusual %s spending in %s: $%.2f this month.",
				a.Severity, name(a.Category), a.CurrentAmount))
		}
	}

	for _, preds := range [][]forecast.Prediction{in.ExpenseForecast, in.IncomeForecast} {
		if len(preds) > 0 {
			s.Warnings = appendUnique(s.Warnings, preds[0].Warnings...)
		}
	}
	s.Warnings = appendUnique(s.Warnings, rec.Warnings...)
	if len(s.Statements) == 0 {
		s.Statements = append(s.Statements, "Add a few months of transactions to unlock insights.")
	}
	return s
}

func appendUnique(dst []string, src ...string) []string {
	for _, v := range src {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
