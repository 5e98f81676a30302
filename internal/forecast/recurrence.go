package forecast

import (
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

// RecurrenceOptions tunes DetectRecurring.
type RecurrenceOptions struct {
	// MaxCV is the interval coefficient of variation at or above which a
	// group is not recurring.
	MaxCV float64
	// MaxProjections caps projected dates per pattern.
	MaxProjections int
	// StaleIntervals marks a pattern inactive when its last occurrence is
	// more than this many intervals before now.
	StaleIntervals float64
}

// DefaultRecurrenceOptions returns the documented defaults.
func DefaultRecurrenceOptions() RecurrenceOptions {
	return RecurrenceOptions{MaxCV: 0.3, MaxProjections: 6, StaleIntervals: 2}
}

type period struct {
	days      int
	tolerance float64
	months    int // calendar step when > 0
	name      string
}

var canonicalPeriods = []period{
	{days: 7, tolerance: 1, name: "weekly"},
	{days: 14, tolerance: 2, name: "fortnightly"},
	{days: 30, tolerance: 3, months: 1, name: "monthly"},
	{days: 90, tolerance: 5, months: 3, name: "quarterly"},
	{days: 365, tolerance: 10, months: 12, name: "annually"},
}

// RecurringPattern is a transaction group with a consistent schedule.
type RecurringPattern struct {
	Key                  string                  `json:"key"`
	Description          string                  `json:"description"`
	Category             finance.Category        `json:"category"`
	Type                 finance.TransactionType `json:"type"`
	Amount               float64                 `json:"amount"`
	IntervalDays         int                     `json:"intervalDays"`
	Frequency            string                  `json:"frequency,omitempty"`
	Occurrences          int                     `json:"occurrences"`
	LastOccurrence       time.Time               `json:"lastOccurrence"`
	Confidence           float64                 `json:"confidence"`
	Active               bool                    `json:"active"`
	ProjectedOccurrences []time.Time             `json:"projectedOccurrences"`
	TransactionIDs       []string                `json:"transactionIds"`
}

// Occurrence is one projected recurring transaction.
type Occurrence struct {
	Description string           `json:"description"`
	Category    finance.Category `json:"category"`
	Amount      float64          `json:"amount"`
	Date        time.Time        `json:"date"`
	Confidence  float64          `json:"confidence"`
}

// OccurrencesIn returns the projected occurrences of p that fall in month.
func (p RecurringPattern) OccurrencesIn(month MonthKey) []Occurrence {
	var out []Occurrence
	for _, d := range p.ProjectedOccurrences {
		if MonthOf(d) == month {
			out = append(out, Occurrence{
				Description: p.Description,
				Category:    p.Category,
				Amount:      p.Amount,
				Date:        d,
				Confidence:  p.Confidence,
			})
		}
	}
	return out
}

// GroupKey is the normalized description+category grouping key.
func GroupKey(description string, category finance.Category) string {
	// Casers carry state; one per call keeps concurrent callers independent.
	normalized := strings.Join(strings.Fields(cases.Fold().String(description)), " ")
	return normalized + "|" + category.String()
}

// DetectRecurring finds recurring groups among transactions of type t and
// projects them forward until horizonEnd. Only dates after now are projected.
func DetectRecurring(txs []finance.Transaction, t finance.TransactionType, now, horizonEnd time.Time, opts RecurrenceOptions) []RecurringPattern {
	groups := make(map[string][]finance.Transaction)
	for _, tx := range txs {
		if tx.Type != t || tx.Date.After(now) {
			continue
		}
		key := GroupKey(tx.Description, tx.Category)
		groups[key] = append(groups[key], tx)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var patterns []RecurringPattern
	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})

		intervals := make([]float64, 0, len(group)-1)
		for i := 1; i < len(group); i++ {
			days := group[i].Day().Sub(group[i-1].Day()).Hours() / 24
			intervals = append(intervals, days)
		}
		meanInterval := Mean(intervals)
		if meanInterval <= 0 {
			continue
		}
		cv := StdDev(intervals) / meanInterval
		if cv >= opts.MaxCV {
			continue
		}

		confidence := 0.7 + (1-cv)*0.2 + math.Min(float64(len(group)-2)*0.05, 0.2)
		intervalDays := int(math.Round(meanInterval))
		var matched *period
		for i := range canonicalPeriods {
			p := &canonicalPeriods[i]
			if math.Abs(meanInterval-float64(p.days)) <= p.tolerance {
				matched = p
				intervalDays = p.days
				confidence += 0.05
				break
			}
		}
		confidence = math.Min(confidence, 0.95)

		amounts := make([]float64, len(group))
		ids := make([]string, len(group))
		for i, tx := range group {
			amounts[i] = tx.AmountFloat()
			ids[i] = tx.ID
		}
		last := group[len(group)-1]

		pattern := RecurringPattern{
			Key:            key,
			Description:    last.Description,
			Category:       last.Category,
			Type:           t,
			Amount:         Mean(amounts),
			IntervalDays:   intervalDays,
			Occurrences:    len(group),
			LastOccurrence: last.Day(),
			Confidence:     confidence,
			TransactionIDs: ids,
		}
		if matched != nil {
			pattern.Frequency = matched.name
		}

		staleAfter := time.Duration(opts.StaleIntervals*float64(intervalDays)*24) * time.Hour
		pattern.Active = now.Sub(pattern.LastOccurrence) <= staleAfter
		if pattern.Active {
			pattern.ProjectedOccurrences = project(pattern.LastOccurrence, anchorDay(group), intervalDays, matched, now, horizonEnd, opts.MaxProjections)
		}
		patterns = append(patterns, pattern)
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Confidence != patterns[j].Confidence {
			return patterns[i].Confidence > patterns[j].Confidence
		}
		return patterns[i].Amount > patterns[j].Amount
	})
	return patterns
}

// project steps forward from last. Calendar-aligned periods land on
// anchor, or on the last day of shorter months; other intervals step by days.
func project(last time.Time, anchor, intervalDays int, p *period, now, horizonEnd time.Time, max int) []time.Time {
	if intervalDays <= 0 {
		return nil
	}
	var out []time.Time
	for step := 1; len(out) < max; step++ {
		var next time.Time
		if p != nil && p.months > 0 {
			next = addMonthsClamped(last, p.months*step, anchor)
		} else {
			next = last.AddDate(0, 0, intervalDays*step)
		}
		if next.After(horizonEnd) {
			break
		}
		if next.After(now) {
			out = append(out, next)
		}
	}
	return out
}

// anchorDay is the day of month a calendar schedule keeps. Groups that always
// land on the last day of the month anchor to month end; a last occurrence
// pulled back by a short month keeps the group's latest day.
func anchorDay(group []finance.Transaction) int {
	allMonthEnd := true
	latest := 0
	for _, tx := range group {
		d := tx.Day()
		allMonthEnd = allMonthEnd && isMonthEnd(d)
		latest = max(latest, d.Day())
	}
	last := group[len(group)-1].Day()
	switch {
	case allMonthEnd:
		return 31
	case isMonthEnd(last):
		return latest
	}
	return last.Day()
}

func isMonthEnd(t time.Time) bool {
	return t.AddDate(0, 0, 1).Day() == 1
}

// addMonthsClamped moves t by months calendar months onto day, clamped to
// the length of the target month.
func addMonthsClamped(t time.Time, months, day int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	lastDay := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(day, lastDay)-1)
}
