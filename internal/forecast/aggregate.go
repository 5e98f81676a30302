// Package forecast turns a transaction snapshot into monthly time series,
// fits trend and seasonality, detects recurring transactions, and projects
// expenses and income forward.
package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t (UTC).
func MonthOf(t time.Time) MonthKey {
	u := t.UTC()
	return MonthKey{Year: u.Year(), Month: u.Month()}
}

// Index is a monotonically increasing month number, usable for differences.
func (k MonthKey) Index() int {
	return k.Year*12 + int(k.Month) - 1
}

// AddMonths returns the month n months after k (n may be negative).
func (k MonthKey) AddMonths(n int) MonthKey {
	idx := k.Index() + n
	return MonthKey{Year: idx / 12, Month: time.Month(idx%12 + 1)}
}

// Before reports whether k is strictly earlier than other.
func (k MonthKey) Before(other MonthKey) bool {
	return k.Index() < other.Index()
}

// Start returns midnight UTC on the first day of the month.
func (k MonthKey) Start() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last instant of the month.
func (k MonthKey) End() time.Time {
	return k.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Label formats the month as "Jan 2006".
func (k MonthKey) Label() string {
	return k.Start().Format("Jan 2006")
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// MonthlyAggregate is the total of one transaction type in one month.
type MonthlyAggregate struct {
	Key        MonthKey
	Total      float64
	ByCategory finance.CategoryAmounts
	Count      int
}

// Series is a chronologically ordered list of monthly aggregates. Months
// without transactions are absent unless the series has been densified.
type Series struct {
	Type   finance.TransactionType
	Months []MonthlyAggregate
	// Current is the month containing the reference date.
	Current MonthKey
}

// Aggregate buckets transactions of type t by calendar month, looking back
// lookbackMonths months from the month containing now (inclusive). Future
// transactions are ignored.
func Aggregate(txs []finance.Transaction, t finance.TransactionType, now time.Time, lookbackMonths int) (Series, error) {
	current := MonthOf(now)
	earliest := current.AddMonths(-(lookbackMonths - 1))
	if lookbackMonths <= 0 {
		earliest = current
	}

	buckets := make(map[MonthKey]*MonthlyAggregate)
	for _, tx := range txs {
		if tx.Type != t {
			continue
		}
		if tx.Date.IsZero() {
			return Series{}, &finance.DataError{
				Code:          finance.ErrMalformedDate,
				Field:         "date",
				TransactionID: tx.ID,
				Message:       "date is missing",
			}
		}
		key := MonthOf(tx.Date)
		if key.Before(earliest) || current.Before(key) {
			continue
		}
		agg, ok := buckets[key]
		if !ok {
			agg = &MonthlyAggregate{Key: key}
			buckets[key] = agg
		}
		amount := tx.AmountFloat()
		agg.Total += amount
		agg.ByCategory.Add(tx.Category, amount)
		agg.Count++
	}

	months := make([]MonthlyAggregate, 0, len(buckets))
	for _, agg := range buckets {
		months = append(months, *agg)
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Key.Before(months[j].Key)
	})

	return Series{Type: t, Months: months, Current: current}, nil
}

// Dense returns a copy with zero-valued months filling every gap between the
// first observed month and the current month.
func (s Series) Dense() Series {
	if len(s.Months) == 0 {
		return Series{Type: s.Type, Current: s.Current}
	}
	byKey := make(map[MonthKey]MonthlyAggregate, len(s.Months))
	for _, m := range s.Months {
		byKey[m.Key] = m
	}
	first := s.Months[0].Key
	last := s.Current
	if last.Before(s.Months[len(s.Months)-1].Key) {
		last = s.Months[len(s.Months)-1].Key
	}

	out := make([]MonthlyAggregate, 0, last.Index()-first.Index()+1)
	for k := first; !last.Before(k); k = k.AddMonths(1) {
		if m, ok := byKey[k]; ok {
			out = append(out, m)
		} else {
			out = append(out, MonthlyAggregate{Key: k})
		}
	}
	return Series{Type: s.Type, Months: out, Current: s.Current}
}

// Completed drops the current month, which is still accumulating, unless it
// is the only month in the series.
func (s Series) Completed() Series {
	n := len(s.Months)
	if n < 2 || s.Months[n-1].Key != s.Current {
		return s
	}
	return Series{Type: s.Type, Months: s.Months[:n-1], Current: s.Current}
}

// Totals returns the monthly totals in order.
func (s Series) Totals() []float64 {
	out := make([]float64, len(s.Months))
	for i, m := range s.Months {
		out[i] = m.Total
	}
	return out
}

// Keys returns the month keys in order.
func (s Series) Keys() []MonthKey {
	out := make([]MonthKey, len(s.Months))
	for i, m := range s.Months {
		out[i] = m.Key
	}
	return out
}

// CategoryTotals sums every month's category breakdown.
func (s Series) CategoryTotals() finance.CategoryAmounts {
	var out finance.CategoryAmounts
	for _, m := range s.Months {
		for i, v := range m.ByCategory {
			out[i] += v
		}
	}
	return out
}

// Month returns the aggregate for key, or a zero aggregate if absent.
func (s Series) Month(key MonthKey) MonthlyAggregate {
	for _, m := range s.Months {
		if m.Key == key {
			return m
		}
	}
	return MonthlyAggregate{Key: key}
}
