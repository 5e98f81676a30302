package forecast

import (
	"math"
	"time"
)

// MinSeasonalPoints is the history length below which seasonal factors are
// not trusted.
const MinSeasonalPoints = 6

// Seasonality holds multiplicative factors per calendar month.
type Seasonality struct {
	factors      [12]float64
	observations [12]int
	reliable     bool
}

// EstimateSeasonality averages detrended ratios per calendar month. keys and
// values must be the same length and chronologically ordered.
func EstimateSeasonality(keys []MonthKey, values []float64, trend Trend) Seasonality {
	var s Seasonality
	if len(values) < MinSeasonalPoints || len(keys) != len(values) {
		return s
	}
	s.reliable = true

	var sums [12]float64
	for i, actual := range values {
		expected := trend.At(float64(i))
		if math.Abs(expected) < 1e-9 {
			expected = 1
		}
		ratio := math.Max(0, actual/expected)
		m := int(keys[i].Month) - 1
		sums[m] += ratio
		s.observations[m]++
	}
	for m := range sums {
		if s.observations[m] > 0 {
			s.factors[m] = sums[m] / float64(s.observations[m])
		}
	}
	return s
}

// Reliable reports whether enough history backed the estimate.
func (s Seasonality) Reliable() bool {
	return s.reliable
}

// Factor returns the factor for month, 1 when unobserved or unreliable.
func (s Seasonality) Factor(month time.Month) float64 {
	m := int(month) - 1
	if !s.reliable || s.observations[m] == 0 {
		return 1
	}
	return s.factors[m]
}

// Observations returns how many history points fell in month.
func (s Seasonality) Observations(month time.Month) int {
	return s.observations[int(month)-1]
}

// Coverage is the fraction of calendar months with a factor.
func (s Seasonality) Coverage() float64 {
	if !s.reliable {
		return 0
	}
	var covered int
	for _, n := range s.observations {
		if n > 0 {
			covered++
		}
	}
	return float64(covered) / 12
}

// ByMonthName returns the observed factors keyed by English month name.
func (s Seasonality) ByMonthName() map[string]float64 {
	out := make(map[string]float64)
	if !s.reliable {
		return out
	}
	for m := range s.factors {
		if s.observations[m] > 0 {
			out[time.Month(m+1).String()] = s.factors[m]
		}
	}
	return out
}
