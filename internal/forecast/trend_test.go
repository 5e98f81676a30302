package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitTrend(t *testing.T) {
	opts := DefaultTrendOptions()

	t.Run("perfect line", func(t *testing.T) {
		values := make([]float64, 12)
		for i := range values {
			values[i] = 100 + 10*float64(i)
		}
		tr := FitTrend(values, opts)
		require.True(t, tr.Fitted)
		assert.InDelta(t, 10, tr.Slope, 1e-9)
		assert.InDelta(t, 100, tr.Intercept, 1e-9)
		assert.InDelta(t, 1, tr.RSquared, 1e-9)
		assert.InDelta(t, 220, tr.At(12), 1e-9)
	})

	t.Run("small sample is flat at the mean", func(t *testing.T) {
		tr := FitTrend([]float64{10, 20, 60}, opts)
		assert.False(t, tr.Fitted)
		assert.Equal(t, 0.0, tr.Slope)
		assert.Equal(t, 30.0, tr.Intercept)
		assert.Equal(t, 3, tr.Points)
	})

	t.Run("empty", func(t *testing.T) {
		tr := FitTrend(nil, opts)
		assert.False(t, tr.Fitted)
		assert.Equal(t, 0.0, tr.At(5))
	})

	t.Run("constant series", func(t *testing.T) {
		tr := FitTrend([]float64{50, 50, 50, 50, 50, 50}, opts)
		assert.True(t, tr.Fitted)
		assert.InDelta(t, 0, tr.Slope, 1e-12)
		assert.InDelta(t, 50, tr.Intercept, 1e-9)
	})

	t.Run("noisy slope is damped", func(t *testing.T) {
		values := []float64{100, 200, 100, 200, 100, 200}
		raw := FitTrend(values, TrendOptions{Decay: opts.Decay, MinPoints: opts.MinPoints})
		require.Less(t, raw.RSquared, opts.NoiseRSquared)

		damped := FitTrend(values, opts)
		assert.InDelta(t, raw.Slope*raw.RSquared*2, damped.Slope, 1e-9)
		assert.Less(t, math.Abs(damped.Slope), math.Abs(raw.Slope))
	})

	t.Run("recent points weigh more", func(t *testing.T) {
		// A step up late in the series pulls the weighted fit above the
		// unweighted one.
		values := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 300}
		weighted := FitTrend(values, opts)
		flat := FitTrend(values, TrendOptions{Decay: 0, MinPoints: 6, NoiseRSquared: opts.NoiseRSquared})
		assert.Greater(t, weighted.At(9), flat.At(9))
	})
}

func TestEstimateSeasonality(t *testing.T) {
	start := MonthKey{2023, time.January}
	keys := func(n int) []MonthKey {
		out := make([]MonthKey, n)
		for i := range out {
			out[i] = start.AddMonths(i)
		}
		return out
	}

	t.Run("too little history is neutral", func(t *testing.T) {
		values := []float64{1, 2, 3}
		s := EstimateSeasonality(keys(3), values, FitTrend(values, DefaultTrendOptions()))
		assert.False(t, s.Reliable())
		assert.Equal(t, 1.0, s.Factor(time.January))
		assert.Equal(t, 0.0, s.Coverage())
		assert.Empty(t, s.ByMonthName())
	})

	t.Run("december peak", func(t *testing.T) {
		values := make([]float64, 24)
		for i := range values {
			values[i] = 1000
			if start.AddMonths(i).Month == time.December {
				values[i] = 2000
			}
		}
		s := EstimateSeasonality(keys(24), values, FitTrend(values, DefaultTrendOptions()))
		require.True(t, s.Reliable())
		assert.Equal(t, 1.0, s.Coverage())
		assert.Equal(t, 2, s.Observations(time.December))
		assert.Greater(t, s.Factor(time.December), 1.5)
		assert.Less(t, s.Factor(time.March), 1.0)
		assert.Len(t, s.ByMonthName(), 12)
	})

	t.Run("partial coverage leaves unobserved months neutral", func(t *testing.T) {
		values := []float64{500, 500, 500, 500, 500, 500}
		s := EstimateSeasonality(keys(6), values, FitTrend(values, DefaultTrendOptions()))
		assert.InDelta(t, 0.5, s.Coverage(), 1e-9)
		assert.InDelta(t, 1, s.Factor(time.February), 1e-9)
		assert.Equal(t, 1.0, s.Factor(time.October))
		assert.Equal(t, 0, s.Observations(time.October))
	})

	t.Run("zero series does not divide by zero", func(t *testing.T) {
		values := make([]float64, 8)
		s := EstimateSeasonality(keys(8), values, FitTrend(values, DefaultTrendOptions()))
		for m := time.January; m <= time.December; m++ {
			f := s.Factor(m)
			assert.False(t, math.IsNaN(f) || math.IsInf(f, 0), "month %s", m)
		}
	})
}
