package forecast

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrendOptions tunes FitTrend.
type TrendOptions struct {
	// Decay is k in the recency weight exp(k*i/(n-1)).
	Decay float64
	// MinPoints is the sample size below which no regression is attempted.
	MinPoints int
	// NoiseRSquared is the R^2 under which the slope is damped by R^2*2.
	NoiseRSquared float64
}

// DefaultTrendOptions returns the documented defaults.
func DefaultTrendOptions() TrendOptions {
	return TrendOptions{Decay: 0.3, MinPoints: 6, NoiseRSquared: 0.2}
}

// Trend is a fitted line y = Intercept + Slope*i over 0-indexed points.
type Trend struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	Points    int
	// Fitted is false when the sample was too small and the line is flat
	// at the mean.
	Fitted bool
}

// At evaluates the line at index i.
func (t Trend) At(i float64) float64 {
	return t.Intercept + t.Slope*i
}

// FitTrend runs a recency-weighted least-squares regression over values,
// oldest first.
func FitTrend(values []float64, opts TrendOptions) Trend {
	n := len(values)
	if n == 0 {
		return Trend{}
	}
	if n < opts.MinPoints || n < 2 {
		return Trend{Intercept: Mean(values), Points: n}
	}

	xs := make([]float64, n)
	weights := make([]float64, n)
	for i := range values {
		xs[i] = float64(i)
		weights[i] = math.Exp(opts.Decay * float64(i) / float64(n-1))
	}
	intercept, slope := stat.LinearRegression(xs, values, weights, false)

	// a flat series is fitted exactly
	rSquared := 1.0
	if floats.Max(values) > floats.Min(values) {
		rSquared = math.Max(0, stat.RSquared(xs, values, weights, intercept, slope))
	}

	if rSquared < opts.NoiseRSquared {
		// damped line still passes through the weighted centroid
		slope *= rSquared * 2
		intercept = stat.Mean(values, weights) - slope*stat.Mean(xs, weights)
	}

	return Trend{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  rSquared,
		Points:    n,
		Fitted:    true,
	}
}
