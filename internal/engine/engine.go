// Package engine is the entry point into the analytics core. It validates a
// transaction snapshot once, pins "now" from an injected Clock, applies the
// horizon and lookback caps, and runs the forecast, anomaly, savings and
// classifier components over it.
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/castlemilk/pfinance/insights/internal/anomaly"
	"github.com/castlemilk/pfinance/insights/internal/classifier"
	"github.com/castlemilk/pfinance/insights/internal/finance"
	"github.com/castlemilk/pfinance/insights/internal/forecast"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/castlemilk/pfinance/insights/internal/logger"
	"github.com/castlemilk/pfinance/insights/internal/savings"
)

// Clock supplies the reference date for every computation.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Horizon and lookback bounds keep worst-case work linear in the snapshot.
const (
	DefaultHorizon  = 3
	MaxHorizon      = 24
	DefaultLookback = 24
	MinLookback     = 3
	MaxLookback     = 60
	// SavingsHorizon is how far ahead the savings advisor looks.
	SavingsHorizon = 3
)

// Config bundles the tunables of every component.
type Config struct {
	Horizon        int
	LookbackMonths int

	Expense  forecast.EngineConfig
	Income   forecast.EngineConfig
	Anomaly  anomaly.Options
	Savings  savings.Options
	Insights insights.Options
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Horizon:        DefaultHorizon,
		LookbackMonths: DefaultLookback,
		Expense:        forecast.ExpenseConfig(),
		Income:         forecast.IncomeConfig(),
		Anomaly:        anomaly.DefaultOptions(),
		Savings:        savings.DefaultOptions(),
		Insights:       insights.DefaultOptions(),
	}
}

// Engine runs the analytics entry points. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	cfg        Config
	clock      Clock
	log        *zerolog.Logger
	classifier *classifier.Classifier
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the reference clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets a logger used when the request context carries none.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = &log }
}

// WithClassifier replaces the default lexicon classifier.
func WithClassifier(c *classifier.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithConfig replaces the component configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// New creates an Engine. Out-of-range horizon and lookback settings are
// clamped rather than rejected.
func New(opts ...Option) *Engine {
	e := &Engine{cfg: DefaultConfig(), clock: SystemClock{}}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = classifier.New(classifier.DefaultLexicon(), classifier.DefaultOptions())
	}
	e.cfg.Horizon = ClampHorizon(e.cfg.Horizon)
	e.cfg.LookbackMonths = clampInt(e.cfg.LookbackMonths, MinLookback, MaxLookback, DefaultLookback)
	e.cfg.Expense.LookbackMonths = e.cfg.LookbackMonths
	e.cfg.Income.LookbackMonths = e.cfg.LookbackMonths
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// HistoryStart is the earliest date any entry point reads: the first day of
// the oldest month in the lookback window, or of the anomaly history if that
// reaches further back.
func (e *Engine) HistoryStart() time.Time {
	months := e.cfg.LookbackMonths
	if n := e.cfg.Anomaly.HistoryMonths + 1; n > months {
		months = n
	}
	if n := e.cfg.Savings.LookbackMonths; n > months {
		months = n
	}
	return forecast.MonthOf(e.clock.Now()).AddMonths(-(months - 1)).Start()
}

// ClampHorizon maps a requested horizon into [1, MaxHorizon], using the
// default for zero or negative requests.
func ClampHorizon(h int) int {
	return clampInt(h, 1, MaxHorizon, DefaultHorizon)
}

func clampInt(v, lo, hi, def int) int {
	switch {
	case v <= 0:
		return def
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

func (e *Engine) loggerFor(ctx context.Context) zerolog.Logger {
	log := logger.FromContext(ctx)
	if log.GetLevel() == zerolog.Disabled {
		if e.log == nil {
			return zerolog.Nop()
		}
		log = *e.log
	}
	return logger.WithFields(log, map[string]interface{}{"component": "engine"})
}

// PredictExpenses forecasts expenses for the next horizon months. A horizon
// of zero uses the configured default.
func (e *Engine) PredictExpenses(ctx context.Context, txs []finance.Transaction, horizon int) ([]forecast.Prediction, error) {
	return e.predict(ctx, txs, horizon, e.cfg.Expense)
}

// PredictIncome forecasts income for the next horizon months.
func (e *Engine) PredictIncome(ctx context.Context, txs []finance.Transaction, horizon int) ([]forecast.Prediction, error) {
	return e.predict(ctx, txs, horizon, e.cfg.Income)
}

func (e *Engine) predict(ctx context.Context, txs []finance.Transaction, horizon int, cfg forecast.EngineConfig) ([]forecast.Prediction, error) {
	if err := finance.ValidateAll(txs); err != nil {
		return nil, err
	}
	h := e.horizon(horizon)
	now := e.clock.Now()
	preds, err := forecast.Predict(txs, h, now, cfg)
	if err != nil {
		return nil, err
	}
	log := e.loggerFor(ctx)
	log.Debug().
		Str("type", string(cfg.Type)).
		Int("transactions", len(txs)).
		Int("horizon", h).
		Float64("average", forecast.AverageAmount(preds)).
		Msg("forecast complete")
	return preds, nil
}

// IdentifyAnomalousSpending flags unusual category spend in the current
// month.
func (e *Engine) IdentifyAnomalousSpending(ctx context.Context, txs []finance.Transaction) ([]anomaly.Record, error) {
	if err := finance.ValidateAll(txs); err != nil {
		return nil, err
	}
	return e.anomalies(ctx, txs, e.clock.Now())
}

func (e *Engine) anomalies(ctx context.Context, txs []finance.Transaction, now time.Time) ([]anomaly.Record, error) {
	records, err := anomaly.Detect(txs, now, e.cfg.Anomaly)
	if err != nil {
		return nil, err
	}
	log := e.loggerFor(ctx)
	log.Debug().Int("anomalies", len(records)).Msg("anomaly detection complete")
	return records, nil
}

// SuggestSavingsGoals recommends a monthly savings amount from the next
// three months of forecasts.
func (e *Engine) SuggestSavingsGoals(ctx context.Context, txs []finance.Transaction) (savings.Recommendation, error) {
	if err := finance.ValidateAll(txs); err != nil {
		return savings.Recommendation{}, err
	}
	return e.savings(ctx, txs, e.clock.Now())
}

func (e *Engine) savings(ctx context.Context, txs []finance.Transaction, now time.Time) (savings.Recommendation, error) {
	var income, expenses []forecast.Prediction
	g := new(errgroup.Group)
	g.Go(func() (err error) {
		income, err = forecast.Predict(txs, SavingsHorizon, now, e.cfg.Income)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = forecast.Predict(txs, SavingsHorizon, now, e.cfg.Expense)
		return err
	})
	if err := g.Wait(); err != nil {
		return savings.Recommendation{}, err
	}

	rec, err := savings.Advise(txs, income, expenses, now, e.cfg.Savings)
	if err != nil {
		return savings.Recommendation{}, err
	}
	log := e.loggerFor(ctx)
	log.Debug().
		Float64("recommended", rec.RecommendedMonthlyAmount).
		Float64("rate", rec.SavingsRatePercent).
		Msg("savings advice complete")
	return rec, nil
}

// DetectRecurring lists recurring expense and income patterns with their
// projected dates over the next horizon months, most confident first.
func (e *Engine) DetectRecurring(ctx context.Context, txs []finance.Transaction, horizon int) ([]forecast.RecurringPattern, error) {
	if err := finance.ValidateAll(txs); err != nil {
		return nil, err
	}
	now := e.clock.Now()
	h := e.horizon(horizon)
	horizonEnd := forecast.MonthOf(now).AddMonths(h).End()

	patterns := forecast.DetectRecurring(txs, finance.TypeExpense, now, horizonEnd, e.cfg.Expense.Recurrence)
	patterns = append(patterns, forecast.DetectRecurring(txs, finance.TypeIncome, now, horizonEnd, e.cfg.Income.Recurrence)...)
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Confidence != patterns[j].Confidence {
			return patterns[i].Confidence > patterns[j].Confidence
		}
		return patterns[i].Key < patterns[j].Key
	})

	log := e.loggerFor(ctx)
	log.Debug().Int("patterns", len(patterns)).Msg("recurrence detection complete")
	return patterns, nil
}

// CategorizeTransaction suggests a category for a free-text description.
func (e *Engine) CategorizeTransaction(description string) classifier.Result {
	return e.classifier.Classify(description)
}

// Report is the combined output of GenerateFinancialInsights.
type Report struct {
	GeneratedAt     time.Time              `json:"generatedAt"`
	ExpenseForecast []forecast.Prediction  `json:"expenseForecast"`
	IncomeForecast  []forecast.Prediction  `json:"incomeForecast"`
	Anomalies       []anomaly.Record       `json:"anomalies"`
	Savings         savings.Recommendation `json:"savings"`
	Summary         insights.Summary       `json:"summary"`
}

// GenerateFinancialInsights runs every analysis over one snapshot with a
// single reference date and summarizes the results. The analyses share no
// mutable state and run concurrently.
func (e *Engine) GenerateFinancialInsights(ctx context.Context, txs []finance.Transaction, horizon int) (Report, error) {
	if err := finance.ValidateAll(txs); err != nil {
		return Report{}, err
	}
	now := e.clock.Now()
	h := e.horizon(horizon)
	report := Report{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.ExpenseForecast, err = forecast.Predict(txs, h, now, e.cfg.Expense)
		return err
	})
	g.Go(func() (err error) {
		report.IncomeForecast, err = forecast.Predict(txs, h, now, e.cfg.Income)
		return err
	})
	g.Go(func() (err error) {
		report.Anomalies, err = e.anomalies(gctx, txs, now)
		return err
	})
	g.Go(func() (err error) {
		report.Savings, err = e.savings(gctx, txs, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	current, err := forecast.Aggregate(txs, finance.TypeExpense, now, 1)
	if err != nil {
		return Report{}, err
	}
	report.Summary = insights.Summarize(insights.Input{
		Current:         current.Month(current.Current),
		ExpenseForecast: report.ExpenseForecast,
		IncomeForecast:  report.IncomeForecast,
		Anomalies:       report.Anomalies,
		Savings:         report.Savings,
	}, e.cfg.Insights)

	log := e.loggerFor(ctx)
	log.Debug().
		Int("transactions", len(txs)).
		Int("horizon", h).
		Int("statements", len(report.Summary.Statements)).
		Msg("insights generated")
	return report, nil
}

func (e *Engine) horizon(requested int) int {
	if requested <= 0 {
		return e.cfg.Horizon
	}
	return ClampHorizon(requested)
}
