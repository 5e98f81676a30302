package classifier

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

var amountPattern = regexp.MustCompile(`\$\s?\d+(\.\d+)?|\b\d+\.\d{2}\b`)

// Options are the contextual boosts applied after keyword scoring.
type Options struct {
	AmountBoost      map[finance.Category]float64
	PeriodicityWords []string
	PeriodicityBoost map[finance.Category]float64
	MaxAlternatives  int
	MaxConfidence    float64
}

// DefaultOptions returns the documented boosts.
func DefaultOptions() Options {
	return Options{
		AmountBoost: map[finance.Category]float64{
			finance.CategoryShopping: 1.2,
			finance.CategoryFood:     1.2,
		},
		PeriodicityWords: []string{"monthly", "subscription", "recurring", "bill"},
		PeriodicityBoost: map[finance.Category]float64{
			finance.CategoryUtilities:     1.3,
			finance.CategoryEntertainment: 1.2,
		},
		MaxAlternatives: 2,
		MaxConfidence:   0.95,
	}
}

// Alternative is a runner-up category.
type Alternative struct {
	Category   finance.Category `json:"category"`
	Confidence float64          `json:"confidence"`
}

// Result is the suggested category for a description.
type Result struct {
	Category     finance.Category `json:"category"`
	Confidence   float64          `json:"confidence"`
	Alternatives []Alternative    `json:"alternatives"`
}

// Classifier scores descriptions against a Lexicon. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct {
	lexicon *Lexicon
	opts    Options
}

// New returns a classifier over lex.
func New(lex *Lexicon, opts Options) *Classifier {
	return &Classifier{lexicon: lex, opts: opts}
}

// Classify suggests a category for description. With no keyword match the
// result is Other with zero confidence.
func (c *Classifier) Classify(description string) Result {
	text := " " + strings.Join(strings.Fields(cases.Fold().String(description)), " ") + " "

	var scores finance.CategoryAmounts
	for _, cat := range finance.Categories() {
		for _, term := range c.lexicon.terms[cat] {
			if strings.Contains(text, term.Text) {
				scores[cat] += term.Weight
			}
		}
	}

	// Contextual boosts
	if amountPattern.MatchString(description) {
		boost(&scores, c.opts.AmountBoost)
	}
	for _, w := range c.opts.PeriodicityWords {
		if strings.Contains(text, w) {
			boost(&scores, c.opts.PeriodicityBoost)
			break
		}
	}

	total := scores.Total()
	if total <= 0 {
		return Result{Category: finance.CategoryOther}
	}

	ranked := scores.Ranked()
	res := Result{
		Category:   ranked[0].Category,
		Confidence: math.Min(c.opts.MaxConfidence, ranked[0].Amount/total),
	}
	for _, alt := range ranked[1:] {
		if len(res.Alternatives) == c.opts.MaxAlternatives {
			break
		}
		res.Alternatives = append(res.Alternatives, Alternative{
			Category:   alt.Category,
			Confidence: alt.Amount / total,
		})
	}
	return res
}

func boost(scores *finance.CategoryAmounts, factors map[finance.Category]float64) {
	for cat, f := range factors {
		if cat.Valid() {
			scores[cat] *= f
		}
	}
}
