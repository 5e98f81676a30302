// Package classifier suggests a category for a free-text transaction
// description using a static weighted keyword lexicon.
package classifier

import (
	"fmt"

	"golang.org/x/text/cases"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

// Term is one keyword and the score it contributes when found.
type Term struct {
	Text   string
	Weight float64 // 0.0-1.0
}

// Lexicon is an immutable keyword table per category. Build it once and share
// it between classifiers.
type Lexicon struct {
	terms [finance.NumCategories][]Term
}

// NewLexicon folds and copies terms. Surrounding spaces in a term are kept so
// " rent" only matches at a word start.
func NewLexicon(terms map[finance.Category][]Term) (*Lexicon, error) {
	fold := cases.Fold()
	lex := &Lexicon{}
	for c, list := range terms {
		if !c.Valid() {
			return nil, fmt.Errorf("lexicon: invalid category %d", int(c))
		}
		out := make([]Term, 0, len(list))
		for _, t := range list {
			if t.Text == "" {
				return nil, fmt.Errorf("lexicon: empty term for %s", c)
			}
			if t.Weight < 0 || t.Weight > 1 {
				return nil, fmt.Errorf("lexicon: weight %.2f for %q outside [0,1]", t.Weight, t.Text)
			}
			out = append(out, Term{Text: fold.String(t.Text), Weight: t.Weight})
		}
		lex.terms[c] = out
	}
	return lex, nil
}

// Terms returns a copy of the terms for category c.
func (l *Lexicon) Terms(c finance.Category) []Term {
	if !c.Valid() {
		return nil
	}
	return append([]Term(nil), l.terms[c]...)
}

// DefaultLexicon returns the built-in keyword table.
func DefaultLexicon() *Lexicon {
	lex, err := NewLexicon(defaultTerms)
	if err != nil {
		panic(err)
	}
	return lex
}

var defaultTerms = map[finance.Category][]Term{
	finance.CategoryFood: {
		{"restaurant", 0.9}, {"cafe", 0.7}, {"coffee", 0.7}, {"grocer", 0.8},
		{"supermarket", 0.9}, {"woolworths", 0.9}, {"coles", 0.9}, {"aldi", 0.9},
		{"uber eats", 0.9}, {"doordash", 0.9}, {"menulog", 0.9}, {"mcdonald", 0.9},
		{"starbucks", 0.9}, {"pizza", 0.8}, {"bakery", 0.8}, {"lunch", 0.6},
		{"dinner", 0.6}, {"breakfast", 0.6}, {"takeaway", 0.8}, {"sushi", 0.8},
	},
	finance.CategoryTransportation: {
		{"uber trip", 0.9}, {"lyft", 0.9}, {"taxi", 0.9}, {"petrol", 0.9},
		{"fuel", 0.8}, {"gas station", 0.9}, {"parking", 0.8}, {"toll", 0.7},
		{"train", 0.6}, {"bus fare", 0.8}, {"metro", 0.6}, {"transit", 0.7},
		{"opal", 0.8}, {"myki", 0.8}, {"car wash", 0.6}, {"rego", 0.7},
	},
	finance.CategoryHousing: {
		{" rent", 0.9}, {"rental", 0.8}, {"mortgage", 0.95}, {"home loan", 0.9},
		{"landlord", 0.8}, {"strata", 0.9}, {"property management", 0.9},
		{"council rates", 0.8}, {"home insurance", 0.7},
	},
	finance.CategoryUtilities: {
		{"electricity", 0.9}, {"electric", 0.7}, {"water bill", 0.9}, {"gas bill", 0.9},
		{"internet", 0.8}, {"broadband", 0.9}, {"phone bill", 0.9}, {"mobile plan", 0.8},
		{"telstra", 0.9}, {"optus", 0.9}, {"vodafone", 0.9}, {"agl", 0.8},
		{"origin energy", 0.9}, {"utility", 0.8}, {"energy", 0.5},
	},
	finance.CategoryEntertainment: {
		{"netflix", 0.9}, {"spotify", 0.9}, {"disney+", 0.9}, {"youtube premium", 0.9},
		{"hbo", 0.8}, {"cinema", 0.8}, {"movie", 0.7}, {"concert", 0.8},
		{"ticketek", 0.9}, {"ticketmaster", 0.9}, {"theatre", 0.7}, {"playstation", 0.8},
		{"xbox", 0.8}, {"nintendo", 0.8}, {"steam games", 0.8}, {"bowling", 0.7},
	},
	finance.CategoryHealth: {
		{"pharmacy", 0.9}, {"chemist", 0.9}, {"doctor", 0.9}, {"medical", 0.8},
		{"dental", 0.9}, {"dentist", 0.9}, {"hospital", 0.9}, {"clinic", 0.7},
		{"physio", 0.9}, {"optometrist", 0.9}, {"health insurance", 0.8}, {"gym", 0.5},
	},
	finance.CategoryShopping: {
		{"amazon", 0.8}, {"ebay", 0.8}, {"kmart", 0.9}, {"target", 0.7},
		{"big w", 0.9}, {"ikea", 0.8}, {"jb hi-fi", 0.9}, {"harvey norman", 0.9},
		{"bunnings", 0.7}, {"clothing", 0.8}, {"shoes", 0.7}, {"mall", 0.5},
		{"shop", 0.4}, {"store", 0.3},
	},
	finance.CategoryPersonal: {
		{"haircut", 0.9}, {"hairdresser", 0.9}, {"barber", 0.9}, {"salon", 0.8},
		{"beauty", 0.7}, {"cosmetic", 0.7}, {"nails", 0.7}, {"massage", 0.7},
		{"dry cleaning", 0.7}, {"laundry", 0.6},
	},
	finance.CategoryEducation: {
		{"tuition", 0.9}, {"university", 0.9}, {"school fees", 0.9}, {"course", 0.6},
		{"udemy", 0.9}, {"coursera", 0.9}, {"textbook", 0.9}, {"college", 0.8},
		{"tutoring", 0.9}, {"exam fee", 0.8},
	},
	finance.CategoryTravel: {
		{"airline", 0.9}, {"flight", 0.9}, {"hotel", 0.9}, {"airbnb", 0.9},
		{"booking.com", 0.9}, {"expedia", 0.9}, {"qantas", 0.9}, {"virgin australia", 0.9},
		{"jetstar", 0.9}, {"hostel", 0.8}, {"travel insurance", 0.9}, {"holiday", 0.6},
	},
	finance.CategorySalary: {
		{"salary", 0.95}, {"payroll", 0.95}, {"wages", 0.9}, {"pay slip", 0.9},
		{"paycheck", 0.9}, {"bonus", 0.6}, {"commission", 0.6},
	},
	finance.CategoryInvestment: {
		{"dividend", 0.9}, {"brokerage", 0.9}, {"commsec", 0.9}, {"vanguard", 0.9},
		{"stake", 0.6}, {"shares", 0.7}, {" etf", 0.8}, {"crypto", 0.8},
		{"superannuation", 0.8}, {"interest earned", 0.7},
	},
	finance.CategoryTransfer: {
		{"transfer", 0.8}, {"bpay", 0.6}, {"osko", 0.7}, {"payid", 0.7},
		{"to savings", 0.8}, {"internal transfer", 0.9},
	},
}
