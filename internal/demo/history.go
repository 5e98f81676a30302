// Package demo generates realistic synthetic transaction histories for local
// development and demos.
package demo

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

type frequency int

const (
	monthly frequency = iota
	weekly
)

type template struct {
	description string
	minAmount   float64
	maxAmount   float64
	category    finance.Category
}

type recurringTemplate struct {
	template
	frequency frequency
	day       int // day of month for monthly items
}

var recurringExpenses = []recurringTemplate{
	{template{"Rent payment", 2200, 2200, finance.CategoryHousing}, monthly, 1},
	{template{"Electricity bill", 120, 220, finance.CategoryUtilities}, monthly, 8},
	{template{"Water bill", 45, 75, finance.CategoryUtilities}, monthly, 12},
	{template{"Internet bill", 89, 89, finance.CategoryUtilities}, monthly, 15},
	{template{"Phone bill", 65, 85, finance.CategoryUtilities}, monthly, 18},
	{template{"Car insurance", 145, 145, finance.CategoryTransportation}, monthly, 20},
	{template{"Netflix", 22.99, 22.99, finance.CategoryEntertainment}, monthly, 5},
	{template{"Spotify", 12.99, 12.99, finance.CategoryEntertainment}, monthly, 9},
	{template{"Gym membership", 65, 65, finance.CategoryHealth}, monthly, 3},
	{template{"Grocery shopping", 80, 200, finance.CategoryFood}, weekly, 0},
	{template{"Petrol", 55, 110, finance.CategoryTransportation}, weekly, 0},
}

var randomExpenses = []template{
	{"Coffee", 4.5, 8, finance.CategoryFood},
	{"Lunch out", 15, 35, finance.CategoryFood},
	{"Dinner at restaurant", 45, 120, finance.CategoryFood},
	{"Takeaway", 20, 55, finance.CategoryFood},
	{"Uber ride", 12, 45, finance.CategoryTransportation},
	{"Parking", 5, 20, finance.CategoryTransportation},
	{"Movie tickets", 18, 40, finance.CategoryEntertainment},
	{"Concert tickets", 60, 180, finance.CategoryEntertainment},
	{"Clothing", 40, 200, finance.CategoryShopping},
	{"Electronics", 50, 350, finance.CategoryShopping},
	{"Amazon purchase", 20, 150, finance.CategoryShopping},
	{"Pharmacy", 10, 60, finance.CategoryHealth},
	{"Doctor visit", 50, 150, finance.CategoryHealth},
	{"Haircut", 30, 60, finance.CategoryPersonal},
	{"Online course", 30, 200, finance.CategoryEducation},
	{"Weekend trip accommodation", 150, 400, finance.CategoryTravel},
}

// Options controls the generated history.
type Options struct {
	Months int
	Seed   int64
	// Salary is the monthly net pay, paid on the 15th.
	Salary float64
	// DailyRandom bounds the number of discretionary purchases per day.
	DailyRandom int
}

func DefaultOptions() Options {
	return Options{Months: 12, Seed: 1, Salary: 8500, DailyRandom: 3}
}

// History returns Months full months of transactions ending at now, sorted by
// date. The same options and now always produce the same history.
func History(userID string, now time.Time, opts Options) []finance.Transaction {
	if opts.Months <= 0 {
		opts.Months = DefaultOptions().Months
	}
	if opts.DailyRandom <= 0 {
		opts.DailyRandom = 1
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(opts.Months - 1), 0)

	g := &generator{userID: userID, rng: rng}

	for m := 0; m < opts.Months; m++ {
		month := start.AddDate(0, m, 0)
		payday := month.AddDate(0, 0, 14)
		if !payday.After(now) && opts.Salary > 0 {
			g.add(finance.TypeIncome, "Software Engineer Salary", finance.CategorySalary,
				jitter(rng, opts.Salary, 100), payday)
		}
		for _, tmpl := range recurringExpenses {
			if tmpl.frequency != monthly {
				continue
			}
			date := month.AddDate(0, 0, tmpl.day-1)
			if date.After(now) {
				continue
			}
			g.add(finance.TypeExpense, tmpl.description, tmpl.category, g.amount(tmpl.template), date)
		}
		// quarterly dividends
		if month.Month()%3 == 0 {
			date := month.AddDate(0, 0, 19)
			if !date.After(now) {
				g.add(finance.TypeIncome, "Dividend payment", finance.CategoryInvestment, jitter(rng, 250, 40), date)
			}
		}
	}

	for _, tmpl := range recurringExpenses {
		if tmpl.frequency != weekly {
			continue
		}
		for d := start.AddDate(0, 0, rng.Intn(3)); !d.After(now); d = d.AddDate(0, 0, 6+rng.Intn(3)) {
			g.add(finance.TypeExpense, tmpl.description, tmpl.category, g.amount(tmpl.template), d)
		}
	}

	for d := start; !d.After(now); d = d.AddDate(0, 0, 1) {
		n := rng.Intn(opts.DailyRandom + 1)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			n++
		}
		if d.Month() == time.December && d.Day() >= 15 {
			n += 1 + rng.Intn(2)
		}
		for i := 0; i < n; i++ {
			tmpl := randomExpenses[rng.Intn(len(randomExpenses))]
			amount := g.amount(tmpl)
			// occasional outsized purchase
			if rng.Intn(50) == 0 {
				amount *= 3 + rng.Float64()*2
			}
			g.add(finance.TypeExpense, tmpl.description, tmpl.category, amount, d)
		}
	}

	sort.SliceStable(g.txs, func(i, j int) bool {
		return g.txs[i].Date.Before(g.txs[j].Date)
	})
	for i := range g.txs {
		g.txs[i].ID = fmt.Sprintf("demo-%05d", i+1)
	}
	return g.txs
}

type generator struct {
	userID string
	rng    *rand.Rand
	txs    []finance.Transaction
}

func (g *generator) amount(t template) float64 {
	if t.maxAmount <= t.minAmount {
		return t.minAmount
	}
	return t.minAmount + g.rng.Float64()*(t.maxAmount-t.minAmount)
}

func (g *generator) add(typ finance.TransactionType, desc string, c finance.Category, amount float64, date time.Time) {
	g.txs = append(g.txs, finance.Transaction{
		UserID:      g.userID,
		Type:        typ,
		Amount:      decimal.NewFromFloat(amount).Round(2),
		Description: desc,
		Category:    c,
		Date:        date,
	})
}

func jitter(rng *rand.Rand, base, spread float64) float64 {
	return base + rng.Float64()*2*spread - spread
}
