package forecast

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var txSeq int

func tx(t finance.TransactionType, amount int64, desc string, c finance.Category, when time.Time) finance.Transaction {
	txSeq++
	return finance.Transaction{
		ID:          fmt.Sprintf("tx-%d", txSeq),
		Type:        t,
		Amount:      decimal.NewFromInt(amount),
		Description: desc,
		Category:    c,
		Date:        when,
	}
}

func expense(amount int64, desc string, c finance.Category, when time.Time) finance.Transaction {
	return tx(finance.TypeExpense, amount, desc, c, when)
}

func income(amount int64, desc string, c finance.Category, when time.Time) finance.Transaction {
	return tx(finance.TypeIncome, amount, desc, c, when)
}

// monthlyExpenses emits one uniquely described expense per month so nothing
// is detected as recurring.
func monthlyExpenses(start MonthKey, amounts []int64, c finance.Category) []finance.Transaction {
	out := make([]finance.Transaction, 0, len(amounts))
	for i, a := range amounts {
		k := start.AddMonths(i)
		out = append(out, expense(a, "purchase "+k.String(), c, k.Start().AddDate(0, 0, 9)))
	}
	return out
}
