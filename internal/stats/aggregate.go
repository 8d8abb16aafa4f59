// Package stats computes the dashboard snapshot from raw collections.
package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finora/internal/models"
)

// RecentLimit is the number of transactions listed on the dashboard.
const RecentLimit = 5

// Aggregate computes DashboardStats for the calendar month of now. It is
// pure and total: nil collections yield zero totals and empty lists.
//
// Recent transactions are the RecentLimit newest records across both kinds.
// Records sharing a date keep their collection order, incomes before
// expenses.
func Aggregate(incomes []models.Income, expenses []models.Expense, clients []models.Client, invoices []models.Invoice, now time.Time) models.DashboardStats {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	s := models.DashboardStats{
		PeriodStart:        start,
		PeriodEnd:          start.AddDate(0, 1, 0),
		TotalIncome:        decimal.Zero,
		TotalExpense:       decimal.Zero,
		PendingBalance:     decimal.Zero,
		ClientCount:        len(clients),
		InvoiceCounts:      make(map[models.InvoiceStatus]int, len(models.InvoiceStatuses)),
		RecentTransactions: []models.Transaction{},
		IncomeByCategory:   map[string]decimal.Decimal{},
		ExpenseByCategory:  map[string]decimal.Decimal{},
	}

	for _, inc := range incomes {
		if !models.SameMonth(inc.Date, now) {
			continue
		}
		s.TotalIncome = s.TotalIncome.Add(inc.Amount)
		if inc.IsPending() {
			s.PendingBalance = s.PendingBalance.Add(inc.Amount)
		}
		addTo(s.IncomeByCategory, inc.Category, inc.Amount)
	}
	for _, exp := range expenses {
		if !models.SameMonth(exp.Date, now) {
			continue
		}
		s.TotalExpense = s.TotalExpense.Add(exp.Amount)
		addTo(s.ExpenseByCategory, exp.Category, exp.Amount)
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	for _, status := range models.InvoiceStatuses {
		s.InvoiceCounts[status] = 0
	}
	for _, inv := range invoices {
		s.InvoiceCounts[inv.Status]++
	}

	s.RecentTransactions = Recent(incomes, expenses, RecentLimit)
	return s
}

// Recent merges both record kinds and returns the limit newest.
func Recent(incomes []models.Income, expenses []models.Expense, limit int) []models.Transaction {
	merged := make([]models.Transaction, 0, len(incomes)+len(expenses))
	for _, inc := range incomes {
		merged = append(merged, inc.AsTransaction())
	}
	for _, exp := range expenses {
		merged = append(merged, exp.AsTransaction())
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return models.DateOf(merged[i].Date).After(models.DateOf(merged[j].Date))
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func addTo(m map[string]decimal.Decimal, category string, amount decimal.Decimal) {
	if category == "" {
		category = "Sem categoria"
	}
	m[category] = m[category].Add(amount)
}
