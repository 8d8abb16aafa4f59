package backup

import (
	"time"

	"github.com/shopspring/decimal"

	"finora/internal/models"
)

// Sections selects what a report includes.
type Sections struct {
	Summary  bool `json:"summary"`
	Incomes  bool `json:"incomes"`
	Expenses bool `json:"expenses"`
	Invoices bool `json:"invoices"`
	Clients  bool `json:"clients"`
}

// AllSections enables every section.
func AllSections() Sections {
	return Sections{Summary: true, Incomes: true, Expenses: true, Invoices: true, Clients: true}
}

// ReportSummary holds the totals of a report period.
type ReportSummary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
	InvoicedOpen decimal.Decimal `json:"invoiced_open"`
}

// ReportData is the date-filtered data handed to a report renderer.
type ReportData struct {
	From     time.Time        `json:"from"`
	To       time.Time        `json:"to"`
	Sections Sections         `json:"sections"`
	Summary  *ReportSummary   `json:"summary,omitempty"`
	Incomes  []models.Income  `json:"incomes,omitempty"`
	Expenses []models.Expense `json:"expenses,omitempty"`
	Invoices []models.Invoice `json:"invoices,omitempty"`
	Clients  []models.Client  `json:"clients,omitempty"`
}

func within(t, from, to time.Time) bool {
	d := models.DateOf(t)
	return !d.Before(models.DateOf(from)) && !d.After(models.DateOf(to))
}

// BuildReport filters the collections to the inclusive date range [from, to].
// Incomes and expenses are filtered by date, invoices by due date; clients
// are never filtered.
func BuildReport(f File, from, to time.Time, sections Sections) ReportData {
	r := ReportData{From: models.DateOf(from), To: models.DateOf(to), Sections: sections}

	var incomes []models.Income
	for _, inc := range f.Incomes {
		if within(inc.Date, from, to) {
			incomes = append(incomes, inc)
		}
	}
	var expenses []models.Expense
	for _, exp := range f.Expenses {
		if within(exp.Date, from, to) {
			expenses = append(expenses, exp)
		}
	}
	var invoices []models.Invoice
	for _, inv := range f.Invoices {
		if within(inv.DueDate, from, to) {
			invoices = append(invoices, inv)
		}
	}

	if sections.Summary {
		s := &ReportSummary{
			TotalIncome:  decimal.Zero,
			TotalExpense: decimal.Zero,
			InvoicedOpen: decimal.Zero,
		}
		for _, inc := range incomes {
			s.TotalIncome = s.TotalIncome.Add(inc.Amount)
		}
		for _, exp := range expenses {
			s.TotalExpense = s.TotalExpense.Add(exp.Amount)
		}
		for _, inv := range invoices {
			if inv.IsOpen() {
				s.InvoicedOpen = s.InvoicedOpen.Add(inv.Amount)
			}
		}
		s.Balance = s.TotalIncome.Sub(s.TotalExpense)
		r.Summary = s
	}
	if sections.Incomes {
		r.Incomes = incomes
	}
	if sections.Expenses {
		r.Expenses = expenses
	}
	if sections.Invoices {
		r.Invoices = invoices
	}
	if sections.Clients {
		r.Clients = f.Clients
	}
	return r
}
