package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats is a derived snapshot of the owner's month. It is never
// persisted.
type DashboardStats struct {
	PeriodStart        time.Time                  `json:"period_start"`
	PeriodEnd          time.Time                  `json:"period_end"`
	TotalIncome        decimal.Decimal            `json:"total_income"`
	TotalExpense       decimal.Decimal            `json:"total_expense"`
	Balance            decimal.Decimal            `json:"balance"`
	PendingBalance     decimal.Decimal            `json:"pending_balance"`
	ClientCount        int                        `json:"client_count"`
	InvoiceCounts      map[InvoiceStatus]int      `json:"invoice_counts"`
	RecentTransactions []Transaction              `json:"recent_transactions"`
	IncomeByCategory   map[string]decimal.Decimal `json:"income_by_category"`
	ExpenseByCategory  map[string]decimal.Decimal `json:"expense_by_category"`
}

// EventKind distinguishes the two calendar entries derived from an invoice.
type EventKind string

const (
	EventKindDue      EventKind = "due"
	EventKindReminder EventKind = "reminder"
)

// Priority ranks calendar entries.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// CalendarEvent is derived from an invoice and regenerated whenever the
// invoice collection changes.
type CalendarEvent struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Date        time.Time     `json:"date"`
	Kind        EventKind     `json:"kind"`
	Category    InvoiceStatus `json:"category"`
	Color       string        `json:"color"`
	Priority    Priority      `json:"priority"`
	InvoiceID   string        `json:"invoice_id"`
}

// Reminder is a scheduled notification for an open invoice.
type Reminder struct {
	ID          string    `json:"id"`
	InvoiceID   string    `json:"invoice_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Fired       bool      `json:"fired"`
}
