package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomeStatus tracks whether an income has been received.
type IncomeStatus string

const (
	IncomeStatusNone    IncomeStatus = ""
	IncomeStatusPending IncomeStatus = "pending"
	IncomeStatusPaid    IncomeStatus = "paid"
)

// RecordKind distinguishes the two kinds of line items.
type RecordKind string

const (
	RecordKindIncome  RecordKind = "income"
	RecordKindExpense RecordKind = "expense"
)

// Income is money received, or expected, by the owner.
type Income struct {
	Base
	Owned
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount" validate:"gte=0"`
	Description string          `gorm:"not null" json:"description" validate:"required,max=500"`
	Category    string          `json:"category" validate:"max=100"`
	Date        time.Time       `gorm:"not null;index" json:"date" validate:"required"`
	Status      IncomeStatus    `gorm:"size:16" json:"status,omitempty" validate:"omitempty,oneof=pending paid"`
	ClientID    *string         `gorm:"type:uuid;index" json:"client_id,omitempty"`
}

// IsPending reports whether the income is still awaiting payment.
func (i Income) IsPending() bool { return i.Status == IncomeStatusPending }

// Expense is money spent by the owner.
type Expense struct {
	Base
	Owned
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount" validate:"gte=0"`
	Description string          `gorm:"not null" json:"description" validate:"required,max=500"`
	Category    string          `json:"category" validate:"max=100"`
	Date        time.Time       `gorm:"not null;index" json:"date" validate:"required"`
}

// Transaction is a kind-tagged view over an income or expense, used in
// dashboard listings.
type Transaction struct {
	Kind        RecordKind      `json:"kind"`
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
}

// AsTransaction tags the income as a transaction.
func (i Income) AsTransaction() Transaction {
	return Transaction{Kind: RecordKindIncome, ID: i.ID, Amount: i.Amount, Description: i.Description, Category: i.Category, Date: i.Date}
}

// AsTransaction tags the expense as a transaction.
func (e Expense) AsTransaction() Transaction {
	return Transaction{Kind: RecordKindExpense, ID: e.ID, Amount: e.Amount, Description: e.Description, Category: e.Category, Date: e.Date}
}
