package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// InvoiceStatuses lists every status in display order.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusPending,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusCancelled,
}

// Invoice is an amount owed by a client.
//
// PaymentDate is set if and only if Status is paid. SourceIncomeID links an
// invoice derived from a pending income back to that income; it is unique so
// a repeated trigger cannot create a second invoice.
type Invoice struct {
	Base
	Owned
	ClientID       string          `gorm:"type:uuid;not null;index" json:"client_id" validate:"required"`
	Description    string          `json:"description" validate:"max=500"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount" validate:"gte=0"`
	DueDate        time.Time       `gorm:"not null;index" json:"due_date" validate:"required"`
	PaymentDate    *time.Time      `json:"payment_date,omitempty"`
	Status         InvoiceStatus   `gorm:"size:16;not null;index" json:"status" validate:"required,oneof=pending paid overdue cancelled"`
	SourceIncomeID *string         `gorm:"type:uuid;uniqueIndex" json:"source_income_id,omitempty"`
}

// IsOpen reports whether the invoice still expects payment.
func (i Invoice) IsOpen() bool {
	return i.Status == InvoiceStatusPending || i.Status == InvoiceStatusOverdue
}

// CheckPaymentInvariant verifies that the payment date is present exactly
// when the invoice is paid.
func (i Invoice) CheckPaymentInvariant() error {
	paid := i.Status == InvoiceStatusPaid
	if paid && i.PaymentDate == nil {
		return fmt.Errorf("paid invoice must have a payment date")
	}
	if !paid && i.PaymentDate != nil {
		return fmt.Errorf("%s invoice must not have a payment date", i.Status)
	}
	return nil
}

// SetStatus applies a manual status change. Overdue can only be reached
// through IsOverdueOn/MarkOverdue.
func (i *Invoice) SetStatus(to InvoiceStatus, now time.Time) error {
	switch to {
	case InvoiceStatusPaid:
		if i.Status != InvoiceStatusPending && i.Status != InvoiceStatusOverdue && i.Status != InvoiceStatusPaid {
			return fmt.Errorf("cannot mark a %s invoice as paid", i.Status)
		}
		if i.Status != InvoiceStatusPaid {
			paidAt := now
			i.PaymentDate = &paidAt
		}
	case InvoiceStatusPending:
		if i.Status != InvoiceStatusPaid && i.Status != InvoiceStatusPending {
			return fmt.Errorf("cannot move a %s invoice back to pending", i.Status)
		}
		i.PaymentDate = nil
	case InvoiceStatusCancelled:
		i.PaymentDate = nil
	case InvoiceStatusOverdue:
		return fmt.Errorf("overdue is set automatically and cannot be chosen")
	default:
		return fmt.Errorf("unknown invoice status %q", to)
	}
	i.Status = to
	return nil
}

// IsOverdueOn reports whether a pending invoice's due date lies strictly
// before the calendar date of now.
func (i Invoice) IsOverdueOn(now time.Time) bool {
	if i.Status != InvoiceStatusPending {
		return false
	}
	return DateOf(i.DueDate).Before(DateOf(now))
}

// MarkOverdue moves a pending invoice to overdue.
func (i *Invoice) MarkOverdue() {
	if i.Status == InvoiceStatusPending {
		i.Status = InvoiceStatusOverdue
		i.PaymentDate = nil
	}
}
