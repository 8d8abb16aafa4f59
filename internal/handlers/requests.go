package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "finora/internal/errors"
	"finora/internal/models"
	"finora/internal/session"
	"finora/internal/uuid"
)

// IncomeRequest is the create/update payload for an income. An empty
// category is filled in by the classifier.
type IncomeRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"gte=0"`
	Description string          `json:"description" binding:"required,max=500"`
	Category    string          `json:"category" binding:"max=100"`
	Date        string          `json:"date" binding:"required,calendar_date"`
	Status      string          `json:"status" binding:"income_status"`
	ClientID    *string         `json:"client_id"`
}

func (r IncomeRequest) apply(s *session.Session, inc *models.Income) error {
	date, err := parseDate(r.Date)
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrValidationFailed, "date must be YYYY-MM-DD")
	}
	inc.Amount = r.Amount
	inc.Description = r.Description
	inc.Category = categoryFor(s, r.Category, r.Description, models.RecordKindIncome)
	inc.Date = date
	inc.Status = models.IncomeStatus(r.Status)
	inc.ClientID = nil
	if r.ClientID != nil && *r.ClientID != "" {
		if err := checkClientRef(s, *r.ClientID); err != nil {
			return err
		}
		id := *r.ClientID
		inc.ClientID = &id
	}
	return nil
}

// ExpenseRequest is the create/update payload for an expense.
type ExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"gte=0"`
	Description string          `json:"description" binding:"required,max=500"`
	Category    string          `json:"category" binding:"max=100"`
	Date        string          `json:"date" binding:"required,calendar_date"`
}

func (r ExpenseRequest) apply(s *session.Session, exp *models.Expense) error {
	date, err := parseDate(r.Date)
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrValidationFailed, "date must be YYYY-MM-DD")
	}
	exp.Amount = r.Amount
	exp.Description = r.Description
	exp.Category = categoryFor(s, r.Category, r.Description, models.RecordKindExpense)
	exp.Date = date
	return nil
}

// ClientRequest is the create/update payload for a client.
type ClientRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"omitempty,email,max=255"`
	Phone   string `json:"phone" binding:"max=50"`
	Address string `json:"address" binding:"max=500"`
	Notes   string `json:"notes" binding:"max=2000"`
}

func (r ClientRequest) apply(_ *session.Session, cl *models.Client) error {
	cl.Name = r.Name
	cl.Email = r.Email
	cl.Phone = r.Phone
	cl.Address = r.Address
	cl.Notes = r.Notes
	return nil
}

// InvoiceRequest is the create/update payload for an invoice. Status is
// optional on create (default pending) and ignored on update; use the status
// endpoint to move an invoice through its lifecycle.
type InvoiceRequest struct {
	ClientID    string          `json:"client_id" binding:"required"`
	Description string          `json:"description" binding:"max=500"`
	Amount      decimal.Decimal `json:"amount" binding:"gte=0"`
	DueDate     string          `json:"due_date" binding:"required,calendar_date"`
	Status      string          `json:"status" binding:"omitempty,manual_invoice_status"`
}

func (r InvoiceRequest) apply(s *session.Session, inv *models.Invoice) error {
	due, err := parseDate(r.DueDate)
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrValidationFailed, "due_date must be YYYY-MM-DD")
	}
	if err := checkClientRef(s, r.ClientID); err != nil {
		return err
	}
	inv.ClientID = r.ClientID
	inv.Description = r.Description
	inv.Amount = r.Amount
	inv.DueDate = due

	if inv.ID != "" {
		return nil
	}
	inv.Status = models.InvoiceStatusPending
	if r.Status != "" && r.Status != string(models.InvoiceStatusPending) {
		if err := inv.SetStatus(models.InvoiceStatus(r.Status), today(s.Now())); err != nil {
			return apperrors.WithMessage(apperrors.ErrValidationFailed, err.Error())
		}
	}
	return nil
}

// checkClientRef accepts only stored clients. A temporary id is rejected
// since it is replaced once the client's create settles.
func checkClientRef(s *session.Session, id string) error {
	if uuid.IsTemp(id) {
		return apperrors.WithMessage(apperrors.ErrValidationFailed, "client_id refers to a client that is still being saved")
	}
	if _, ok := s.Clients.Find(id); !ok {
		return apperrors.WithMessage(apperrors.ErrValidationFailed, "client_id does not match a known client")
	}
	return nil
}

// StatusRequest changes an invoice's status.
type StatusRequest struct {
	Status string `json:"status" binding:"required,manual_invoice_status"`
	// PaymentDate defaults to today when marking paid.
	PaymentDate string `json:"payment_date" binding:"omitempty,calendar_date"`
}

// categoryFor keeps an explicit category or asks the classifier.
func categoryFor(s *session.Session, given, description string, kind models.RecordKind) string {
	if given != "" {
		return given
	}
	if cat, ok := s.Classifier.Classify(description, kind); ok {
		return cat.Name
	}
	return ""
}

func today(now time.Time) time.Time {
	return models.DateOf(now)
}
