package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/models"
	"finora/internal/mutation"
	"finora/internal/services"
)

// InvoiceHandler serves invoice lifecycle changes.
type InvoiceHandler struct {
	auditService services.AuditServicer
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(auditService services.AuditServicer) *InvoiceHandler {
	return &InvoiceHandler{auditService: auditService}
}

// UpdateStatus moves an invoice to pending, paid or cancelled. Marking paid
// records the payment date (today unless given); leaving paid clears it.
// @Summary     Change invoice status
// @Description Move an invoice to pending, paid or cancelled
// @Tags        invoices
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path  string        true  "Invoice ID"
// @Param       wait    query bool          false "Wait for the store to confirm"
// @Param       request body  StatusRequest true  "New status"
// @Success     200 {object} map[string]interface{} "Invoice stored"
// @Success     202 {object} map[string]interface{} "Invoice accepted"
// @Failure     400 {object} ErrorResponse "Invalid transition"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Invoice not found"
// @Failure     502 {object} ErrorResponse "Store rejected the write, changes reverted"
// @Router      /invoices/{id}/status [put]
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id := c.Param("id")
	inv, ok := s.Invoices.Find(id)
	if !ok {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrNotFound, "invoice "+id+" not found"))
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	paidAt := today(s.Now())
	if req.PaymentDate != "" {
		if paidAt, err = parseDate(req.PaymentDate); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrValidationFailed, "payment_date must be YYYY-MM-DD"))
			return
		}
	}

	from := inv.Status
	if err := inv.SetStatus(models.InvoiceStatus(req.Status), paidAt); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidationFailed, err.Error()))
		return
	}

	submitIntent(c, s.Invoices, "invoice", mutation.Update(inv), http.StatusOK)
	if c.Writer.Status() < http.StatusBadRequest {
		h.auditService.Log(s.OwnerID, services.AuditInvoiceStatus, "invoice", id, c.ClientIP(), map[string]interface{}{
			"from": from,
			"to":   inv.Status,
		})
	}
}

// ListByStatus returns the owner's invoices with the given status.
// @Summary     List invoices by status
// @Description Get the owner's invoices with one status
// @Tags        invoices
// @Produce     json
// @Security    BearerAuth
// @Param       status path string true "pending, paid, overdue or cancelled"
// @Success     200 {object} map[string][]models.Invoice "Invoices"
// @Failure     400 {object} ErrorResponse "Unknown status"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /invoices-by-status/{status} [get]
func (h *InvoiceHandler) ListByStatus(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	status := models.InvoiceStatus(c.Param("status"))
	valid := false
	for _, st := range models.InvoiceStatuses {
		if st == status {
			valid = true
		}
	}
	if !valid {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrValidationFailed, "unknown invoice status "+string(status)))
		return
	}

	invoices := []models.Invoice{}
	for _, inv := range s.Invoices.Items() {
		if inv.Status == status {
			invoices = append(invoices, inv)
		}
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}
