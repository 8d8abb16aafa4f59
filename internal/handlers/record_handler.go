package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/gateway"
	"finora/internal/models"
	"finora/internal/mutation"
	"finora/internal/pagination"
	"finora/internal/session"
)

// recordRequest is a bound payload that writes its fields onto an entity.
type recordRequest[T any] interface {
	apply(s *session.Session, entity *T) error
}

// RecordHandler serves list/get/create/update/delete for one collection
// through the owner's mutation coordinator. Writes answer 202 with the
// optimistic entity, or wait for the store when ?wait=true.
type RecordHandler[T any, P gateway.Record[T], R recordRequest[T]] struct {
	key         string
	coordinator func(*session.Session) *mutation.Coordinator[T, P]
}

// NewIncomeHandler serves /incomes.
func NewIncomeHandler() *RecordHandler[models.Income, *models.Income, IncomeRequest] {
	return &RecordHandler[models.Income, *models.Income, IncomeRequest]{
		key:         "income",
		coordinator: func(s *session.Session) *session.IncomeCoordinator { return s.Incomes },
	}
}

// NewExpenseHandler serves /expenses.
func NewExpenseHandler() *RecordHandler[models.Expense, *models.Expense, ExpenseRequest] {
	return &RecordHandler[models.Expense, *models.Expense, ExpenseRequest]{
		key:         "expense",
		coordinator: func(s *session.Session) *session.ExpenseCoordinator { return s.Expenses },
	}
}

// NewClientHandler serves /clients.
func NewClientHandler() *RecordHandler[models.Client, *models.Client, ClientRequest] {
	return &RecordHandler[models.Client, *models.Client, ClientRequest]{
		key:         "client",
		coordinator: func(s *session.Session) *session.ClientCoordinator { return s.Clients },
	}
}

// NewInvoiceRecordHandler serves the CRUD part of /invoices.
func NewInvoiceRecordHandler() *RecordHandler[models.Invoice, *models.Invoice, InvoiceRequest] {
	return &RecordHandler[models.Invoice, *models.Invoice, InvoiceRequest]{
		key:         "invoice",
		coordinator: func(s *session.Session) *session.InvoiceCoordinator { return s.Invoices },
	}
}

// List returns the owner's projection, paginated.
// @Summary     List records
// @Description Get a paginated list of the owner's incomes, expenses, clients or invoices
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} map[string]interface{} "Paginated records"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /incomes [get]
// @Router      /expenses [get]
// @Router      /clients [get]
// @Router      /invoices [get]
func (h *RecordHandler[T, P, R]) List(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	c.JSON(http.StatusOK, pagination.Slice(h.coordinator(s).Items(), page))
}

// Get returns one record from the projection.
// @Summary     Get a record
// @Description Get one record by ID
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Success     200 {object} map[string]interface{} "Record"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Record not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /incomes/{id} [get]
// @Router      /expenses/{id} [get]
// @Router      /clients/{id} [get]
// @Router      /invoices/{id} [get]
func (h *RecordHandler[T, P, R]) Get(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entity, ok := h.coordinator(s).Find(c.Param("id"))
	if !ok {
		respondWithError(c, h.notFound(c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, gin.H{h.key: entity})
}

// Create submits a new record.
// @Summary     Create a record
// @Description Submit a new record. Answers 202 with the optimistic record, or 201 once stored when wait=true
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       wait    query bool   false "Wait for the store to confirm"
// @Param       request body object true  "IncomeRequest, ExpenseRequest, ClientRequest or InvoiceRequest"
// @Success     201 {object} map[string]interface{} "Record stored"
// @Success     202 {object} map[string]interface{} "Record accepted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     502 {object} ErrorResponse "Store rejected the write, changes reverted"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /incomes [post]
// @Router      /expenses [post]
// @Router      /clients [post]
// @Router      /invoices [post]
func (h *RecordHandler[T, P, R]) Create(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	var entity T
	if err := req.apply(s, &entity); err != nil {
		respondWithError(c, err)
		return
	}
	h.submit(c, s, mutation.Create(entity), http.StatusCreated)
}

// Update replaces the editable fields of a record.
// @Summary     Update a record
// @Description Replace the editable fields of a record
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path  string true  "Record ID"
// @Param       wait    query bool   false "Wait for the store to confirm"
// @Param       request body  object true  "IncomeRequest, ExpenseRequest, ClientRequest or InvoiceRequest"
// @Success     200 {object} map[string]interface{} "Record stored"
// @Success     202 {object} map[string]interface{} "Record accepted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Record not found"
// @Failure     502 {object} ErrorResponse "Store rejected the write, changes reverted"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /incomes/{id} [put]
// @Router      /expenses/{id} [put]
// @Router      /clients/{id} [put]
// @Router      /invoices/{id} [put]
func (h *RecordHandler[T, P, R]) Update(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entity, ok := h.coordinator(s).Find(c.Param("id"))
	if !ok {
		respondWithError(c, h.notFound(c.Param("id")))
		return
	}

	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}
	if err := req.apply(s, &entity); err != nil {
		respondWithError(c, err)
		return
	}
	h.submit(c, s, mutation.Update(entity), http.StatusOK)
}

// Delete removes a record.
// @Summary     Delete a record
// @Description Remove a record by ID
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string true  "Record ID"
// @Param       wait query bool   false "Wait for the store to confirm"
// @Success     200 {object} map[string]string "Record deleted"
// @Success     202 {object} map[string]string "Delete accepted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Record not found"
// @Failure     502 {object} ErrorResponse "Store rejected the write, changes reverted"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /incomes/{id} [delete]
// @Router      /expenses/{id} [delete]
// @Router      /clients/{id} [delete]
// @Router      /invoices/{id} [delete]
func (h *RecordHandler[T, P, R]) Delete(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.submit(c, s, mutation.Delete[T](c.Param("id")), http.StatusOK)
}

func (h *RecordHandler[T, P, R]) submit(c *gin.Context, s *session.Session, in mutation.Intent[T], okStatus int) {
	submitIntent(c, h.coordinator(s), h.key, in, okStatus)
}

func (h *RecordHandler[T, P, R]) notFound(id string) error {
	return apperrors.WithMessage(apperrors.ErrNotFound, fmt.Sprintf("%s %s not found", h.key, id))
}

// submitIntent hands an intent to the coordinator and writes the response.
// Without ?wait=true the optimistic state is returned immediately; a later
// failure is rolled back and reported through notifications.
func submitIntent[T any, P gateway.Record[T]](c *gin.Context, coord *mutation.Coordinator[T, P], key string, in mutation.Intent[T], okStatus int) {
	pending, err := coord.Submit(c.Request.Context(), in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !wantsWait(c) {
		if in.Op == mutation.OpDelete {
			c.JSON(http.StatusAccepted, gin.H{"id": in.ID, "status": "pending"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{key: pending.Optimistic(), "status": "pending"})
		return
	}

	out, err := pending.Wait(c.Request.Context())
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	if out.Err != nil {
		respondWithError(c, out.Err)
		return
	}
	if in.Op == mutation.OpDelete {
		c.JSON(okStatus, gin.H{"message": fmt.Sprintf("%s deleted", key)})
		return
	}
	c.JSON(okStatus, gin.H{key: out.Entity})
}
