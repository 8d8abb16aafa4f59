package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"finora/internal/calendar"
	apperrors "finora/internal/errors"
	"finora/internal/services"
)

const maxCalendarImportBytes = 5 << 20

// CalendarHandler serves the derived calendar, reminders and exports.
type CalendarHandler struct {
	auditService services.AuditServicer
}

// NewCalendarHandler creates a new CalendarHandler
func NewCalendarHandler(auditService services.AuditServicer) *CalendarHandler {
	return &CalendarHandler{auditService: auditService}
}

// GetEvents returns calendar events, optionally limited to ?from=&to=.
// @Summary     Get calendar events
// @Description Get the events derived from invoices, optionally within a date range
// @Tags        calendar
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "Start date (YYYY-MM-DD)"
// @Param       to   query string false "End date (YYYY-MM-DD)"
// @Success     200 {object} map[string]interface{} "Events"
// @Failure     400 {object} ErrorResponse "Invalid date range"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /calendar/events [get]
func (h *CalendarHandler) GetEvents(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if c.Query("from") == "" && c.Query("to") == "" {
		c.JSON(http.StatusOK, gin.H{"events": s.Calendar.Events()})
		return
	}

	events := s.Calendar.Events()
	defFrom, defTo := today(s.Now()), today(s.Now())
	if len(events) > 0 {
		defFrom, defTo = events[0].Date, events[len(events)-1].Date
	}
	from, to, err := queryDateRange(c, defFrom, defTo)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": s.Calendar.Between(from, to)})
}

// GetReminders returns the owner's reminders with their fired flags.
// @Summary     Get reminders
// @Description Get the owner's reminders with their fired flags
// @Tags        calendar
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Reminders"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /calendar/reminders [get]
func (h *CalendarHandler) GetReminders(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": s.Calendar.Reminders()})
}

// ExportICS downloads the calendar as an iCalendar file.
// @Summary     Export calendar as iCalendar
// @Tags        calendar
// @Produce     text/calendar
// @Security    BearerAuth
// @Success     200 {file} file "finora.ics"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /calendar/export.ics [get]
func (h *CalendarHandler) ExportICS(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="finora.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(s.Calendar.ExportICS()))
}

// ExportJSON downloads events and reminders as JSON.
// @Summary     Export calendar as JSON
// @Tags        calendar
// @Produce     json
// @Security    BearerAuth
// @Success     200 {file} file "finora-calendar.json"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /calendar/export.json [get]
func (h *CalendarHandler) ExportJSON(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	data, err := s.Calendar.ExportJSON()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="finora-calendar.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

// Import reads a JSON export and carries over its fired reminders.
// @Summary     Import calendar JSON
// @Description Mark reminders fired in a previous export as fired
// @Tags        calendar
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       file body object true "Calendar JSON export"
// @Success     200 {object} map[string]int "Reminders marked fired"
// @Failure     400 {object} ErrorResponse "Invalid import file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /calendar/import [post]
func (h *CalendarHandler) Import(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCalendarImportBytes))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrImportFormatInvalid, "could not read calendar file"))
		return
	}
	snap, err := calendar.ParseJSON(data)
	if err != nil {
		respondWithError(c, err)
		return
	}
	marked, err := s.Calendar.Import(c.Request.Context(), snap)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	h.auditService.Log(s.OwnerID, services.AuditCalendarSync, "calendar", "", c.ClientIP(), map[string]interface{}{"marked": marked})
	c.JSON(http.StatusOK, gin.H{"marked_fired": marked})
}
