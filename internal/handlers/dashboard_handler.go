package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/stats"
)

// DashboardHandler serves the derived monthly view.
type DashboardHandler struct{}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// GetDashboard returns the current month's stats.
// @Summary     Get dashboard
// @Description Get the current month's totals, balance and category breakdown
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]models.DashboardStats "Dashboard"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dashboard": s.Dashboard()})
}

// GetRecent returns the latest incomes and expenses, newest first.
// @Summary     Get recent transactions
// @Description Get the latest incomes and expenses, newest first
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Param       limit query int false "Number of transactions (default 5, max 100)"
// @Success     200 {object} map[string]interface{} "Recent transactions"
// @Failure     400 {object} ErrorResponse "Invalid limit"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/recent [get]
func (h *DashboardHandler) GetRecent(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	limit := stats.RecentLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrValidationFailed, "limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	c.JSON(http.StatusOK, gin.H{"transactions": stats.Recent(s.Incomes.Items(), s.Expenses.Items(), limit)})
}
