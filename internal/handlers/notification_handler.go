package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finora/internal/notify"
)

// NotificationHandler serves the in-app notification inbox: rolled-back
// writes, failed derived invoices and fired reminders.
type NotificationHandler struct {
	inbox *notify.Inbox
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(inbox *notify.Inbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

// List returns the owner's notifications, newest first.
// @Summary     List notifications
// @Description Get the owner's notifications, newest first
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Notifications"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": h.inbox.List(userID)})
}

// Clear empties the owner's inbox.
// @Summary     Clear notifications
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string "Notifications cleared"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /notifications [delete]
func (h *NotificationHandler) Clear(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.inbox.Clear(userID)
	c.JSON(http.StatusOK, gin.H{"message": "Notifications cleared"})
}
