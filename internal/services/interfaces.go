// Package services holds the account-level business logic that sits outside
// the per-owner engine: users, credentials and the audit trail.
package services

import (
	"finora/internal/models"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// Audit actions.
const (
	AuditRegister      = "register"
	AuditLogin         = "login"
	AuditLogout        = "logout"
	AuditBackupRestore = "backup_restore"
	AuditInvoiceStatus = "invoice_status"
	AuditCalendarSync  = "calendar_import"
)

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
