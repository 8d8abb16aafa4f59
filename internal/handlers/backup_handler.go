package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"finora/internal/backup"
	apperrors "finora/internal/errors"
	"finora/internal/gateway"
	"finora/internal/services"
)

const maxBackupBytes = 20 << 20

// BackupHandler serves full-account export/restore and report data.
type BackupHandler struct {
	gateways     gateway.Gateways
	db           *gorm.DB
	auditService services.AuditServicer
}

// NewBackupHandler creates a new BackupHandler
func NewBackupHandler(gateways gateway.Gateways, db *gorm.DB, auditService services.AuditServicer) *BackupHandler {
	return &BackupHandler{gateways: gateways, db: db, auditService: auditService}
}

// Export downloads every record of the owner as a backup file.
// @Summary     Export backup
// @Description Download every record of the owner as a backup file
// @Tags        backup
// @Produce     json
// @Security    BearerAuth
// @Success     200 {file} file "Backup file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /backup [get]
func (h *BackupHandler) Export(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	f, err := backup.Export(gateway.WithOwner(c.Request.Context(), s.OwnerID), h.gateways)
	if err != nil {
		respondWithError(c, err)
		return
	}
	f.Metadata.Timestamp = s.Now().UTC()

	data, err := backup.Marshal(f)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	name := fmt.Sprintf("finora-backup-%s.json", f.Metadata.Timestamp.Format(dateLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/json", data)
}

// Restore replaces the owner's data with a backup file. Pending writes are
// settled first and the projections reloaded afterwards. A rejected file
// leaves stored data untouched.
// @Summary     Restore backup
// @Description Replace the owner's data with the contents of a backup file
// @Tags        backup
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       file body object true "Backup file"
// @Success     200 {object} map[string]int "Records restored"
// @Failure     400 {object} ErrorResponse "Invalid backup file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /backup [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBackupBytes))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrImportFormatInvalid, "could not read backup file"))
		return
	}
	f, err := backup.Parse(data)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ctx := gateway.WithOwner(c.Request.Context(), s.OwnerID)
	if err := s.Settle(ctx); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	if err := backup.Restore(ctx, h.db, f); err != nil {
		respondWithError(c, err)
		return
	}
	if err := s.Reload(ctx); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(s.OwnerID, services.AuditBackupRestore, "backup", "", c.ClientIP(), map[string]interface{}{
		"records": f.Total(),
		"version": f.Metadata.Version,
	})
	c.JSON(http.StatusOK, gin.H{"restored": f.Total()})
}

// Report returns date-filtered report data. ?sections= takes a comma list of
// summary, incomes, expenses, invoices and clients; default is all.
// @Summary     Get report data
// @Description Get date-filtered report sections (default: the current month, all sections)
// @Tags        backup
// @Produce     json
// @Security    BearerAuth
// @Param       from     query string false "Start date (YYYY-MM-DD)"
// @Param       to       query string false "End date (YYYY-MM-DD)"
// @Param       sections query string false "Comma list of summary, incomes, expenses, invoices, clients"
// @Success     200 {object} map[string]interface{} "Report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /reports [get]
func (h *BackupHandler) Report(c *gin.Context) {
	s, err := getSession(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := today(s.Now())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from, to, err := queryDateRange(c, monthStart, monthStart.AddDate(0, 1, -1))
	if err != nil {
		respondWithError(c, err)
		return
	}

	sections, err := parseSections(c.Query("sections"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	f := backup.File{
		Incomes:  s.Incomes.Items(),
		Expenses: s.Expenses.Items(),
		Clients:  s.Clients.Items(),
		Invoices: s.Invoices.Items(),
	}
	c.JSON(http.StatusOK, gin.H{"report": backup.BuildReport(f, from, to, sections)})
}

func parseSections(raw string) (backup.Sections, error) {
	if raw == "" {
		return backup.AllSections(), nil
	}
	var sec backup.Sections
	for _, name := range strings.Split(raw, ",") {
		switch strings.TrimSpace(name) {
		case "summary":
			sec.Summary = true
		case "incomes":
			sec.Incomes = true
		case "expenses":
			sec.Expenses = true
		case "invoices":
			sec.Invoices = true
		case "clients":
			sec.Clients = true
		default:
			return sec, apperrors.WithMessage(apperrors.ErrValidationFailed, "unknown report section "+name)
		}
	}
	return sec, nil
}
