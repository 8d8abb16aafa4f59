package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/logger"
	"finora/internal/middleware"
	"finora/internal/session"
)

const dateLayout = "2006-01-02"

// getUserID extracts the authenticated user ID from the Gin context.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		return "", apperrors.ErrAuthenticationRequired
	}
	return userID, nil
}

// getSession returns the owner's engine session attached by
// middleware.SessionMiddleware.
func getSession(c *gin.Context) (*session.Session, error) {
	v, ok := c.Get(middleware.SessionKey)
	if !ok {
		return nil, apperrors.ErrAuthenticationRequired
	}
	s, ok := v.(*session.Session)
	if !ok || s == nil {
		return nil, apperrors.ErrAuthenticationRequired
	}
	return s, nil
}

// invalidInput turns a binding error into VALIDATION_FAILED.
func invalidInput(err error) error {
	return apperrors.WithMessage(apperrors.ErrValidationFailed, err.Error())
}

// wantsWait reports whether the client asked to block until the write
// settled (?wait=true).
func wantsWait(c *gin.Context) bool {
	return c.Query("wait") == "true"
}

// parseDate parses a YYYY-MM-DD value in UTC.
func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, value)
}

// queryDateRange reads optional from/to query parameters. Missing bounds
// default to the given values.
func queryDateRange(c *gin.Context, defFrom, defTo time.Time) (time.Time, time.Time, error) {
	from, to := defFrom, defTo
	if v := c.Query("from"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return from, to, apperrors.WithMessage(apperrors.ErrValidationFailed, "from must be YYYY-MM-DD")
		}
		from = d
	}
	if v := c.Query("to"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return from, to, apperrors.WithMessage(apperrors.ErrValidationFailed, "to must be YYYY-MM-DD")
		}
		to = d
	}
	if to.Before(from) {
		return from, to, apperrors.WithMessage(apperrors.ErrValidationFailed, "to must not be before from")
	}
	return from, to, nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
				"request_id", c.GetString(middleware.RequestIDKey),
			)
		}
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"request_id", c.GetString(middleware.RequestIDKey),
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrInternalServer.Code,
			"message": apperrors.ErrInternalServer.Message,
		},
	})
}
