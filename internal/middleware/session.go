package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/session"
)

// SessionKey holds the owner's *session.Session on the Gin context.
const SessionKey = "session"

// SessionResolver returns the running session of an owner, starting it on
// first use. *session.Manager satisfies it.
type SessionResolver interface {
	Get(ctx context.Context, ownerID string) (*session.Session, error)
}

// SessionMiddleware attaches the authenticated owner's engine session. It
// must run after AuthMiddleware.
func SessionMiddleware(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetString(UserIDKey)
		if ownerID == "" {
			abortWithError(c, apperrors.ErrAuthenticationRequired)
			return
		}
		s, err := sessions.Get(c.Request.Context(), ownerID)
		if err != nil {
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				appErr = apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			_ = c.Error(err)
			abortWithError(c, appErr)
			return
		}
		c.Set(SessionKey, s)
		c.Next()
	}
}
