package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/config"
)

const (
	sessionIDKey = "sid"

	// ContextKeySessionID holds the browser session id in the gin context
	ContextKeySessionID = "session_id"
)

// NewSessionStore creates the signed cookie store that carries session ids
func NewSessionStore(cfg config.SessionConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionMiddleware gives every browser a stable session id. The cart and
// checkout flow of the browser hang off that id.
func SessionMiddleware(store sessions.Store, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// A tampered or stale cookie still yields a fresh session.
		session, err := store.Get(c.Request, cookieName)
		if err != nil {
			logger.Debug("Replacing unreadable session cookie", zap.Error(err))
		}

		id, _ := session.Values[sessionIDKey].(string)
		if id == "" {
			id = uuid.NewString()
			session.Values[sessionIDKey] = id
			if err := session.Save(c.Request, c.Writer); err != nil {
				logger.Error("Failed to save session", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
		}

		c.Set(ContextKeySessionID, id)
		c.Next()
	}
}

// GetSessionID returns the session id set by SessionMiddleware
func GetSessionID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextKeySessionID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
