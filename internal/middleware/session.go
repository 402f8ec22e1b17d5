package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextSessionKey stores the page session id.
const ContextSessionKey = "pageSession"

// SessionOptions configures the session cookie.
type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session assigns every browser a random session id kept in a cookie. The
// cookie is refreshed on each request so active sessions do not expire.
func Session(opts SessionOptions) gin.HandlerFunc {
	if opts.CookieName == "" {
		opts.CookieName = "sma_admin_session"
	}
	return func(c *gin.Context) {
		id, err := c.Cookie(opts.CookieName)
		if err == nil {
			_, err = uuid.Parse(id)
		}
		if err != nil {
			id = uuid.NewString()
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     opts.CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(opts.TTL.Seconds()),
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		c.Set(ContextSessionKey, id)
		c.Next()
	}
}

// SessionID returns the id assigned by Session.
func SessionID(c *gin.Context) string {
	if v, ok := c.Get(ContextSessionKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
