package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-admin/internal/client"
	"github.com/noah-isme/sma-adp-admin/internal/models"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
	"github.com/noah-isme/sma-adp-admin/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing JWT claims.
	ContextUserKey = "currentUser"
	// ContextTokenKey stores the raw access token.
	ContextTokenKey = "accessToken"
	// AccessTokenCookie is the cookie the login page sets for browser sessions.
	AccessTokenCookie = "access_token"
)

// TokenValidator checks an access token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT requires an access token from the Authorization header or the
// access_token cookie. The token is attached to the request context so the
// student client forwards it upstream. Browsers without a token are sent to
// loginURL when one is configured.
func JWT(auth TokenValidator, loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := accessToken(c)
		if err != nil {
			deny(c, err, loginURL)
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			deny(c, err, loginURL)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextTokenKey, token)
		c.Request = c.Request.WithContext(client.WithToken(c.Request.Context(), token))
		c.Next()
	}
}

func accessToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", appErrors.ErrUnauthorized
}

// deny aborts the request. Unauthenticated page loads are redirected to the
// login page; everything else gets the JSON error envelope.
func deny(c *gin.Context, err error, loginURL string) {
	if loginURL != "" && errors.Is(err, appErrors.ErrUnauthorized) && !response.WantsJSON(c) {
		c.Redirect(http.StatusSeeOther, LoginRedirect(loginURL, c.Request.URL.RequestURI()))
		c.Abort()
		return
	}
	response.Error(c, err)
	c.Abort()
}

// LoginRedirect appends the page to return to after login.
func LoginRedirect(loginURL, next string) string {
	u, err := url.Parse(loginURL)
	if err != nil {
		return loginURL
	}
	q := u.Query()
	q.Set("next", next)
	u.RawQuery = q.Encode()
	return u.String()
}
