package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-admin/internal/i18n"
)

// ContextLocalizerKey stores the request's *i18n.Localizer.
const ContextLocalizerKey = "localizer"

// Locale resolves the request language and stores a localizer for it. A
// language picked through the query string is remembered in a cookie.
func Locale(catalog *i18n.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag, persist := catalog.Resolve(c.Request)
		if persist {
			i18n.SetCookie(c.Writer, tag)
		}
		c.Set(ContextLocalizerKey, catalog.For(tag))
		c.Header("Content-Language", tag.String())
		c.Next()
	}
}

// Localizer returns the localizer stored by Locale, or nil.
func Localizer(c *gin.Context) *i18n.Localizer {
	if v, ok := c.Get(ContextLocalizerKey); ok {
		if l, ok := v.(*i18n.Localizer); ok {
			return l
		}
	}
	return nil
}
