package handler

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-admin/internal/i18n"
	"github.com/noah-isme/sma-adp-admin/internal/middleware"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
)

func actorFromContext(c *gin.Context) string {
	claims, ok := middleware.Claims(c)
	if !ok {
		return ""
	}
	return claims.UserID
}

// requestContext returns the request context; the JWT middleware has already
// attached the upstream token to it.
func requestContext(c *gin.Context) context.Context {
	return c.Request.Context()
}

func localizerFor(c *gin.Context, catalog *i18n.Catalog) *i18n.Localizer {
	if l := middleware.Localizer(c); l != nil {
		return l
	}
	tag, _ := catalog.Resolve(c.Request)
	return catalog.For(tag)
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid student id")
	}
	return id, nil
}

func parseChecked(c *gin.Context) (bool, error) {
	raw := strings.TrimSpace(c.PostForm("checked"))
	if raw == "" {
		return false, nil
	}
	checked, err := strconv.ParseBool(raw)
	if err != nil {
		return false, appErrors.Clone(appErrors.ErrValidation, "checked must be a boolean")
	}
	return checked, nil
}

func parsePage(raw string) (int, error) {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
	}
	return page, nil
}

func setAttachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Header("Cache-Control", "no-store")
	c.Header("X-Content-Type-Options", "nosniff")
}

func isServerError(err error) bool {
	return appErrors.FromError(err).Status >= http.StatusInternalServerError
}
