// Package i18n loads the page translations and resolves the language for a
// request.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "sma_admin_lang"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog holds every loaded translation.
type Catalog struct {
	bundle    *i18n.Bundle
	supported []language.Tag
	matcher   language.Matcher
	fallback  language.Tag
}

// NewCatalog parses the embedded locale files. defaultLang is used when a
// request expresses no usable preference.
func NewCatalog(defaultLang string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	supported := []language.Tag{language.English}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", f.Name(), err)
		}
		mf, err := bundle.ParseMessageFileBytes(data, f.Name())
		if err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", f.Name(), err)
		}
		if mf.Tag != language.English {
			supported = append(supported, mf.Tag)
		}
	}

	c := &Catalog{bundle: bundle, supported: supported, matcher: language.NewMatcher(supported)}
	c.fallback = c.Match(defaultLang)
	return c, nil
}

// Supported lists the loaded languages, English first.
func (c *Catalog) Supported() []language.Tag {
	return append([]language.Tag(nil), c.supported...)
}

// Match maps any language string onto a supported tag.
func (c *Catalog) Match(lang string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		if c.fallback != language.Und {
			return c.fallback
		}
		return language.English
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		if c.fallback != language.Und {
			return c.fallback
		}
		return language.English
	}
	return c.supported[idx]
}

// Resolve picks the language for a request from the lang query parameter, the
// language cookie and Accept-Language, in that order. The bool reports whether
// the choice came from the query and should be persisted.
func (c *Catalog) Resolve(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return c.fallback, false
	}
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		return c.Match(v), true
	}
	if cookie, err := r.Cookie(LangCookieName); err == nil && cookie.Value != "" {
		return c.Match(cookie.Value), false
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		return c.Match(accept), false
	}
	return c.fallback, false
}

// SetCookie persists the selected language on the response.
func SetCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// Localizer translates messages for one language.
type Localizer struct {
	tag       language.Tag
	localizer *i18n.Localizer
}

// For returns a localizer for tag.
func (c *Catalog) For(tag language.Tag) *Localizer {
	return &Localizer{tag: tag, localizer: i18n.NewLocalizer(c.bundle, tag.String())}
}

// Tag is the localizer's language.
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// Dir is the text direction for the html dir attribute.
func (l *Localizer) Dir() string {
	base, _ := l.tag.Base()
	switch base.String() {
	case "ar", "fa", "he", "ur":
		return "rtl"
	default:
		return "ltr"
	}
}

// T translates messageID. Unknown ids are returned unchanged.
func (l *Localizer) T(messageID string) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		return messageID
	}
	return msg
}

// TData translates messageID with template data.
func (l *Localizer) TData(messageID string, data interface{}) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID, TemplateData: data})
	if err != nil {
		return messageID
	}
	return msg
}

// Name formats a student's display name, collapsing blanks left by empty parts.
func (l *Localizer) Name(parts map[string]string) string {
	return strings.Join(strings.Fields(l.TData("names.name", parts)), " ")
}
