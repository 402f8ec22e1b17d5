// Package web holds the HTML templates and static assets of the students page.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-adp-admin/internal/dashboard"
	"github.com/noah-isme/sma-adp-admin/internal/i18n"
	"github.com/noah-isme/sma-adp-admin/internal/models"
)

const (
	// PageTemplate renders the full document.
	PageTemplate = "students.html"
	// RegionTemplate renders the part of the page refreshed by script.
	RegionTemplate = "students_region"

	pagerWindow = 5
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Templates parses the embedded templates.
func Templates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"join": joinIDs,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// Static returns the embedded assets rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Links builds navigation targets for the frontend routes that own student
// detail, edit and create screens. An empty Base keeps links relative.
type Links struct {
	Base string
}

func (l Links) prefix() string {
	if l.Base == "" {
		return "students"
	}
	return strings.TrimRight(l.Base, "/") + "/students"
}

// Detail links to a student's page.
func (l Links) Detail(id int64) string {
	return l.prefix() + "/" + strconv.FormatInt(id, 10)
}

// Edit links to the edit form.
func (l Links) Edit(id int64) string {
	return l.prefix() + "/edit/" + strconv.FormatInt(id, 10)
}

// Parents links to the parents editor.
func (l Links) Parents(id int64) string {
	return l.prefix() + "/" + strconv.FormatInt(id, 10) + "/parents"
}

// Create links to the new student form.
func (l Links) Create() string {
	return l.prefix() + "/create"
}

// Page is the data handed to the templates.
type Page struct {
	L          *i18n.Localizer
	View       dashboard.View
	Links      Links
	DebounceMS int64
	Languages  []string
}

// NewPage assembles template data.
func NewPage(l *i18n.Localizer, view dashboard.View, links Links, debounce time.Duration, languages []string) Page {
	return Page{L: l, View: view, Links: links, DebounceMS: debounce.Milliseconds(), Languages: languages}
}

// Name is the localised display name of a student.
func (p Page) Name(s models.Student) string {
	if name := p.L.Name(s.NameParts()); name != "" {
		return name
	}
	return s.FallbackName()
}

// Pages is the pager window around the current page.
func (p Page) Pages() []int {
	return p.View.Pagination.Window(pagerWindow)
}

// PrevPage is the page before the current one.
func (p Page) PrevPage() int {
	if p.View.Pagination == nil {
		return 1
	}
	return p.View.Pagination.CurrentPage - 1
}

// NextPage is the page after the current one.
func (p Page) NextPage() int {
	if p.View.Pagination == nil {
		return 1
	}
	return p.View.Pagination.CurrentPage + 1
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
