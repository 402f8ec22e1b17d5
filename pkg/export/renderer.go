package export

import (
	"fmt"
	"strings"
)

// Format names a snapshot export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// Renderer turns a dataset into a downloadable file.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// Registry resolves renderers by format.
type Registry struct {
	renderers map[Format]Renderer
}

// NewRegistry returns a registry holding the CSV, PDF and XLSX renderers.
func NewRegistry() *Registry {
	return &Registry{renderers: map[Format]Renderer{
		FormatCSV:  NewCSVExporter(),
		FormatPDF:  NewPDFExporter(),
		FormatXLSX: NewXLSXExporter(),
	}}
}

// Lookup returns the renderer for the raw format name (case-insensitive).
func (r *Registry) Lookup(raw string) (Renderer, error) {
	format := Format(strings.ToLower(strings.TrimSpace(raw)))
	if format == "" {
		format = FormatCSV
	}
	renderer, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("unsupported export format %q", raw)
	}
	return renderer, nil
}
