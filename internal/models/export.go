package models

import (
	"io"
	"time"
)

// ExportRequest is posted to `student/export`.
type ExportRequest struct {
	IDs  []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
	Name string  `json:"name,omitempty"`
}

// ExportFile is a file streamed back by the student API. Callers must close Body.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

// ExportLink points at a stored export that can be downloaded until ExpiresAt.
type ExportLink struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RenderedFile is an export rendered in-process.
type RenderedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
