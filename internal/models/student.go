package models

import "strings"

// Student is the read-only projection of a student shown on the dashboard.
type Student struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name,omitempty"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	StudentNumber string `json:"student_number"`
	PhoneNumber   string `json:"phone_number"`
}

// NameParts returns the template data used to format the display name.
func (s Student) NameParts() map[string]string {
	return map[string]string{
		"FirstName":  s.FirstName,
		"MiddleName": s.MiddleName,
		"LastName":   s.LastName,
	}
}

// FallbackName joins the non-empty name fields with single spaces.
func (s Student) FallbackName() string {
	return strings.Join(strings.Fields(strings.Join([]string{s.FirstName, s.MiddleName, s.LastName}, " ")), " ")
}

// Pagination mirrors the pagination block returned by the student API. It is
// passed through to the pager as-is.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// HasPrev reports whether a previous page exists.
func (p *Pagination) HasPrev() bool {
	return p != nil && p.CurrentPage > 1
}

// HasNext reports whether a following page exists.
func (p *Pagination) HasNext() bool {
	return p != nil && p.CurrentPage < p.LastPage
}

// Window returns up to size page numbers centred on the current page.
func (p *Pagination) Window(size int) []int {
	if p == nil || p.LastPage < 1 || size < 1 {
		return nil
	}
	start := p.CurrentPage - size/2
	if start < 1 {
		start = 1
	}
	end := start + size - 1
	if end > p.LastPage {
		end = p.LastPage
		start = end - size + 1
		if start < 1 {
			start = 1
		}
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// StudentQuery holds the listing parameters sent upstream.
type StudentQuery struct {
	Page int    `json:"page" validate:"min=1"`
	Name string `json:"name" validate:"max=100"`
}

// StudentPage is the body of `GET student/list`.
type StudentPage struct {
	Students   []Student   `json:"students"`
	Pagination *Pagination `json:"pagination"`
}

// IDs returns the ids of the students on the page in display order.
func (p *StudentPage) IDs() []int64 {
	if p == nil {
		return nil
	}
	ids := make([]int64, len(p.Students))
	for i, s := range p.Students {
		ids[i] = s.ID
	}
	return ids
}

// MessageResponse is the body returned by upstream mutations.
type MessageResponse struct {
	Message string `json:"message"`
}
