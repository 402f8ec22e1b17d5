package dashboard

import (
	"fmt"
	"time"

	"github.com/noah-isme/sma-adp-admin/internal/models"
)

// FetchStatus is the lifecycle of one listing fetch.
type FetchStatus string

const (
	FetchIdle    FetchStatus = "idle"
	FetchLoading FetchStatus = "loading"
	FetchSuccess FetchStatus = "success"
	FetchError   FetchStatus = "error"
)

// CacheKeyPrefix is shared by every listing cache key.
const CacheKeyPrefix = "students"

// QueryKey identifies one listing request.
type QueryKey struct {
	Page   int    `json:"page"`
	Search string `json:"search"`
}

func (k QueryKey) String() string {
	return fmt.Sprintf("%s:page=%d:name=%s", CacheKeyPrefix, k.Page, k.Search)
}

// Query converts the key into upstream parameters.
func (k QueryKey) Query() models.StudentQuery {
	return models.StudentQuery{Page: k.Page, Name: k.Search}
}

// FetchState tracks the latest listing fetch. Seq increases on every
// BeginFetch so late responses can be recognised.
type FetchState struct {
	Status FetchStatus `json:"status"`
	Seq    uint64      `json:"seq"`
	Key    QueryKey    `json:"key"`
	Err    string      `json:"err,omitempty"`
}

// FetchTicket is handed to the caller performing a fetch and returned with
// its outcome.
type FetchTicket struct {
	Seq uint64
	Key QueryKey
}

// State is the complete page state for one browser session.
type State struct {
	Page          int                `json:"page"`
	Search        string             `json:"search"`
	AppliedSearch string             `json:"applied_search"`
	Selection     []int64            `json:"selection"`
	Fetch         FetchState         `json:"fetch"`
	Rows          []models.Student   `json:"rows"`
	Pagination    *models.Pagination `json:"pagination,omitempty"`
	Dialog        DeleteDialog       `json:"dialog"`
	Notices       []Notice           `json:"notices,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// New returns the state of a freshly mounted page.
func New() *State {
	return &State{
		Page:      1,
		Selection: []int64{},
		Fetch:     FetchState{Status: FetchIdle},
		Dialog:    DeleteDialog{Status: DialogClosed, Outcome: OutcomeNone},
	}
}

// Normalize repairs values that may be missing after decoding older payloads.
func (s *State) Normalize() {
	if s.Page < 1 {
		s.Page = 1
	}
	if s.Selection == nil {
		s.Selection = []int64{}
	}
	if s.Fetch.Status == "" {
		s.Fetch.Status = FetchIdle
	}
	if s.Dialog.Status == "" {
		s.Dialog.Status = DialogClosed
	}
	if s.Dialog.Outcome == "" {
		s.Dialog.Outcome = OutcomeNone
	}
}

// SetSearch records raw input immediately and returns to the first page when
// the term changed. The fetch still uses AppliedSearch until ApplySearch runs.
func (s *State) SetSearch(term string) bool {
	if term == s.Search {
		return false
	}
	s.Search = term
	s.Page = 1
	return true
}

// ApplySearch promotes the raw input to the term used for fetching. It runs
// once the input has been stable for the debounce interval.
func (s *State) ApplySearch() bool {
	if s.AppliedSearch == s.Search {
		return false
	}
	s.AppliedSearch = s.Search
	s.Page = 1
	return true
}

// SetPage moves to page n, clamped to the known page range.
func (s *State) SetPage(n int) {
	if s.Pagination != nil && s.Pagination.LastPage > 0 && n > s.Pagination.LastPage {
		n = s.Pagination.LastPage
	}
	if n < 1 {
		n = 1
	}
	s.Page = n
}

// Key is the query key for the current page and applied search.
func (s *State) Key() QueryKey {
	return QueryKey{Page: s.Page, Search: s.AppliedSearch}
}

// BeginFetch starts a fetch for the current key and supersedes any fetch
// still in flight.
func (s *State) BeginFetch() FetchTicket {
	s.Fetch.Seq++
	s.Fetch.Key = s.Key()
	s.Fetch.Status = FetchLoading
	s.Fetch.Err = ""
	return FetchTicket{Seq: s.Fetch.Seq, Key: s.Fetch.Key}
}

// Loading reports whether a fetch is in flight.
func (s *State) Loading() bool {
	return s.Fetch.Status == FetchLoading
}

// CompleteFetch stores a page of results. It returns false and leaves the
// state untouched when the ticket was superseded. The selection keeps only
// ids present on the new page.
func (s *State) CompleteFetch(t FetchTicket, page *models.StudentPage) bool {
	if t.Seq != s.Fetch.Seq {
		return false
	}
	s.Fetch.Status = FetchSuccess
	s.Fetch.Err = ""
	s.Rows = nil
	s.Pagination = nil
	if page != nil {
		s.Rows = append([]models.Student(nil), page.Students...)
		if page.Pagination != nil {
			p := *page.Pagination
			s.Pagination = &p
		}
	}
	s.retainSelection()
	if s.Dialog.Status == DialogOpen && s.row(s.Dialog.StudentID) == nil {
		s.Dialog = DeleteDialog{Status: DialogClosed, Outcome: OutcomeNone}
	}
	return true
}

// FailFetch records a failed fetch. No partial data is kept.
func (s *State) FailFetch(t FetchTicket, err error) bool {
	if t.Seq != s.Fetch.Seq {
		return false
	}
	s.Fetch.Status = FetchError
	if err != nil {
		s.Fetch.Err = err.Error()
	}
	s.Rows = nil
	s.Pagination = nil
	s.Selection = []int64{}
	return true
}

func (s *State) row(id int64) *models.Student {
	for i := range s.Rows {
		if s.Rows[i].ID == id {
			return &s.Rows[i]
		}
	}
	return nil
}
