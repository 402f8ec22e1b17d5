package dashboard

import "github.com/noah-isme/sma-adp-admin/internal/models"

// Row is one table row.
type Row struct {
	Student  models.Student `json:"student"`
	Selected bool           `json:"selected"`
}

// DialogView is the delete dialog as rendered.
type DialogView struct {
	Open          bool            `json:"open"`
	Submitting    bool            `json:"submitting"`
	ConfirmLocked bool            `json:"confirm_locked"`
	Student       *models.Student `json:"student,omitempty"`
}

// View is the read model shared by the HTML page and the JSON endpoint.
type View struct {
	Page           int                `json:"page"`
	Search         string             `json:"search"`
	AppliedSearch  string             `json:"applied_search"`
	SearchPending  bool               `json:"search_pending"`
	Status         FetchStatus        `json:"status"`
	Loading        bool               `json:"loading"`
	Failed         bool               `json:"failed"`
	Rows           []Row              `json:"rows"`
	Pagination     *models.Pagination `json:"pagination,omitempty"`
	AllSelected    bool               `json:"all_selected"`
	SelectedIDs    []int64            `json:"selected_ids"`
	SelectionCount int                `json:"selection_count"`
	ExportVisible  bool               `json:"export_visible"`
	Dialog         DialogView         `json:"dialog"`
	Notices        []Notice           `json:"notices,omitempty"`
}

// Snapshot builds the read model. It does not drain notices.
func (s *State) Snapshot() View {
	rows := make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = Row{Student: r, Selected: s.IsSelected(r.ID)}
	}
	v := View{
		Page:           s.Page,
		Search:         s.Search,
		AppliedSearch:  s.AppliedSearch,
		SearchPending:  s.Search != s.AppliedSearch,
		Status:         s.Fetch.Status,
		Loading:        s.Loading(),
		Failed:         s.Fetch.Status == FetchError,
		Rows:           rows,
		Pagination:     s.Pagination,
		AllSelected:    s.AllPageRowsSelected(),
		SelectedIDs:    s.ExportSelection(),
		SelectionCount: s.SelectionCount(),
		ExportVisible:  s.ExportVisible(),
		Notices:        append([]Notice(nil), s.Notices...),
	}
	if student := s.DialogStudent(); student != nil {
		st := *student
		v.Dialog = DialogView{
			Open:          true,
			Submitting:    s.Dialog.Status == DialogSubmitting,
			ConfirmLocked: s.Dialog.Status == DialogSubmitting,
			Student:       &st,
		}
	}
	return v
}
