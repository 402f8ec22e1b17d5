package dashboard

import (
	"github.com/noah-isme/sma-adp-admin/internal/models"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
)

// SelectAll selects every row on the loaded page, or clears the selection.
// Rows on other pages are never included.
func (s *State) SelectAll(checked bool) {
	if !checked {
		s.Selection = []int64{}
		return
	}
	ids := make([]int64, len(s.Rows))
	for i, r := range s.Rows {
		ids[i] = r.ID
	}
	s.Selection = ids
}

// ToggleRow adds or removes one row from the selection.
func (s *State) ToggleRow(id int64, checked bool) error {
	if s.row(id) == nil {
		return appErrors.ErrUnknownRow
	}
	idx := s.selectedIndex(id)
	switch {
	case checked && idx < 0:
		s.Selection = append(s.Selection, id)
	case !checked && idx >= 0:
		s.Selection = append(s.Selection[:idx:idx], s.Selection[idx+1:]...)
	}
	return nil
}

// IsSelected reports whether id is in the selection.
func (s *State) IsSelected(id int64) bool {
	return s.selectedIndex(id) >= 0
}

// AllPageRowsSelected drives the header checkbox.
func (s *State) AllPageRowsSelected() bool {
	if len(s.Rows) == 0 {
		return false
	}
	for _, r := range s.Rows {
		if !s.IsSelected(r.ID) {
			return false
		}
	}
	return true
}

// SelectionCount is the number of selected rows.
func (s *State) SelectionCount() int {
	return len(s.Selection)
}

// ExportVisible reports whether the export control should be shown.
func (s *State) ExportVisible() bool {
	return len(s.Selection) > 0
}

// ExportSelection returns a copy of the selected ids in selection order.
func (s *State) ExportSelection() []int64 {
	return append([]int64(nil), s.Selection...)
}

// SelectedRows returns the selected students in page order.
func (s *State) SelectedRows() []models.Student {
	rows := make([]models.Student, 0, len(s.Selection))
	for _, r := range s.Rows {
		if s.IsSelected(r.ID) {
			rows = append(rows, r)
		}
	}
	return rows
}

func (s *State) selectedIndex(id int64) int {
	for i, v := range s.Selection {
		if v == id {
			return i
		}
	}
	return -1
}

func (s *State) retainSelection() {
	kept := make([]int64, 0, len(s.Selection))
	for _, id := range s.Selection {
		if s.row(id) != nil {
			kept = append(kept, id)
		}
	}
	s.Selection = kept
}
