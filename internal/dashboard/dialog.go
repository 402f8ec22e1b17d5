package dashboard

import (
	"time"

	"github.com/noah-isme/sma-adp-admin/internal/models"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
)

// DialogStatus is the state of the delete confirmation dialog.
type DialogStatus string

const (
	DialogClosed     DialogStatus = "closed"
	DialogOpen       DialogStatus = "open"
	DialogSubmitting DialogStatus = "submitting"
)

// DialogOutcome records how the last dialog interaction ended.
type DialogOutcome string

const (
	OutcomeNone      DialogOutcome = "none"
	OutcomeConfirmed DialogOutcome = "confirmed"
	OutcomeCancelled DialogOutcome = "cancelled"
	OutcomeFailed    DialogOutcome = "failed"
)

// DeleteDialog holds the confirmation dialog for one row. Student is a copy
// taken when the dialog opened so a submitting dialog still renders after a
// refetch drops the row.
type DeleteDialog struct {
	Status      DialogStatus    `json:"status"`
	StudentID   int64           `json:"student_id,omitempty"`
	Student     *models.Student `json:"student,omitempty"`
	Outcome     DialogOutcome   `json:"outcome"`
	SubmittedAt time.Time       `json:"submitted_at,omitempty"`
}

// OpenDelete shows the confirmation dialog for a row on the current page.
func (s *State) OpenDelete(id int64) error {
	if s.Dialog.Status == DialogSubmitting {
		return appErrors.ErrDeleteInFlight
	}
	row := s.row(id)
	if row == nil {
		return appErrors.ErrUnknownRow
	}
	student := *row
	s.Dialog = DeleteDialog{Status: DialogOpen, StudentID: id, Student: &student, Outcome: OutcomeNone}
	return nil
}

// CancelDelete closes an open dialog. A submitting dialog stays as it is.
func (s *State) CancelDelete() bool {
	if s.Dialog.Status != DialogOpen {
		return false
	}
	s.Dialog = DeleteDialog{Status: DialogClosed, Outcome: OutcomeCancelled}
	return true
}

// BeginDelete locks the dialog while the delete request runs and returns the
// id to delete. A second confirm while submitting is rejected.
func (s *State) BeginDelete(now time.Time) (int64, error) {
	switch s.Dialog.Status {
	case DialogSubmitting:
		return 0, appErrors.ErrDeleteInFlight
	case DialogOpen:
		s.Dialog.Status = DialogSubmitting
		s.Dialog.SubmittedAt = now
		return s.Dialog.StudentID, nil
	default:
		return 0, appErrors.ErrDialogClosed
	}
}

// SettleDelete finishes a submitting dialog. On success the dialog closes and
// a notice carrying the server message is queued; on failure the dialog
// reopens so the user can retry or cancel.
func (s *State) SettleDelete(err error, message string) {
	if s.Dialog.Status != DialogSubmitting {
		return
	}
	if err != nil {
		s.failSubmit(err)
		return
	}
	id := s.Dialog.StudentID
	s.Dialog = DeleteDialog{Status: DialogClosed, Outcome: OutcomeConfirmed}
	s.Selection = removeID(s.Selection, id)
	s.PushNotice(Notice{Kind: NoticeSuccess, TitleID: "students.studentDeleted", Description: message})
}

// ReleaseStaleDelete settles a submit whose outcome was never recorded, for
// instance when saving the settled state failed. A submit older than maxAge
// is treated as failed. It reports whether the dialog changed.
func (s *State) ReleaseStaleDelete(now time.Time, maxAge time.Duration) bool {
	if s.Dialog.Status != DialogSubmitting || maxAge <= 0 {
		return false
	}
	if !s.Dialog.SubmittedAt.IsZero() && now.Sub(s.Dialog.SubmittedAt) <= maxAge {
		return false
	}
	s.failSubmit(appErrors.ErrDeleteUnsettled)
	return true
}

// failSubmit reopens the dialog after a failed submit, or closes it when the
// row is no longer on the page.
func (s *State) failSubmit(err error) {
	s.Dialog.Status = DialogOpen
	s.Dialog.Outcome = OutcomeFailed
	s.Dialog.SubmittedAt = time.Time{}
	if s.row(s.Dialog.StudentID) == nil {
		s.Dialog = DeleteDialog{Status: DialogClosed, Outcome: OutcomeFailed}
	}
	s.PushNotice(Notice{Kind: NoticeError, TitleID: "students.deleteFailed", Description: appErrors.FromError(err).Message})
}

// DialogStudent returns the student the dialog refers to. An open dialog
// needs the row on the page; a submitting one falls back to its copy.
func (s *State) DialogStudent() *models.Student {
	switch s.Dialog.Status {
	case DialogOpen:
		return s.row(s.Dialog.StudentID)
	case DialogSubmitting:
		if row := s.row(s.Dialog.StudentID); row != nil {
			return row
		}
		return s.Dialog.Student
	default:
		return nil
	}
}

func removeID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
