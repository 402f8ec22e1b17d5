package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-admin/internal/dashboard"
	"github.com/noah-isme/sma-adp-admin/internal/models"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
	"github.com/noah-isme/sma-adp-admin/pkg/debounce"
	"github.com/noah-isme/sma-adp-admin/pkg/export"
)

const sessionIOTimeout = 5 * time.Second

// SessionRepository persists page state per browser session.
type SessionRepository interface {
	Load(ctx context.Context, id string) (*dashboard.State, error)
	Save(ctx context.Context, id string, state *dashboard.State) error
}

type studentListing interface {
	List(ctx context.Context, key dashboard.QueryKey) (*models.StudentPage, bool, error)
	Invalidate(ctx context.Context) error
}

type studentDeleter interface {
	Delete(ctx context.Context, id int64) (*models.MessageResponse, error)
}

type studentExports interface {
	FromUpstream(ctx context.Context, req models.ExportRequest) (*models.ExportLink, error)
	Snapshot(format string, basename string, data export.Dataset) (*models.RenderedFile, error)
}

// Translator localises snapshot headers and student names.
type Translator interface {
	T(messageID string) string
	Name(parts map[string]string) string
}

// StudentPageConfig tunes the students page.
type StudentPageConfig struct {
	SearchDebounce time.Duration
	// SubmitTimeout bounds how long a delete may stay submitting without a
	// recorded outcome. It should exceed the upstream timeout.
	SubmitTimeout time.Duration
}

const (
	settleAttempts = 3
	settleBackoff  = 100 * time.Millisecond
)

type searchInput struct {
	Name string `validate:"max=100"`
}

// StudentPageService drives the students page state machine. Every
// transition for a session runs under that session's lock; upstream calls
// run outside it.
type StudentPageService struct {
	sessions  SessionRepository
	listing   studentListing
	deleter   studentDeleter
	exports   studentExports
	debouncer *debounce.Debouncer
	locks     *sessionLocks
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time

	submitTimeout time.Duration
	settleBackoff time.Duration
}

// NewStudentPageService constructs the page service.
func NewStudentPageService(sessions SessionRepository, listing studentListing, deleter studentDeleter, exports studentExports, metrics *MetricsService, validate *validator.Validate, cfg StudentPageConfig, logger *zap.Logger) *StudentPageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = 500 * time.Millisecond
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 30 * time.Second
	}
	return &StudentPageService{
		sessions:  sessions,
		listing:   listing,
		deleter:   deleter,
		exports:   exports,
		debouncer: debounce.New(cfg.SearchDebounce),
		locks:     newSessionLocks(),
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,

		submitTimeout: cfg.SubmitTimeout,
		settleBackoff: settleBackoff,
	}
}

// SearchDebounce is the delay before typed input is applied.
func (s *StudentPageService) SearchDebounce() time.Duration {
	return s.debouncer.Delay()
}

// Close cancels pending debounced searches.
func (s *StudentPageService) Close() {
	s.debouncer.Stop()
}

// View runs one fetch cycle for the session and returns the rendered state
// with queued notices drained. Listing failures are stored in the state
// except for authentication failures, which are returned.
func (s *StudentPageService) View(ctx context.Context, sessionID string) (dashboard.View, bool, error) {
	var ticket dashboard.FetchTicket
	if _, err := s.mutate(ctx, sessionID, func(st *dashboard.State) error {
		ticket = st.BeginFetch()
		return nil
	}); err != nil {
		return dashboard.View{}, false, err
	}

	page, hit, fetchErr := s.listing.List(ctx, ticket.Key)
	if fetchErr != nil {
		s.logger.Warn("student listing failed",
			zap.String("key", ticket.Key.String()),
			zap.Error(fetchErr),
		)
	}

	var view dashboard.View
	_, err := s.mutate(context.WithoutCancel(ctx), sessionID, func(st *dashboard.State) error {
		var applied bool
		if fetchErr != nil {
			applied = st.FailFetch(ticket, fetchErr)
		} else {
			applied = st.CompleteFetch(ticket, page)
		}
		if !applied {
			s.metrics.RecordStaleFetch()
			s.logger.Debug("stale listing discarded", zap.Uint64("seq", ticket.Seq))
		}
		view = st.Snapshot()
		st.DrainNotices()
		return nil
	})
	if err != nil {
		return dashboard.View{}, false, err
	}
	if errors.Is(fetchErr, appErrors.ErrUnauthorized) {
		return view, false, fetchErr
	}
	return view, hit, nil
}

// State returns the stored state without fetching.
func (s *StudentPageService) State(ctx context.Context, sessionID string) (dashboard.View, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()
	st, err := s.load(ctx, sessionID)
	if err != nil {
		return dashboard.View{}, err
	}
	return st.Snapshot(), nil
}

// Search records typed input and applies it once the input has been stable
// for the debounce interval.
func (s *StudentPageService) Search(ctx context.Context, sessionID, term string) error {
	if err := s.validateSearch(term); err != nil {
		return err
	}
	if _, err := s.mutate(ctx, sessionID, func(st *dashboard.State) error {
		st.SetSearch(term)
		return nil
	}); err != nil {
		return err
	}
	s.debouncer.Trigger(sessionID, func() { s.applyDebounced(sessionID) })
	return nil
}

// ApplySearchNow sets and applies term without waiting, as a plain form
// submit does.
func (s *StudentPageService) ApplySearchNow(ctx context.Context, sessionID, term string) error {
	if err := s.validateSearch(term); err != nil {
		return err
	}
	s.debouncer.Cancel(sessionID)
	_, err := s.mutate(ctx, sessionID, func(st *dashboard.State) error {
		st.SetSearch(term)
		st.ApplySearch()
		return nil
	})
	return err
}

// SetPage moves the session to page n.
func (s *StudentPageService) SetPage(ctx context.Context, sessionID string, n int) error {
	_, err := s.mutate(ctx, sessionID, func(st *dashboard.State) error {
		st.SetPage(n)
		return nil
	})
	return err
}

// SelectAll selects or clears every row on the loaded page.
func (s *StudentPageService) SelectAll(ctx context.Context, sessionID string, checked bool) error {
	_, err := s.mutate(ctx, sessionID, func(st *dashboard.State) error {
		st.SelectAll(checked)
		return nil
	})
	return err
}

// ToggleRow selects or deselects one row of the loaded page.
func (s *StudentPageService) ToggleRow(ctx context.Context, sessionID string, id int64, checked bool) error {
	_, err := s.mutate(ctx, sessionID, func(st *dashboard.State) error {
		return st.ToggleRow(id, checked)
	})
	return err
}

// OpenDelete shows the confirmation dialog for a row.
func (s *StudentPageService) OpenDelete(ctx context.Context, sessionID string, id int64) error {
	_, err := s.mutate(ctx, sessionID, func(st *dashboard.State) error {
		return st.OpenDelete(id)
	})
	return err
}

// CancelDelete closes the confirmation dialog.
func (s *StudentPageService) CancelDelete(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, func(st *dashboard.State) error {
		st.CancelDelete()
		return nil
	})
	return err
}

// ConfirmDelete deletes the student in the open dialog. A confirm while a
// delete is already running fails with ErrDeleteInFlight and sends nothing
// upstream.
func (s *StudentPageService) ConfirmDelete(ctx context.Context, sessionID string) (*models.MessageResponse, error) {
	var studentID int64
	if _, err := s.mutate(ctx, sessionID, func(st *dashboard.State) error {
		id, err := st.BeginDelete(s.now().UTC())
		studentID = id
		return err
	}); err != nil {
		return nil, err
	}

	resp, deleteErr := s.deleter.Delete(ctx, studentID)
	s.metrics.RecordDelete(deleteErr)

	settleCtx := context.WithoutCancel(ctx)
	message := ""
	if deleteErr == nil {
		if resp != nil {
			message = resp.Message
		}
		if err := s.listing.Invalidate(settleCtx); err != nil {
			s.logger.Warn("listing cache not invalidated after delete", zap.Error(err))
		}
		s.logger.Info("student deleted", zap.Int64("student_id", studentID))
	} else {
		s.logger.Warn("student delete failed", zap.Int64("student_id", studentID), zap.Error(deleteErr))
	}

	s.settleDelete(settleCtx, sessionID, studentID, deleteErr, message)
	if deleteErr != nil {
		return nil, deleteErr
	}
	if resp == nil {
		resp = &models.MessageResponse{}
	}
	return resp, nil
}

// Export requests an upstream export of the selected students and returns a
// signed download link. The selection is left as it is.
func (s *StudentPageService) Export(ctx context.Context, sessionID string) (*models.ExportLink, error) {
	unlock := s.locks.lock(sessionID)
	st, err := s.load(ctx, sessionID)
	unlock()
	if err != nil {
		return nil, err
	}

	req := models.ExportRequest{IDs: st.ExportSelection(), Name: st.AppliedSearch}
	if len(req.IDs) == 0 {
		return nil, appErrors.ErrNoSelection
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}

	link, exportErr := s.exports.FromUpstream(ctx, req)
	notice := dashboard.Notice{Kind: dashboard.NoticeSuccess, TitleID: "students.exportReady"}
	if exportErr != nil {
		s.logger.Warn("student export failed", zap.Int("students", len(req.IDs)), zap.Error(exportErr))
		notice = dashboard.Notice{Kind: dashboard.NoticeError, TitleID: "students.exportFailed", Description: appErrors.FromError(exportErr).Message}
	} else {
		notice.Description = link.Filename
	}
	if _, err := s.mutate(context.WithoutCancel(ctx), sessionID, func(st *dashboard.State) error {
		st.PushNotice(notice)
		return nil
	}); err != nil {
		return nil, err
	}
	if exportErr != nil {
		return nil, exportErr
	}
	return link, nil
}

// Snapshot renders the selected rows of the loaded page locally.
func (s *StudentPageService) Snapshot(ctx context.Context, sessionID, format string, tr Translator) (*models.RenderedFile, error) {
	unlock := s.locks.lock(sessionID)
	st, err := s.load(ctx, sessionID)
	unlock()
	if err != nil {
		return nil, err
	}

	rows := st.SelectedRows()
	if len(rows) == 0 {
		return nil, appErrors.ErrNoSelection
	}
	return s.exports.Snapshot(format, "students", studentDataset(rows, tr))
}

func studentDataset(rows []models.Student, tr Translator) export.Dataset {
	name, email, number, phone := tr.T("students.name"), tr.T("students.email"), tr.T("students.studentId"), tr.T("students.phoneNumber")
	data := export.Dataset{
		Title:   tr.T("students.students"),
		Headers: []string{name, email, number, phone},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, r := range rows {
		display := tr.Name(r.NameParts())
		if display == "" {
			display = r.FallbackName()
		}
		data.Rows = append(data.Rows, map[string]string{
			name:   display,
			email:  r.Email,
			number: r.StudentNumber,
			phone:  r.PhoneNumber,
		})
	}
	return data
}

func (s *StudentPageService) applyDebounced(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), sessionIOTimeout)
	defer cancel()
	if _, err := s.mutate(ctx, sessionID, func(st *dashboard.State) error {
		st.ApplySearch()
		return nil
	}); err != nil {
		s.logger.Warn("debounced search not applied", zap.Error(err))
	}
}

func (s *StudentPageService) validateSearch(term string) error {
	if err := s.validator.Struct(searchInput{Name: term}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "search term too long")
	}
	return nil
}

// mutate applies fn to the session state under its lock and saves the
// result. fn returning an error leaves the stored state untouched.
// settleDelete records the delete outcome, retrying with a fresh load when the
// save fails. If every attempt fails the submit is released later by
// ReleaseStaleDelete.
func (s *StudentPageService) settleDelete(ctx context.Context, sessionID string, studentID int64, deleteErr error, message string) {
	var err error
	for attempt := 1; attempt <= settleAttempts; attempt++ {
		_, err = s.mutate(ctx, sessionID, func(st *dashboard.State) error {
			st.SettleDelete(deleteErr, message)
			return nil
		})
		if err == nil {
			return
		}
		s.logger.Warn("delete outcome not saved",
			zap.Int64("student_id", studentID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < settleAttempts {
			time.Sleep(time.Duration(attempt) * s.settleBackoff)
		}
	}
	s.logger.Error("delete outcome lost, dialog stays locked until the submit timeout",
		zap.Int64("student_id", studentID),
		zap.Duration("submit_timeout", s.submitTimeout),
		zap.Error(err),
	)
}

func (s *StudentPageService) mutate(ctx context.Context, sessionID string, fn func(*dashboard.State) error) (*dashboard.State, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	st, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.ReleaseStaleDelete(s.now().UTC(), s.submitTimeout) {
		s.logger.Warn("stale delete submit released", zap.String("session_id", sessionID))
	}
	if err := fn(st); err != nil {
		return st, err
	}
	st.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, sessionID, st); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save page state")
	}
	return st, nil
}

func (s *StudentPageService) load(ctx context.Context, sessionID string) (*dashboard.State, error) {
	st, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionNotFound) {
			return dashboard.New(), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load page state")
	}
	return st, nil
}
