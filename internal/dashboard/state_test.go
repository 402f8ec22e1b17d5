package dashboard

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-admin/internal/models"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
)

var submitAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func studentPage(current, last int, ids ...int64) *models.StudentPage {
	students := make([]models.Student, len(ids))
	for i, id := range ids {
		students[i] = models.Student{ID: id, FirstName: "Student", Email: "s@example.com"}
	}
	return &models.StudentPage{
		Students:   students,
		Pagination: &models.Pagination{CurrentPage: current, LastPage: last, PerPage: len(ids), Total: last * len(ids)},
	}
}

func loaded(t *testing.T, ids ...int64) *State {
	t.Helper()
	s := New()
	ticket := s.BeginFetch()
	require.True(t, s.CompleteFetch(ticket, studentPage(1, 3, ids...)))
	return s
}

func TestNewState(t *testing.T) {
	s := New()

	assert.Equal(t, 1, s.Page)
	assert.Empty(t, s.Selection)
	assert.Equal(t, FetchIdle, s.Fetch.Status)
	assert.Equal(t, DialogClosed, s.Dialog.Status)
	assert.False(t, s.ExportVisible())
}

func TestSearchResetsPageAndAppliesLater(t *testing.T) {
	s := New()
	s.SetPage(3)

	assert.True(t, s.SetSearch("ali"))
	assert.Equal(t, 1, s.Page)
	assert.Equal(t, "", s.Key().Search)

	s.SetPage(2)
	assert.True(t, s.ApplySearch())
	assert.Equal(t, QueryKey{Page: 1, Search: "ali"}, s.Key())
	assert.False(t, s.ApplySearch())
	assert.False(t, s.SetSearch("ali"))
}

func TestSetPageClamps(t *testing.T) {
	s := loaded(t, 1, 2)

	s.SetPage(0)
	assert.Equal(t, 1, s.Page)
	s.SetPage(10)
	assert.Equal(t, 3, s.Page)
}

func TestQueryKeyString(t *testing.T) {
	assert.Equal(t, "students:page=2:name=ali", QueryKey{Page: 2, Search: "ali"}.String())
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	s := New()
	first := s.BeginFetch()
	s.SetPage(2)
	second := s.BeginFetch()

	assert.True(t, s.CompleteFetch(second, studentPage(2, 3, 4, 5)))
	assert.False(t, s.CompleteFetch(first, studentPage(1, 3, 1, 2)))
	assert.False(t, s.FailFetch(first, errors.New("late")))

	assert.Equal(t, FetchSuccess, s.Fetch.Status)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, int64(4), s.Rows[0].ID)
}

func TestFailFetchDropsRows(t *testing.T) {
	s := loaded(t, 1, 2)
	s.SelectAll(true)

	ticket := s.BeginFetch()
	assert.True(t, s.Loading())
	assert.True(t, s.FailFetch(ticket, errors.New("boom")))

	assert.Equal(t, FetchError, s.Fetch.Status)
	assert.Equal(t, "boom", s.Fetch.Err)
	assert.Empty(t, s.Rows)
	assert.Empty(t, s.Selection)
	assert.True(t, s.Snapshot().Failed)
}

func TestSelectAllIsPageScoped(t *testing.T) {
	s := loaded(t, 3, 7, 9)

	s.SelectAll(true)
	assert.Equal(t, []int64{3, 7, 9}, s.Selection)
	assert.True(t, s.AllPageRowsSelected())
	assert.Equal(t, 3, s.SelectionCount())

	s.SelectAll(false)
	assert.Empty(t, s.Selection)
	assert.False(t, s.AllPageRowsSelected())
	assert.False(t, s.ExportVisible())
}

func TestToggleRowRoundTrip(t *testing.T) {
	s := loaded(t, 3, 7, 9)
	require.NoError(t, s.ToggleRow(3, true))
	before := s.ExportSelection()

	require.NoError(t, s.ToggleRow(7, true))
	require.NoError(t, s.ToggleRow(7, true))
	assert.Equal(t, []int64{3, 7}, s.Selection)
	require.NoError(t, s.ToggleRow(7, false))

	assert.Equal(t, before, s.Selection)
	assert.ErrorIs(t, s.ToggleRow(42, true), appErrors.ErrUnknownRow)
}

func TestSelectionFollowsLoadedPage(t *testing.T) {
	s := loaded(t, 3, 7, 9)
	s.SelectAll(true)

	// Same key refetch keeps surviving rows.
	ticket := s.BeginFetch()
	require.True(t, s.CompleteFetch(ticket, studentPage(1, 3, 3, 9, 11)))
	assert.Equal(t, []int64{3, 9}, s.Selection)

	// Another page has none of them.
	s.SetPage(2)
	ticket = s.BeginFetch()
	require.True(t, s.CompleteFetch(ticket, studentPage(2, 3, 20, 21)))
	assert.Empty(t, s.Selection)
}

func TestDeleteDialogLifecycle(t *testing.T) {
	s := loaded(t, 42, 43)

	_, err := s.BeginDelete(submitAt)
	assert.ErrorIs(t, err, appErrors.ErrDialogClosed)

	require.NoError(t, s.OpenDelete(42))
	assert.True(t, s.Snapshot().Dialog.Open)
	assert.True(t, s.CancelDelete())
	assert.Equal(t, OutcomeCancelled, s.Dialog.Outcome)
	assert.False(t, s.Snapshot().Dialog.Open)

	require.NoError(t, s.OpenDelete(42))
	id, err := s.BeginDelete(submitAt)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.True(t, s.Snapshot().Dialog.ConfirmLocked)

	_, err = s.BeginDelete(submitAt)
	assert.ErrorIs(t, err, appErrors.ErrDeleteInFlight)
	assert.False(t, s.CancelDelete())
	assert.ErrorIs(t, s.OpenDelete(43), appErrors.ErrDeleteInFlight)

	s.SettleDelete(nil, "Student deleted successfully")
	assert.Equal(t, DialogClosed, s.Dialog.Status)
	assert.Equal(t, OutcomeConfirmed, s.Dialog.Outcome)

	notices := s.DrainNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeSuccess, notices[0].Kind)
	assert.Equal(t, "students.studentDeleted", notices[0].TitleID)
	assert.Equal(t, "Student deleted successfully", notices[0].Description)
	assert.Empty(t, s.DrainNotices())
}

func TestDeleteFailureReopensDialog(t *testing.T) {
	s := loaded(t, 42)
	require.NoError(t, s.ToggleRow(42, true))
	require.NoError(t, s.OpenDelete(42))
	_, err := s.BeginDelete(submitAt)
	require.NoError(t, err)

	s.SettleDelete(appErrors.Clone(appErrors.ErrUpstream, "api down"), "")

	assert.Equal(t, DialogOpen, s.Dialog.Status)
	assert.Equal(t, OutcomeFailed, s.Dialog.Outcome)
	assert.Equal(t, []int64{42}, s.Selection)
	require.Len(t, s.Notices, 1)
	assert.Equal(t, NoticeError, s.Notices[0].Kind)
	assert.Equal(t, "api down", s.Notices[0].Description)

	_, err = s.BeginDelete(submitAt)
	assert.NoError(t, err)
}

func TestOpenDialogClosesWhenRowLeavesPage(t *testing.T) {
	s := loaded(t, 42)
	require.NoError(t, s.OpenDelete(42))

	ticket := s.BeginFetch()
	require.True(t, s.CompleteFetch(ticket, studentPage(1, 1, 50)))

	assert.Equal(t, DialogClosed, s.Dialog.Status)
	assert.ErrorIs(t, s.OpenDelete(42), appErrors.ErrUnknownRow)
}

func TestNoticesAreBounded(t *testing.T) {
	s := New()
	for i := 0; i < maxNotices+3; i++ {
		s.PushNotice(Notice{Kind: NoticeError, TitleID: "students.exportFailed"})
	}
	assert.Len(t, s.Notices, maxNotices)
}

func TestStateSurvivesJSON(t *testing.T) {
	s := loaded(t, 3, 7)
	require.NoError(t, s.ToggleRow(7, true))
	s.SetSearch("sa")
	require.NoError(t, s.OpenDelete(3))

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded State
	require.NoError(t, json.Unmarshal(raw, &decoded))
	decoded.Normalize()

	assert.Equal(t, s.Snapshot(), decoded.Snapshot())
}

func TestSnapshotExportControl(t *testing.T) {
	s := loaded(t, 3, 7, 9)
	assert.False(t, s.Snapshot().ExportVisible)

	require.NoError(t, s.ToggleRow(3, true))
	require.NoError(t, s.ToggleRow(7, true))
	v := s.Snapshot()

	assert.True(t, v.ExportVisible)
	assert.Equal(t, 2, v.SelectionCount)
	assert.Equal(t, []int64{3, 7}, v.SelectedIDs)
	assert.True(t, v.Rows[0].Selected)
	assert.False(t, v.Rows[2].Selected)
	assert.Len(t, s.SelectedRows(), 2)
}

func TestSubmittingDialogOutlivesRefetch(t *testing.T) {
	s := loaded(t, 42, 43)
	require.NoError(t, s.OpenDelete(42))
	_, err := s.BeginDelete(submitAt)
	require.NoError(t, err)

	ticket := s.BeginFetch()
	require.True(t, s.CompleteFetch(ticket, studentPage(1, 1, 43)))

	v := s.Snapshot()
	assert.True(t, v.Dialog.Open)
	assert.True(t, v.Dialog.ConfirmLocked)
	require.NotNil(t, v.Dialog.Student)
	assert.Equal(t, int64(42), v.Dialog.Student.ID)
}

func TestReleaseStaleDelete(t *testing.T) {
	s := loaded(t, 42, 43)
	require.NoError(t, s.OpenDelete(42))
	_, err := s.BeginDelete(submitAt)
	require.NoError(t, err)

	assert.False(t, s.ReleaseStaleDelete(submitAt.Add(10*time.Second), 30*time.Second))
	assert.Equal(t, DialogSubmitting, s.Dialog.Status)

	assert.True(t, s.ReleaseStaleDelete(submitAt.Add(31*time.Second), 30*time.Second))
	assert.Equal(t, DialogOpen, s.Dialog.Status)
	assert.Equal(t, OutcomeFailed, s.Dialog.Outcome)
	require.Len(t, s.Notices, 1)
	assert.Equal(t, "students.deleteFailed", s.Notices[0].TitleID)
	assert.Equal(t, appErrors.ErrDeleteUnsettled.Message, s.Notices[0].Description)

	assert.True(t, s.CancelDelete())
	assert.NoError(t, s.OpenDelete(43))
}

func TestReleaseStaleDeleteClosesWhenRowGone(t *testing.T) {
	s := loaded(t, 42, 43)
	require.NoError(t, s.OpenDelete(42))
	_, err := s.BeginDelete(submitAt)
	require.NoError(t, err)
	ticket := s.BeginFetch()
	require.True(t, s.CompleteFetch(ticket, studentPage(1, 1, 43)))

	assert.True(t, s.ReleaseStaleDelete(submitAt.Add(time.Minute), 30*time.Second))
	assert.Equal(t, DialogClosed, s.Dialog.Status)
	assert.False(t, s.Snapshot().Dialog.Open)
	assert.NoError(t, s.OpenDelete(43))
}
