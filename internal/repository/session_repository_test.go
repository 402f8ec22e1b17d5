package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-admin/internal/dashboard"
	"github.com/noah-isme/sma-adp-admin/internal/models"
	appErrors "github.com/noah-isme/sma-adp-admin/pkg/errors"
)

func TestMemorySessionRepositoryRoundTrip(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	_, err := repo.Load(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrSessionNotFound)

	state := dashboard.New()
	state.SetSearch("ali")
	ticket := state.BeginFetch()
	state.CompleteFetch(ticket, &models.StudentPage{Students: []models.Student{{ID: 3}, {ID: 7}}})
	require.NoError(t, state.ToggleRow(3, true))
	require.NoError(t, repo.Save(ctx, "s1", state))

	loaded, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ali", loaded.Search)
	assert.Equal(t, []int64{3}, loaded.Selection)
	assert.Len(t, loaded.Rows, 2)

	loaded.Selection = append(loaded.Selection, 7)
	again, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, again.Selection)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Load(ctx, "s1")
	assert.ErrorIs(t, err, appErrors.ErrSessionNotFound)
}

func TestMemorySessionRepositoryExpiry(t *testing.T) {
	repo := NewMemorySessionRepository(time.Minute)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "a", dashboard.New()))
	require.NoError(t, repo.Save(ctx, "b", dashboard.New()))

	now = now.Add(30 * time.Second)
	require.NoError(t, repo.Save(ctx, "b", dashboard.New()))

	now = now.Add(45 * time.Second)
	_, err := repo.Load(ctx, "a")
	assert.ErrorIs(t, err, appErrors.ErrSessionNotFound)

	_, err = repo.Load(ctx, "b")
	assert.NoError(t, err)

	now = now.Add(time.Minute)
	assert.Equal(t, 1, repo.Sweep())
}
