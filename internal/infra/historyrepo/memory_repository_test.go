package historyrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/history"
	"github.com/yanqian/rockwatch/internal/domain/site"
)

func TestMemoryRepositoryEvictsOldestPerSite(t *testing.T) {
	repo := NewMemoryRepository(2)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.SaveAssessment(ctx, evaluation.Bundle{ID: id, Site: site.Site{ID: "s1"}}))
	}
	require.NoError(t, repo.SaveAssessment(ctx, evaluation.Bundle{ID: "x", Site: site.Site{ID: "s2"}}))

	got, err := repo.ListAssessments(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "c", got[0].ID)
	require.Equal(t, "b", got[1].ID)

	_, ok, err := repo.GetAssessment(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)

	got, err = repo.ListAssessments(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestMemoryRepositoryAlerts(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveAlert(ctx, history.Alert{ID: "old", Status: history.StatusResolved, CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.SaveAlert(ctx, history.Alert{ID: "new", Status: history.StatusActive, CreatedAt: now}))

	alerts, err := repo.ListAlerts(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", alerts[0].ID)

	removed, err := repo.DeleteResolvedBefore(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	_, ok, err := repo.GetAlert(ctx, "old")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryRepositoryTransitionChecksStatus(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	require.NoError(t, repo.SaveAlert(ctx, history.Alert{ID: "a", Status: history.StatusActive}))

	ok, err := repo.TransitionAlert(ctx, history.Alert{ID: "a", Status: history.StatusAcknowledged, AcknowledgedBy: "x"}, history.StatusActive)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.TransitionAlert(ctx, history.Alert{ID: "a", Status: history.StatusAcknowledged, AcknowledgedBy: "y"}, history.StatusActive)
	require.NoError(t, err)
	require.False(t, ok)
	alert, _, err := repo.GetAlert(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "x", alert.AcknowledgedBy)

	ok, err = repo.TransitionAlert(ctx, history.Alert{ID: "missing", Status: history.StatusResolved}, history.StatusActive)
	require.NoError(t, err)
	require.False(t, ok)
	_, found, err := repo.GetAlert(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)
}
