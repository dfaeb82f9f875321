package history

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/site"
	apperrors "github.com/yanqian/rockwatch/pkg/errors"
)

type fakeRepo struct {
	mu          sync.Mutex
	assessments []evaluation.Bundle
	alerts      map[string]Alert
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{alerts: map[string]Alert{}}
}

func (f *fakeRepo) SaveAssessment(_ context.Context, b evaluation.Bundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assessments = append(f.assessments, b)
	return nil
}

func (f *fakeRepo) GetAssessment(_ context.Context, id string) (evaluation.Bundle, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.assessments {
		if b.ID == id {
			return b, true, nil
		}
	}
	return evaluation.Bundle{}, false, nil
}

func (f *fakeRepo) ListAssessments(_ context.Context, siteID string, limit int) ([]evaluation.Bundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []evaluation.Bundle
	for i := len(f.assessments) - 1; i >= 0 && len(out) < limit; i-- {
		if f.assessments[i].Site.ID == siteID {
			out = append(out, f.assessments[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) SaveAlert(_ context.Context, a Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts[a.ID] = a
	return nil
}

func (f *fakeRepo) GetAlert(_ context.Context, id string) (Alert, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	return a, ok, nil
}

func (f *fakeRepo) TransitionAlert(_ context.Context, a Alert, from ...Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.alerts[a.ID]
	if !ok || !slices.Contains(from, current.Status) {
		return false, nil
	}
	f.alerts[a.ID] = a
	return true, nil
}

func (f *fakeRepo) ListAlerts(context.Context) ([]Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Alert, 0, len(f.alerts))
	for _, a := range f.alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := 0
	for id, a := range f.alerts {
		if a.Status == StatusResolved && a.CreatedAt.Before(cutoff) {
			delete(f.alerts, id)
			removed++
		}
	}
	return removed, nil
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository, now time.Time) *service {
	svc := NewService(Config{}, repo, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
	svc.now = func() time.Time { return now }
	return svc
}

func bundle(id string, level risk.RiskLevel, at time.Time) evaluation.Bundle {
	return evaluation.Bundle{
		ID:          id,
		Site:        site.Site{ID: "jh-01", Name: "Jharia Pit 4"},
		Assessment:  risk.RiskAssessment{Level: level, Score: 0.8, Timestamp: at},
		Explanation: risk.Explanation{PrimaryStatement: "statement " + id},
		CreatedAt:   at,
	}
}

func TestRecordOpensAlertsFromMedium(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, base)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, bundle("a", risk.LevelLow, base)))
	require.NoError(t, svc.Record(ctx, bundle("b", risk.LevelMedium, base)))
	require.NoError(t, svc.Record(ctx, bundle("c", risk.LevelHigh, base)))

	require.Len(t, repo.assessments, 3)
	require.Len(t, repo.alerts, 2)
	alert, err := svc.Alert(ctx, "c")
	require.NoError(t, err)
	require.Equal(t, StatusActive, alert.Status)
	require.Equal(t, "statement c", alert.Statement)

	_, err = svc.Alert(ctx, "a")
	require.True(t, apperrors.IsCode(err, CodeAlertNotFound))
}

func TestAlertLifecycle(t *testing.T) {
	svc := newTestService(newFakeRepo(), base)
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, bundle("h", risk.LevelHigh, base)))

	acked, err := svc.Acknowledge(ctx, "h", "shift-lead")
	require.NoError(t, err)
	require.Equal(t, StatusAcknowledged, acked.Status)
	require.Equal(t, "shift-lead", acked.AcknowledgedBy)
	require.Equal(t, base, *acked.AcknowledgedAt)

	_, err = svc.Acknowledge(ctx, "h", "someone")
	require.True(t, apperrors.IsCode(err, CodeInvalidTransition))

	resolved, err := svc.Resolve(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = svc.Resolve(ctx, "h")
	require.True(t, apperrors.IsCode(err, CodeInvalidTransition))
}

func TestAcknowledgeRaceHasOneWinner(t *testing.T) {
	svc := newTestService(newFakeRepo(), base)
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, bundle("h", risk.LevelHigh, base)))

	const operators = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  []error
	)
	for i := 0; i < operators; i++ {
		by := "operator-" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Acknowledge(ctx, "h", by)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				losers = append(losers, err)
				return
			}
			winners = append(winners, by)
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	require.Len(t, losers, operators-1)
	for _, err := range losers {
		require.True(t, apperrors.IsCode(err, CodeInvalidTransition))
	}
	alert, err := svc.Alert(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, winners[0], alert.AcknowledgedBy)
}

// staleRepo serves a snapshot taken before another operator changed the alert.
type staleRepo struct {
	*fakeRepo
	snapshot Alert
	served   bool
}

func (r *staleRepo) GetAlert(ctx context.Context, id string) (Alert, bool, error) {
	if !r.served && id == r.snapshot.ID {
		r.served = true
		return r.snapshot, true, nil
	}
	return r.fakeRepo.GetAlert(ctx, id)
}

func TestTransitionRejectsStaleRead(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	ackedAt := base.Add(-time.Minute)
	require.NoError(t, repo.SaveAlert(ctx, Alert{ID: "h", Status: StatusAcknowledged, AcknowledgedBy: "first", AcknowledgedAt: &ackedAt}))
	stale := &staleRepo{fakeRepo: repo, snapshot: Alert{ID: "h", Status: StatusActive}}
	svc := newTestService(stale, base)

	_, err := svc.Acknowledge(ctx, "h", "second")
	require.True(t, apperrors.IsCode(err, CodeInvalidTransition))
	stored, _, err := repo.GetAlert(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, "first", stored.AcknowledgedBy)

	resolvedAt := base
	require.NoError(t, repo.SaveAlert(ctx, Alert{ID: "r", Status: StatusResolved, ResolvedAt: &resolvedAt}))
	stale = &staleRepo{fakeRepo: repo, snapshot: Alert{ID: "r", Status: StatusAcknowledged}}
	svc = newTestService(stale, base.Add(time.Hour))
	_, err = svc.Resolve(ctx, "r")
	require.True(t, apperrors.IsCode(err, CodeInvalidTransition))
	stored, _, err = repo.GetAlert(ctx, "r")
	require.NoError(t, err)
	require.Equal(t, base, *stored.ResolvedAt)
}

func TestStatsCountsEveryLevelAndStatus(t *testing.T) {
	svc := newTestService(newFakeRepo(), base)
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, bundle("m", risk.LevelMedium, base)))
	require.NoError(t, svc.Record(ctx, bundle("h1", risk.LevelHigh, base)))
	require.NoError(t, svc.Record(ctx, bundle("h2", risk.LevelHigh, base)))
	_, err := svc.Resolve(ctx, "h2")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 0, stats.ByLevel[risk.LevelLow])
	require.Equal(t, 1, stats.ByLevel[risk.LevelMedium])
	require.Equal(t, 2, stats.ByLevel[risk.LevelHigh])
	require.Equal(t, 2, stats.ByStatus[StatusActive])
	require.Equal(t, 1, stats.ByStatus[StatusResolved])
	require.Equal(t, 0, stats.ByStatus[StatusAcknowledged])
}

func TestPurgeRemovesOnlyOldResolvedAlerts(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, base)
	ctx := context.Background()
	old := base.Add(-48 * time.Hour)
	require.NoError(t, svc.Record(ctx, bundle("old-resolved", risk.LevelHigh, old)))
	require.NoError(t, svc.Record(ctx, bundle("old-active", risk.LevelHigh, old)))
	require.NoError(t, svc.Record(ctx, bundle("new-resolved", risk.LevelHigh, base)))
	_, err := svc.Resolve(ctx, "old-resolved")
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, "new-resolved")
	require.NoError(t, err)

	removed, err := svc.Purge(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.NotContains(t, repo.alerts, "old-resolved")
	require.Contains(t, repo.alerts, "old-active")
	require.Contains(t, repo.alerts, "new-resolved")
}

func TestHistoryClampsLimit(t *testing.T) {
	svc := newTestService(newFakeRepo(), base)
	ctx := context.Background()
	for i, id := range []string{"1", "2", "3"} {
		require.NoError(t, svc.Record(ctx, bundle(id, risk.LevelLow, base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := svc.History(ctx, "jh-01", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "3", got[0].ID)

	_, err = svc.Assessment(ctx, "missing")
	require.True(t, apperrors.IsCode(err, CodeAssessmentNotFound))
}

func TestAlertsFiltersByStatus(t *testing.T) {
	svc := newTestService(newFakeRepo(), base)
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, bundle("m", risk.LevelMedium, base)))
	require.NoError(t, svc.Record(ctx, bundle("h", risk.LevelHigh, base)))
	_, err := svc.Acknowledge(ctx, "h", "ops")
	require.NoError(t, err)

	all, err := svc.Alerts(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	active, err := svc.Alerts(ctx, StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "m", active[0].ID)
}
