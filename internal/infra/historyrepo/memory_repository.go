package historyrepo

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/history"
)

// MemoryRepository keeps assessments and alerts in process for tests/dev.
type MemoryRepository struct {
	mu          sync.RWMutex
	assessments map[string]evaluation.Bundle
	bySite      map[string][]string
	alerts      map[string]history.Alert
	maxPerSite  int
}

// NewMemoryRepository keeps at most maxPerSite assessments per site; zero means 1000.
func NewMemoryRepository(maxPerSite int) *MemoryRepository {
	if maxPerSite <= 0 {
		maxPerSite = 1000
	}
	return &MemoryRepository{
		assessments: make(map[string]evaluation.Bundle),
		bySite:      make(map[string][]string),
		alerts:      make(map[string]history.Alert),
		maxPerSite:  maxPerSite,
	}
}

func (r *MemoryRepository) SaveAssessment(_ context.Context, bundle evaluation.Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assessments[bundle.ID]; !exists {
		ids := append(r.bySite[bundle.Site.ID], bundle.ID)
		if len(ids) > r.maxPerSite {
			evicted := ids[0]
			ids = ids[1:]
			delete(r.assessments, evicted)
		}
		r.bySite[bundle.Site.ID] = ids
	}
	r.assessments[bundle.ID] = bundle
	return nil
}

func (r *MemoryRepository) GetAssessment(_ context.Context, id string) (evaluation.Bundle, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bundle, ok := r.assessments[id]
	return bundle, ok, nil
}

// ListAssessments returns newest first.
func (r *MemoryRepository) ListAssessments(_ context.Context, siteID string, limit int) ([]evaluation.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.bySite[siteID]
	out := make([]evaluation.Bundle, 0, min(limit, len(ids)))
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.assessments[ids[i]])
	}
	return out, nil
}

func (r *MemoryRepository) SaveAlert(_ context.Context, alert history.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[alert.ID] = alert
	return nil
}

func (r *MemoryRepository) GetAlert(_ context.Context, id string) (history.Alert, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alert, ok := r.alerts[id]
	return alert, ok, nil
}

func (r *MemoryRepository) TransitionAlert(_ context.Context, alert history.Alert, from ...history.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.alerts[alert.ID]
	if !ok || !slices.Contains(from, current.Status) {
		return false, nil
	}
	r.alerts[alert.ID] = alert
	return true, nil
}

// ListAlerts returns alerts newest first.
func (r *MemoryRepository) ListAlerts(context.Context) ([]history.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]history.Alert, 0, len(r.alerts))
	for _, alert := range r.alerts {
		out = append(out, alert)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, alert := range r.alerts {
		if alert.Status == history.StatusResolved && alert.CreatedAt.Before(cutoff) {
			delete(r.alerts, id)
			removed++
		}
	}
	return removed, nil
}

var _ history.Repository = (*MemoryRepository)(nil)
