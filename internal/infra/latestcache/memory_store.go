package latestcache

import (
	"context"
	"sync"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
)

// MemoryStore keeps the latest bundle per site in process.
type MemoryStore struct {
	mu      sync.RWMutex
	bundles map[string]evaluation.Bundle
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bundles: make(map[string]evaluation.Bundle)}
}

// Put replaces the site's entry unless a newer bundle is already stored.
func (s *MemoryStore) Put(_ context.Context, bundle evaluation.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.bundles[bundle.Site.ID]; ok && current.CreatedAt.After(bundle.CreatedAt) {
		return nil
	}
	s.bundles[bundle.Site.ID] = bundle
	return nil
}

func (s *MemoryStore) Get(_ context.Context, siteID string) (evaluation.Bundle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bundle, ok := s.bundles[siteID]
	return bundle, ok, nil
}

var _ evaluation.LatestStore = (*MemoryStore)(nil)
