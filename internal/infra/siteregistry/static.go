package siteregistry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yanqian/rockwatch/internal/domain/site"
)

// regionLanguages maps a state to the alert languages of its sites, local
// language first.
var regionLanguages = map[string][]string{
	"JHARKHAND":      {"hi", "en"},
	"ODISHA":         {"or", "hi", "en"},
	"WEST_BENGAL":    {"bn", "hi", "en"},
	"GUJARAT":        {"gu", "hi", "en"},
	"MAHARASHTRA":    {"mr", "hi", "en"},
	"KARNATAKA":      {"kn", "hi", "en"},
	"TELANGANA":      {"te", "hi", "en"},
	"ANDHRA_PRADESH": {"te", "hi", "en"},
}

var defaultLanguages = []string{"hi", "en"}

// LanguagesFor returns the alert languages for region. Unknown regions get
// Hindi and English.
func LanguagesFor(region string) []string {
	key := strings.ToUpper(strings.TrimSpace(region))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if langs, ok := regionLanguages[key]; ok {
		return append([]string(nil), langs...)
	}
	return append([]string(nil), defaultLanguages...)
}

// Static is an in-memory registry built from configuration.
type Static struct {
	sites map[string]site.Site
	order []string
}

// NewStatic builds the registry. Sites without languages inherit their
// region's policy.
func NewStatic(sites []site.Site) (*Static, error) {
	r := &Static{sites: make(map[string]site.Site, len(sites))}
	for _, s := range sites {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, fmt.Errorf("site registry: site without id")
		}
		if _, dup := r.sites[s.ID]; dup {
			return nil, fmt.Errorf("site registry: duplicate site %q", s.ID)
		}
		if len(s.Languages) == 0 {
			s.Languages = LanguagesFor(s.Region)
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		r.sites[s.ID] = s
		r.order = append(r.order, s.ID)
	}
	sort.Strings(r.order)
	return r, nil
}

// List returns every site ordered by ID.
func (r *Static) List(_ context.Context) ([]site.Site, error) {
	out := make([]site.Site, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sites[id])
	}
	return out, nil
}

// Get resolves one site.
func (r *Static) Get(_ context.Context, id string) (site.Site, error) {
	s, ok := r.sites[id]
	if !ok {
		return site.Site{}, site.NotFound(id)
	}
	return s, nil
}

var _ site.Registry = (*Static)(nil)
