package site

import (
	"context"

	apperrors "github.com/yanqian/rockwatch/pkg/errors"
)

// CodeNotFound is returned for unknown site IDs.
const CodeNotFound = "site_not_found"

// Site is a monitored location and the languages its alerts go out in.
type Site struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Region    string   `json:"region,omitempty"`
	Languages []string `json:"languages"`
	Latitude  float64  `json:"latitude,omitempty"`
	Longitude float64  `json:"longitude,omitempty"`
}

// Registry resolves sites and their alert languages.
type Registry interface {
	List(ctx context.Context) ([]Site, error)
	Get(ctx context.Context, id string) (Site, error)
}

// NotFound builds the error for an unknown site.
func NotFound(id string) error {
	return apperrors.Wrap(CodeNotFound, "site "+id+" not found", nil)
}
