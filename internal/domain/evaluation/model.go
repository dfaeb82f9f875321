package evaluation

import (
	"time"

	"github.com/yanqian/rockwatch/internal/domain/localization"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/routing"
	"github.com/yanqian/rockwatch/internal/domain/site"
)

// Bundle is everything one evaluation cycle produced for a site.
type Bundle struct {
	ID          string                        `json:"id"`
	Site        site.Site                     `json:"site"`
	Readings    risk.Readings                 `json:"readings"`
	Assessment  risk.RiskAssessment           `json:"assessment"`
	Explanation risk.Explanation              `json:"explanation"`
	Alerts      []localization.LocalizedAlert `json:"localizedAlerts"`
	Groups      []routing.RecipientGroup      `json:"recipientGroups"`
	Channels    []string                      `json:"channels"`
	CreatedAt   time.Time                     `json:"createdAt"`
}

// Delivery is the hand-off to delivery transports.
type Delivery struct {
	BundleID  string                        `json:"bundleId"`
	SiteID    string                        `json:"siteId"`
	SiteName  string                        `json:"siteName"`
	Level     risk.RiskLevel                `json:"level"`
	Score     float64                       `json:"score"`
	Groups    []routing.RecipientGroup      `json:"groups"`
	Channels  []string                      `json:"channels"`
	Alerts    []localization.LocalizedAlert `json:"alerts"`
	CreatedAt time.Time                     `json:"createdAt"`
}

// Delivery projects the bundle onto what transports need.
func (b Bundle) Delivery() Delivery {
	return Delivery{
		BundleID:  b.ID,
		SiteID:    b.Site.ID,
		SiteName:  b.Site.Name,
		Level:     b.Assessment.Level,
		Score:     b.Assessment.Score,
		Groups:    b.Groups,
		Channels:  b.Channels,
		Alerts:    b.Alerts,
		CreatedAt: b.CreatedAt,
	}
}

// Request is one site's input to a batch evaluation.
type Request struct {
	Site     site.Site
	Readings risk.Readings
}

// Result pairs a batch request with its outcome.
type Result struct {
	Site   site.Site
	Bundle Bundle
	Err    error
}
