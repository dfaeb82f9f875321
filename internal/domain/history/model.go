package history

import (
	"context"
	"time"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/risk"
)

// Status is where an alert is in its lifecycle.
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Error codes.
const (
	CodeAlertNotFound      = "alert_not_found"
	CodeAssessmentNotFound = "assessment_not_found"
	CodeInvalidTransition  = "invalid_transition"
)

// Alert tracks the response to one elevated assessment. It shares its ID with
// the bundle that opened it.
type Alert struct {
	ID             string         `json:"id"`
	SiteID         string         `json:"siteId"`
	SiteName       string         `json:"siteName,omitempty"`
	Level          risk.RiskLevel `json:"level"`
	Score          float64        `json:"score"`
	Statement      string         `json:"statement"`
	Status         Status         `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	AcknowledgedBy string         `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time     `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time     `json:"resolvedAt,omitempty"`
}

// Stats counts alerts by level and status.
type Stats struct {
	Total    int                    `json:"total"`
	ByLevel  map[risk.RiskLevel]int `json:"byLevel"`
	ByStatus map[Status]int         `json:"byStatus"`
}

// Repository persists assessments and alerts.
type Repository interface {
	SaveAssessment(ctx context.Context, bundle evaluation.Bundle) error
	GetAssessment(ctx context.Context, id string) (evaluation.Bundle, bool, error)
	// ListAssessments returns a site's assessments, newest first.
	ListAssessments(ctx context.Context, siteID string, limit int) ([]evaluation.Bundle, error)
	SaveAlert(ctx context.Context, alert Alert) error
	GetAlert(ctx context.Context, id string) (Alert, bool, error)
	// TransitionAlert stores alert only while the stored status is one of from.
	// It reports false, without writing, when the alert is missing or has moved on.
	TransitionAlert(ctx context.Context, alert Alert, from ...Status) (bool, error)
	ListAlerts(ctx context.Context) ([]Alert, error)
	// DeleteResolvedBefore removes resolved alerts created before cutoff.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
