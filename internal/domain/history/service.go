package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	apperrors "github.com/yanqian/rockwatch/pkg/errors"
	"github.com/yanqian/rockwatch/pkg/util"
)

const (
	defaultRetention    = 24 * time.Hour
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Config controls alert retention.
type Config struct {
	Retention time.Duration
	// OpenLevel is the lowest level that opens an alert.
	OpenLevel risk.RiskLevel
}

// Service records assessments and drives the alert lifecycle.
type Service interface {
	Record(ctx context.Context, bundle evaluation.Bundle) error
	Assessment(ctx context.Context, id string) (evaluation.Bundle, error)
	History(ctx context.Context, siteID string, limit int) ([]evaluation.Bundle, error)
	Alert(ctx context.Context, id string) (Alert, error)
	Alerts(ctx context.Context, status Status) ([]Alert, error)
	Acknowledge(ctx context.Context, id, by string) (Alert, error)
	Resolve(ctx context.Context, id string) (Alert, error)
	Stats(ctx context.Context) (Stats, error)
	Purge(ctx context.Context) (int, error)
}

type service struct {
	cfg    Config
	repo   Repository
	logger *slog.Logger
	now    util.Clock
}

// NewService constructs the history service.
func NewService(cfg Config, repo Repository, logger *slog.Logger) Service {
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.OpenLevel == "" {
		cfg.OpenLevel = risk.LevelMedium
	}
	return &service{
		cfg:    cfg,
		repo:   repo,
		logger: logger.With("component", "history.service"),
		now:    util.NowUTC,
	}
}

// Record stores the bundle and opens an alert when its level warrants one.
func (s *service) Record(ctx context.Context, bundle evaluation.Bundle) error {
	if err := s.repo.SaveAssessment(ctx, bundle); err != nil {
		return apperrors.Wrap("history_store", "failed to save assessment", err)
	}
	level := bundle.Assessment.Level
	if level.Rank() < s.cfg.OpenLevel.Rank() {
		return nil
	}
	alert := Alert{
		ID:        bundle.ID,
		SiteID:    bundle.Site.ID,
		SiteName:  bundle.Site.Name,
		Level:     level,
		Score:     bundle.Assessment.Score,
		Statement: bundle.Explanation.PrimaryStatement,
		Status:    StatusActive,
		CreatedAt: bundle.CreatedAt,
	}
	if err := s.repo.SaveAlert(ctx, alert); err != nil {
		return apperrors.Wrap("history_store", "failed to open alert", err)
	}
	s.logger.Info("alert opened", "alert_id", alert.ID, "site_id", alert.SiteID, "level", level)
	return nil
}

func (s *service) Assessment(ctx context.Context, id string) (evaluation.Bundle, error) {
	bundle, ok, err := s.repo.GetAssessment(ctx, id)
	if err != nil {
		return evaluation.Bundle{}, apperrors.Wrap("history_store", "failed to load assessment", err)
	}
	if !ok {
		return evaluation.Bundle{}, apperrors.Wrap(CodeAssessmentNotFound, "assessment "+id+" not found", nil)
	}
	return bundle, nil
}

func (s *service) History(ctx context.Context, siteID string, limit int) ([]evaluation.Bundle, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	bundles, err := s.repo.ListAssessments(ctx, siteID, limit)
	if err != nil {
		return nil, apperrors.Wrap("history_store", "failed to list assessments", err)
	}
	return bundles, nil
}

func (s *service) Alert(ctx context.Context, id string) (Alert, error) {
	alert, ok, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return Alert{}, apperrors.Wrap("history_store", "failed to load alert", err)
	}
	if !ok {
		return Alert{}, apperrors.Wrap(CodeAlertNotFound, "alert "+id+" not found", nil)
	}
	return alert, nil
}

// Alerts lists alerts newest first. An empty status returns all of them.
func (s *service) Alerts(ctx context.Context, status Status) ([]Alert, error) {
	alerts, err := s.repo.ListAlerts(ctx)
	if err != nil {
		return nil, apperrors.Wrap("history_store", "failed to list alerts", err)
	}
	if status == "" {
		return alerts, nil
	}
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

// Acknowledge moves an active alert to acknowledged.
func (s *service) Acknowledge(ctx context.Context, id, by string) (Alert, error) {
	alert, err := s.Alert(ctx, id)
	if err != nil {
		return Alert{}, err
	}
	if alert.Status != StatusActive {
		return Alert{}, apperrors.Wrap(CodeInvalidTransition, "alert "+id+" is "+string(alert.Status), nil)
	}
	now := s.now()
	alert.Status = StatusAcknowledged
	alert.AcknowledgedBy = by
	alert.AcknowledgedAt = &now
	if err := s.transition(ctx, alert, StatusActive); err != nil {
		return Alert{}, err
	}
	s.logger.Info("alert acknowledged", "alert_id", id, "by", by)
	return alert, nil
}

// Resolve closes an active or acknowledged alert.
func (s *service) Resolve(ctx context.Context, id string) (Alert, error) {
	alert, err := s.Alert(ctx, id)
	if err != nil {
		return Alert{}, err
	}
	if alert.Status == StatusResolved {
		return Alert{}, apperrors.Wrap(CodeInvalidTransition, "alert "+id+" is already resolved", nil)
	}
	now := s.now()
	alert.Status = StatusResolved
	alert.ResolvedAt = &now
	if err := s.transition(ctx, alert, StatusActive, StatusAcknowledged); err != nil {
		return Alert{}, err
	}
	s.logger.Info("alert resolved", "alert_id", id)
	return alert, nil
}

// transition writes alert only if nobody moved it out of from since it was read.
func (s *service) transition(ctx context.Context, alert Alert, from ...Status) error {
	ok, err := s.repo.TransitionAlert(ctx, alert, from...)
	if err != nil {
		return apperrors.Wrap("history_store", "failed to update alert", err)
	}
	if ok {
		return nil
	}
	current, err := s.Alert(ctx, alert.ID)
	if err != nil {
		return err
	}
	return apperrors.Wrap(CodeInvalidTransition, "alert "+alert.ID+" is "+string(current.Status), nil)
}

func (s *service) Stats(ctx context.Context) (Stats, error) {
	alerts, err := s.repo.ListAlerts(ctx)
	if err != nil {
		return Stats{}, apperrors.Wrap("history_store", "failed to list alerts", err)
	}
	stats := Stats{
		Total:    len(alerts),
		ByLevel:  make(map[risk.RiskLevel]int, len(risk.Levels)),
		ByStatus: map[Status]int{StatusActive: 0, StatusAcknowledged: 0, StatusResolved: 0},
	}
	for _, level := range risk.Levels {
		stats.ByLevel[level] = 0
	}
	for _, a := range alerts {
		stats.ByLevel[a.Level]++
		stats.ByStatus[a.Status]++
	}
	return stats, nil
}

// Purge drops resolved alerts older than the retention window.
func (s *service) Purge(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.Retention)
	removed, err := s.repo.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, apperrors.Wrap("history_store", "failed to purge alerts", err)
	}
	if removed > 0 {
		s.logger.Info("purged resolved alerts", "count", removed, "cutoff", cutoff)
	}
	return removed, nil
}

var _ evaluation.AuditStore = (*service)(nil)
