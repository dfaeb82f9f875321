package evaluation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/site"
	apperrors "github.com/yanqian/rockwatch/pkg/errors"
	"github.com/yanqian/rockwatch/pkg/metrics"
)

// CodeNoAssessment is returned when a site has not been evaluated yet.
const CodeNoAssessment = "assessment_not_found"

// Service is the entry point for evaluating sites.
type Service interface {
	Evaluate(ctx context.Context, s site.Site, readings risk.Readings) (Bundle, error)
	EvaluateBatch(ctx context.Context, requests []Request) []Result
	Latest(ctx context.Context, siteID string) (Bundle, error)
}

// AuditStore keeps evaluated bundles for history.
type AuditStore interface {
	Record(ctx context.Context, bundle Bundle) error
}

// LatestStore caches the most recent bundle per site.
type LatestStore interface {
	Put(ctx context.Context, bundle Bundle) error
	Get(ctx context.Context, siteID string) (Bundle, bool, error)
}

// Archiver copies bundles to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, bundle Bundle) error
}

// Dispatcher hands deliveries to the transports. It must not block on delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, delivery Delivery) error
}

// Config tunes the service.
type Config struct {
	Concurrency int
	// ArchiveMinLevel is the lowest level whose bundles are archived.
	ArchiveMinLevel risk.RiskLevel
}

type service struct {
	cfg        Config
	pipeline   *Pipeline
	audit      AuditStore
	latest     LatestStore
	archiver   Archiver
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewService builds the evaluation service.
func NewService(cfg Config, pipeline *Pipeline, audit AuditStore, latest LatestStore, archiver Archiver, dispatcher Dispatcher, logger *slog.Logger) Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ArchiveMinLevel == "" {
		cfg.ArchiveMinLevel = risk.LevelMedium
	}
	return &service{
		cfg:        cfg,
		pipeline:   pipeline,
		audit:      audit,
		latest:     latest,
		archiver:   archiver,
		dispatcher: dispatcher,
		logger:     logger.With("component", "evaluation.service"),
	}
}

// Evaluate runs the pipeline and then hands the bundle to the collaborators.
// Collaborator failures are logged and never returned.
func (s *service) Evaluate(ctx context.Context, st site.Site, readings risk.Readings) (Bundle, error) {
	start := time.Now()
	bundle, err := s.pipeline.Run(ctx, st, readings)
	if err != nil {
		if risk.IsInsufficientData(err) {
			metrics.ObserveEvaluation("skipped", "", 0)
			s.logger.Warn("evaluation skipped", "site_id", st.ID, "outcome", "skipped", "code", risk.CodeInsufficientData, "sensors", len(readings))
		} else {
			s.logger.Error("evaluation failed", "site_id", st.ID, "outcome", "failed", "error", err)
		}
		return Bundle{}, err
	}
	assessment := bundle.Assessment
	metrics.ObserveEvaluation(string(assessment.Level), assessment.ModelUsed, time.Since(start))
	s.logger.Info("evaluation complete",
		"site_id", st.ID,
		"bundle_id", bundle.ID,
		"outcome", strings.ToLower(string(assessment.Level)),
		"score", assessment.Score,
		"confidence", assessment.Confidence,
		"model", assessment.ModelUsed,
		"violations", len(bundle.Explanation.Violations),
	)
	s.handOff(ctx, bundle)
	return bundle, nil
}

func (s *service) handOff(ctx context.Context, bundle Bundle) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, bundle); err != nil {
			s.logger.Error("audit record failed", "bundle_id", bundle.ID, "error", err)
		}
	}
	if s.latest != nil {
		if err := s.latest.Put(ctx, bundle); err != nil {
			s.logger.Warn("latest cache update failed", "site_id", bundle.Site.ID, "error", err)
		}
	}
	if s.archiver != nil && bundle.Assessment.Level.Rank() >= s.cfg.ArchiveMinLevel.Rank() {
		if err := s.archiver.Archive(ctx, bundle); err != nil {
			s.logger.Warn("archive failed", "bundle_id", bundle.ID, "error", err)
		}
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, bundle.Delivery()); err != nil {
			s.logger.Error("dispatch failed", "bundle_id", bundle.ID, "error", err)
		}
	}
}

// EvaluateBatch evaluates sites concurrently. Results keep request order; one
// site failing does not affect the others.
func (s *service) EvaluateBatch(ctx context.Context, requests []Request) []Result {
	results := make([]Result, len(requests))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, req := range requests {
		g.Go(func() error {
			bundle, err := s.Evaluate(ctx, req.Site, req.Readings)
			results[i] = Result{Site: req.Site, Bundle: bundle, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Latest returns the most recent bundle for siteID.
func (s *service) Latest(ctx context.Context, siteID string) (Bundle, error) {
	if s.latest == nil {
		return Bundle{}, apperrors.Wrap(CodeNoAssessment, "no assessment for site "+siteID, nil)
	}
	bundle, ok, err := s.latest.Get(ctx, siteID)
	if err != nil {
		return Bundle{}, apperrors.Wrap("latest_unavailable", "failed to load latest assessment", err)
	}
	if !ok {
		return Bundle{}, apperrors.Wrap(CodeNoAssessment, "no assessment for site "+siteID, nil)
	}
	return bundle, nil
}
