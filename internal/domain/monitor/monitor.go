package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/site"
)

// Feed supplies the latest readings for a site.
type Feed interface {
	Latest(ctx context.Context, s site.Site) (risk.Readings, error)
}

// Purger drops expired alert records.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// Config controls the polling loop.
type Config struct {
	Interval    time.Duration
	FeedTimeout time.Duration
}

// Summary reports the outcome of one cycle.
type Summary struct {
	Sites     int
	Evaluated int
	Skipped   int
	FeedFails int
	Levels    map[risk.RiskLevel]int
}

// Runner polls the feed for every registered site and evaluates the readings.
type Runner struct {
	cfg       Config
	registry  site.Registry
	feed      Feed
	evaluator evaluation.Service
	purger    Purger
	logger    *slog.Logger
}

// NewRunner constructs the loop. purger may be nil.
func NewRunner(cfg Config, registry site.Registry, feed Feed, evaluator evaluation.Service, purger Purger, logger *slog.Logger) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.FeedTimeout <= 0 {
		cfg.FeedTimeout = 5 * time.Second
	}
	return &Runner{
		cfg:       cfg,
		registry:  registry,
		feed:      feed,
		evaluator: evaluator,
		purger:    purger,
		logger:    logger.With("component", "monitor.runner"),
	}
}

// Run evaluates once immediately and then on every tick until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	r.logger.Info("monitor loop started", "interval", r.cfg.Interval)
	for {
		r.RunOnce(ctx)
		select {
		case <-ctx.Done():
			r.logger.Info("monitor loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce performs one polling cycle. A failing site never stops the others.
func (r *Runner) RunOnce(ctx context.Context) Summary {
	summary := Summary{Levels: make(map[risk.RiskLevel]int, len(risk.Levels))}
	sites, err := r.registry.List(ctx)
	if err != nil {
		r.logger.Error("list sites failed", "error", err)
		return summary
	}
	summary.Sites = len(sites)

	requests := make([]evaluation.Request, 0, len(sites))
	for _, s := range sites {
		readings, err := r.fetch(ctx, s)
		if err != nil {
			summary.FeedFails++
			r.logger.Warn("sensor feed failed", "site_id", s.ID, "error", err)
			continue
		}
		requests = append(requests, evaluation.Request{Site: s, Readings: readings})
	}

	for _, result := range r.evaluator.EvaluateBatch(ctx, requests) {
		if result.Err != nil {
			summary.Skipped++
			continue
		}
		summary.Evaluated++
		summary.Levels[result.Bundle.Assessment.Level]++
	}

	if r.purger != nil {
		if _, err := r.purger.Purge(ctx); err != nil {
			r.logger.Warn("alert purge failed", "error", err)
		}
	}
	r.logger.Debug("monitor cycle complete",
		"sites", summary.Sites,
		"evaluated", summary.Evaluated,
		"skipped", summary.Skipped,
		"feed_failures", summary.FeedFails,
	)
	return summary
}

func (r *Runner) fetch(ctx context.Context, s site.Site) (risk.Readings, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.FeedTimeout)
	defer cancel()
	return r.feed.Latest(ctx, s)
}
