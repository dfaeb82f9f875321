package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/yanqian/rockwatch/pkg/metrics"
	"github.com/yanqian/rockwatch/pkg/util"
)

// ModelAdapter is the contract every scoring model satisfies. Adapters that
// reach over the network enforce their own timeout and report it as an error.
type ModelAdapter interface {
	Name() string
	Score(ctx context.Context, siteID string, readings Readings) (ModelVerdict, error)
}

// ClassifierConfig holds the score cut-offs.
type ClassifierConfig struct {
	HighThreshold   float64
	MediumThreshold float64
}

// DefaultClassifierConfig returns HIGH at 0.7 and MEDIUM at 0.4.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{HighThreshold: 0.7, MediumThreshold: 0.4}
}

// Validate checks the cut-offs are ordered inside (0,1].
func (c ClassifierConfig) Validate() error {
	if !(c.MediumThreshold > 0 && c.MediumThreshold < c.HighThreshold && c.HighThreshold <= 1) {
		return ConfigurationError("risk thresholds must satisfy 0 < medium (%g) < high (%g) <= 1", c.MediumThreshold, c.HighThreshold)
	}
	return nil
}

// Classify maps a score to a level.
func (c ClassifierConfig) Classify(score float64) RiskLevel {
	switch {
	case score >= c.HighThreshold:
		return LevelHigh
	case score >= c.MediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Orchestrator tries model adapters in priority order and classifies the first
// valid score. It only fails when there is nothing to score.
type Orchestrator struct {
	table      *Table
	adapters   []ModelAdapter
	classifier ClassifierConfig
	analyzer   *Analyzer
	estimator  *Estimator
	logger     *slog.Logger
	now        util.Clock
}

// NewOrchestrator builds the chain. The rule-based model is appended when the
// chain does not already end with it.
func NewOrchestrator(table *Table, adapters []ModelAdapter, classifier ClassifierConfig, estimator *Estimator, logger *slog.Logger) (*Orchestrator, error) {
	if err := classifier.Validate(); err != nil {
		return nil, err
	}
	chain := make([]ModelAdapter, 0, len(adapters)+1)
	for _, adapter := range adapters {
		if adapter != nil {
			chain = append(chain, adapter)
		}
	}
	if len(chain) == 0 || chain[len(chain)-1].Name() != RuleBasedModelName {
		chain = append(chain, NewRuleBasedModel(table))
	}
	if estimator == nil {
		estimator = NewEstimator(DefaultConfidenceConfig())
	}
	return &Orchestrator{
		table:      table,
		adapters:   chain,
		classifier: classifier,
		analyzer:   NewAnalyzer(table),
		estimator:  estimator,
		logger:     logger.With("component", "risk.orchestrator"),
		now:        util.NowUTC,
	}, nil
}

// Models lists adapter names in the order they are tried.
func (o *Orchestrator) Models() []string {
	names := make([]string, len(o.adapters))
	for i, adapter := range o.adapters {
		names[i] = adapter.Name()
	}
	return names
}

// Assess scores readings and classifies the result.
func (o *Orchestrator) Assess(ctx context.Context, siteID string, readings Readings) (RiskAssessment, error) {
	usable, dropped := o.table.Usable(readings)
	if len(dropped) > 0 {
		o.logger.Warn("ignoring unusable sensor readings", "site_id", siteID, "sensors", dropped)
	}
	if len(usable) == 0 {
		return RiskAssessment{}, ErrInsufficientData
	}

	verdict := o.firstValidVerdict(ctx, siteID, usable)
	factors := o.analyzer.Analyze(usable)
	return RiskAssessment{
		Score:      verdict.Score,
		Level:      o.classifier.Classify(verdict.Score),
		Confidence: o.estimator.Estimate(factors, verdict.ModelName),
		ModelUsed:  verdict.ModelName,
		Timestamp:  o.now(),
	}, nil
}

func (o *Orchestrator) firstValidVerdict(ctx context.Context, siteID string, readings Readings) ModelVerdict {
	for _, adapter := range o.adapters {
		verdict, err := o.invoke(ctx, adapter, siteID, readings)
		if err != nil {
			metrics.IncModelAttempt(adapter.Name(), metrics.ResultFailure)
			o.logger.Warn("model adapter failed, trying next", "site_id", siteID, "model", adapter.Name(), "error", err)
			continue
		}
		metrics.IncModelAttempt(adapter.Name(), metrics.ResultSuccess)
		return verdict
	}
	// Only reachable when the rule-based model was handed non-finite input,
	// which Usable already filters out.
	return ModelVerdict{Score: 0, Succeeded: true, ModelName: RuleBasedModelName}
}

func (o *Orchestrator) invoke(ctx context.Context, adapter ModelAdapter, siteID string, readings Readings) (verdict ModelVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = modelAdapterFailure(adapter.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	verdict, err = adapter.Score(ctx, siteID, readings.Clone())
	if err != nil {
		return ModelVerdict{}, modelAdapterFailure(adapter.Name(), err)
	}
	if !verdict.Succeeded {
		return ModelVerdict{}, modelAdapterFailure(adapter.Name(), fmt.Errorf("verdict not successful"))
	}
	if math.IsNaN(verdict.Score) || verdict.Score < 0 || verdict.Score > 1 {
		return ModelVerdict{}, modelAdapterFailure(adapter.Name(), fmt.Errorf("score %v outside [0,1]", verdict.Score))
	}
	if verdict.ModelName == "" {
		verdict.ModelName = adapter.Name()
	}
	return verdict, nil
}
