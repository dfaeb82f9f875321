package risk

import "math"

// ConfidenceConfig tunes the confidence formula.
type ConfidenceConfig struct {
	CoveragePerSensor float64
	CoverageWeight    float64
	AgreementWeight   float64
	// FallbackCeiling caps confidence when the rule-based model produced the score.
	FallbackCeiling float64
}

// DefaultConfidenceConfig returns the stock weights.
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		CoveragePerSensor: 15,
		CoverageWeight:    0.5,
		AgreementWeight:   50,
		FallbackCeiling:   80,
	}
}

// Estimator scores how much an assessment can be trusted, 0 to 100.
type Estimator struct {
	cfg ConfidenceConfig
}

// NewEstimator builds an estimator. Zero fields take the stock values.
func NewEstimator(cfg ConfidenceConfig) *Estimator {
	defaults := DefaultConfidenceConfig()
	if cfg.CoveragePerSensor <= 0 {
		cfg.CoveragePerSensor = defaults.CoveragePerSensor
	}
	if cfg.CoverageWeight <= 0 {
		cfg.CoverageWeight = defaults.CoverageWeight
	}
	if cfg.AgreementWeight <= 0 {
		cfg.AgreementWeight = defaults.AgreementWeight
	}
	if cfg.FallbackCeiling <= 0 {
		cfg.FallbackCeiling = defaults.FallbackCeiling
	}
	return &Estimator{cfg: cfg}
}

// Estimate combines sensor coverage with cross-sensor agreement on high
// severity. More sensors and more agreement both raise the result, which
// saturates at 100.
func (e *Estimator) Estimate(factors []ContributingFactor, modelUsed string) float64 {
	n := len(factors)
	if n == 0 {
		return 0
	}
	severe := 0
	for _, f := range factors {
		if f.Band >= BandHigh {
			severe++
		}
	}
	coverage := math.Min(100, float64(n)*e.cfg.CoveragePerSensor)
	agreement := float64(severe) / float64(n) * e.cfg.AgreementWeight
	confidence := math.Min(100, coverage*e.cfg.CoverageWeight+agreement)
	if modelUsed == RuleBasedModelName {
		confidence = math.Min(confidence, e.cfg.FallbackCeiling)
	}
	return math.Max(0, confidence)
}
