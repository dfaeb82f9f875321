package logistic

import (
	"context"
	"math"

	"github.com/yanqian/rockwatch/internal/domain/risk"
)

// ModelName identifies verdicts from the local logistic model.
const ModelName = "logistic"

// Config holds the fitted coefficients, keyed by sensor.
type Config struct {
	Intercept    float64
	Coefficients map[string]float64
	// MinCoverage is how many coefficient sensors must be present; zero means 1.
	MinCoverage int
}

// Model is a local logistic regression over raw readings.
type Model struct {
	intercept    float64
	coefficients map[string]float64
	minCoverage  int
}

// NewModel copies cfg so later edits do not leak in.
func NewModel(cfg Config) *Model {
	coefficients := make(map[string]float64, len(cfg.Coefficients))
	for sensor, c := range cfg.Coefficients {
		coefficients[sensor] = c
	}
	minCoverage := cfg.MinCoverage
	if minCoverage <= 0 {
		minCoverage = 1
	}
	return &Model{intercept: cfg.Intercept, coefficients: coefficients, minCoverage: minCoverage}
}

func (m *Model) Name() string {
	return ModelName
}

// Score reports Succeeded=false when too few fitted sensors are present.
func (m *Model) Score(_ context.Context, _ string, readings risk.Readings) (risk.ModelVerdict, error) {
	z := m.intercept
	covered := 0
	for sensor, value := range readings {
		c, ok := m.coefficients[sensor]
		if !ok {
			continue
		}
		z += c * value
		covered++
	}
	if covered < m.minCoverage {
		return risk.ModelVerdict{ModelName: ModelName}, nil
	}
	return risk.ModelVerdict{Score: sigmoid(z), Succeeded: true, ModelName: ModelName}, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

var _ risk.ModelAdapter = (*Model)(nil)
