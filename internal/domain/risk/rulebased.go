package risk

import "context"

// RuleBasedModelName identifies the deterministic fallback in model_used.
const RuleBasedModelName = "rule_based"

// RuleBasedModel scores readings as the weight-averaged band position of each
// present sensor. It has no failure path for finite input, so it always
// terminates the adapter chain.
type RuleBasedModel struct {
	table *Table
}

// NewRuleBasedModel builds the fallback model.
func NewRuleBasedModel(table *Table) *RuleBasedModel {
	return &RuleBasedModel{table: table}
}

// Name implements ModelAdapter.
func (m *RuleBasedModel) Name() string { return RuleBasedModelName }

// Score implements ModelAdapter.
func (m *RuleBasedModel) Score(_ context.Context, _ string, readings Readings) (ModelVerdict, error) {
	return ModelVerdict{Score: m.score(readings), Succeeded: true, ModelName: RuleBasedModelName}, nil
}

func (m *RuleBasedModel) score(readings Readings) float64 {
	var weighted, total float64
	for _, sensor := range readings.Sensors() {
		band, ok := m.table.Band(sensor)
		value := readings[sensor]
		if !ok || !finite(value) {
			continue
		}
		weighted += band.Weight * band.Normalize(value)
		total += band.Weight
	}
	if total == 0 {
		return 0
	}
	return clamp01(weighted / total)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
