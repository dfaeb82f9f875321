package risk

import "sort"

const contributionScale = 10.0

// Analyzer decomposes readings into per-sensor contributions.
type Analyzer struct {
	table *Table
}

// NewAnalyzer builds an analyzer over the shared threshold table.
func NewAnalyzer(table *Table) *Analyzer {
	return &Analyzer{table: table}
}

// Analyze returns one factor per scored sensor, normal ones included, ordered
// by contribution score and then sensor priority.
func (a *Analyzer) Analyze(readings Readings) []ContributingFactor {
	factors := make([]ContributingFactor, 0, len(readings))
	for sensor, value := range readings {
		band, ok := a.table.Band(sensor)
		if !ok || !finite(value) {
			continue
		}
		factors = append(factors, buildFactor(band, value))
	}
	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].Score != factors[j].Score {
			return factors[i].Score > factors[j].Score
		}
		return RanksBefore(factors[i].Sensor, factors[j].Sensor)
	})
	return factors
}

func buildFactor(band ThresholdBand, value float64) ContributingFactor {
	level := band.Classify(value)
	factor := ContributingFactor{
		Sensor: band.Sensor,
		Value:  value,
		Band:   level,
		Score:  band.Weight * level.Factor() * contributionScale,
		Unit:   band.Unit,
	}
	if band.Baseline != 0 {
		factor.Baseline = band.Baseline
		factor.DeviationPercent = percentOver(value, band.Baseline)
	}
	if level < BandCritical {
		factor.NextThreshold = band.LowerBound(level + 1)
		factor.MarginToNext = factor.NextThreshold - value
	}
	return factor
}
