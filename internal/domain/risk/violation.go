package risk

import "sort"

// Detector finds readings above their normal band.
type Detector struct {
	table *Table
}

// NewDetector builds a detector over the shared threshold table.
func NewDetector(table *Table) *Detector {
	return &Detector{table: table}
}

// Detect returns violations ordered by severity, then percent exceeded, then sensor priority.
// PercentExceeded is measured against the lower bound of the band that was crossed.
func (d *Detector) Detect(readings Readings) []ThresholdViolation {
	var violations []ThresholdViolation
	for sensor, value := range readings {
		band, ok := d.table.Band(sensor)
		if !ok || !finite(value) {
			continue
		}
		level := band.Classify(value)
		if level == BandNormal {
			continue
		}
		threshold := band.LowerBound(level)
		violations = append(violations, ThresholdViolation{
			Sensor:          sensor,
			Value:           value,
			Threshold:       threshold,
			PercentExceeded: percentOver(value, threshold),
			Severity:        level,
			Unit:            band.Unit,
		})
	}
	sort.SliceStable(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.PercentExceeded != b.PercentExceeded {
			return a.PercentExceeded > b.PercentExceeded
		}
		return RanksBefore(a.Sensor, b.Sensor)
	})
	return violations
}
