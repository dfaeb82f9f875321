package risk

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	statementFactorWindow = 5
	supportingFactors     = 2
)

// Assembler composes the explanation of an assessment.
type Assembler struct {
	analyzer    *Analyzer
	detector    *Detector
	recommender *Recommender
}

// NewAssembler builds the assembler over the shared threshold table.
func NewAssembler(table *Table) *Assembler {
	return &Assembler{
		analyzer:    NewAnalyzer(table),
		detector:    NewDetector(table),
		recommender: NewRecommender(),
	}
}

// Assemble explains assessment in terms of readings. Confidence is copied
// from the assessment.
func (a *Assembler) Assemble(readings Readings, assessment RiskAssessment) Explanation {
	factors := a.analyzer.Analyze(readings)
	violations := a.detector.Detect(readings)
	recommendations := a.recommender.Generate(assessment.Level, violations)
	statement := buildStatement(assessment.Level, factors, violations)
	return Explanation{
		PrimaryStatement: FormatStatement(statement),
		Statement:        statement,
		Factors:          factors,
		Violations:       violations,
		Recommendations:  recommendations,
		Confidence:       assessment.Confidence,
	}
}

func buildStatement(level RiskLevel, factors []ContributingFactor, violations []ThresholdViolation) Statement {
	if len(violations) == 0 {
		return Statement{Key: StatementGeneric, Level: level}
	}
	top := violations[0]
	statement := Statement{Key: StatementViolation, Level: level, Violation: &top}

	window := factors
	if len(window) > statementFactorWindow {
		window = window[:statementFactorWindow]
	}
	for _, f := range window {
		if len(statement.Supporting) == supportingFactors {
			break
		}
		if f.Sensor == top.Sensor || f.Band == BandNormal {
			continue
		}
		statement.Supporting = append(statement.Supporting, f)
	}
	return statement
}

// FormatStatement renders a statement in the default language.
func FormatStatement(s Statement) string {
	if s.Key != StatementViolation || s.Violation == nil {
		return fmt.Sprintf("%s risk: no threshold exceeded; score derived from baseline aggregate conditions.", s.Level)
	}
	v := s.Violation
	var b strings.Builder
	fmt.Fprintf(&b, "%s risk: %s reading %s exceeds the %s threshold of %s by %s%%.",
		s.Level, SensorLabel(v.Sensor), FormatValue(v.Value, v.Unit), v.Severity,
		FormatValue(v.Threshold, v.Unit), FormatNumber(v.PercentExceeded, 1))
	if len(s.Supporting) > 0 {
		parts := make([]string, len(s.Supporting))
		for i, f := range s.Supporting {
			parts[i] = fmt.Sprintf("%s (%s)", SensorLabel(f.Sensor), f.Band)
		}
		fmt.Fprintf(&b, " Also contributing: %s.", strings.Join(parts, ", "))
	}
	return b.String()
}

// SensorLabel turns a sensor key into words.
func SensorLabel(sensor string) string {
	return strings.ReplaceAll(sensor, "_", " ")
}

// FormatNumber rounds v to digits decimals without trailing zeros.
func FormatNumber(v float64, digits int) string {
	scale := math.Pow(10, float64(digits))
	return strconv.FormatFloat(math.Round(v*scale)/scale, 'f', -1, 64)
}

// FormatValue renders a reading with its unit.
func FormatValue(v float64, unit string) string {
	number := FormatNumber(v, 2)
	if unit == "" {
		return number
	}
	return number + " " + unit
}
