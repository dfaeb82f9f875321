package risk

import (
	"fmt"
	"strings"
	"time"
)

// RiskLevel is the graded outcome of an assessment.
type RiskLevel string

const (
	LevelLow    RiskLevel = "LOW"
	LevelMedium RiskLevel = "MEDIUM"
	LevelHigh   RiskLevel = "HIGH"
)

// Levels lists every level from least to most severe.
var Levels = []RiskLevel{LevelLow, LevelMedium, LevelHigh}

// Rank orders levels, LOW being 0.
func (l RiskLevel) Rank() int {
	switch l {
	case LevelHigh:
		return 2
	case LevelMedium:
		return 1
	default:
		return 0
	}
}

// ParseLevel parses a level name case-insensitively.
func ParseLevel(raw string) (RiskLevel, error) {
	level := RiskLevel(strings.ToUpper(strings.TrimSpace(raw)))
	switch level {
	case LevelLow, LevelMedium, LevelHigh:
		return level, nil
	}
	return "", fmt.Errorf("unknown risk level %q", raw)
}

// ModelVerdict is the raw output of one model adapter.
type ModelVerdict struct {
	Score     float64 `json:"score"`
	Succeeded bool    `json:"succeeded"`
	ModelName string  `json:"modelName"`
}

// RiskAssessment is the classified result of one evaluation cycle.
type RiskAssessment struct {
	Score      float64   `json:"riskScore"`
	Level      RiskLevel `json:"riskLevel"`
	Confidence float64   `json:"confidence"`
	ModelUsed  string    `json:"modelUsed"`
	Timestamp  time.Time `json:"timestamp"`
}

// ContributingFactor projects one reading onto its threshold band.
type ContributingFactor struct {
	Sensor string  `json:"sensor"`
	Value  float64 `json:"value"`
	Band   Band    `json:"band"`
	// Score is weight times the band factor, on a 0-10 scale.
	Score            float64 `json:"contributionScore"`
	Unit             string  `json:"unit,omitempty"`
	Baseline         float64 `json:"baseline,omitempty"`
	DeviationPercent float64 `json:"deviationPercent,omitempty"`
	// NextThreshold is the lower bound of the next band up; zero once critical.
	NextThreshold float64 `json:"nextThreshold,omitempty"`
	MarginToNext  float64 `json:"marginToNext,omitempty"`
}

// ThresholdViolation describes a reading above its normal band.
type ThresholdViolation struct {
	Sensor          string  `json:"sensor"`
	Value           float64 `json:"value"`
	Threshold       float64 `json:"threshold"`
	PercentExceeded float64 `json:"percentExceeded"`
	Severity        Band    `json:"severity"`
	Unit            string  `json:"unit,omitempty"`
}

// Recommendation is one prioritized action. Rank 1 is the most urgent.
type Recommendation struct {
	Rank      int      `json:"rank"`
	ActionKey string   `json:"actionKey"`
	Text      string   `json:"text"`
	Targets   []string `json:"targets,omitempty"`
}

// Statement keys.
const (
	StatementViolation = "statement.violation"
	StatementGeneric   = "statement.generic"
)

// Statement is the structured form of the primary statement so it can be
// rendered again in other languages.
type Statement struct {
	Key        string               `json:"key"`
	Level      RiskLevel            `json:"level"`
	Violation  *ThresholdViolation  `json:"violation,omitempty"`
	Supporting []ContributingFactor `json:"supporting,omitempty"`
}

// Explanation says why an assessment landed on its level.
type Explanation struct {
	PrimaryStatement string               `json:"primaryStatement"`
	Statement        Statement            `json:"statement"`
	Factors          []ContributingFactor `json:"contributingFactors"`
	Violations       []ThresholdViolation `json:"violations"`
	Recommendations  []Recommendation     `json:"recommendations"`
	Confidence       float64              `json:"confidence"`
}
