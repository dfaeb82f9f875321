package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/routing"
	"github.com/yanqian/rockwatch/internal/domain/site"
)

func TestBuildPDF(t *testing.T) {
	b := evaluation.Bundle{
		ID:   "7d0c0f1e-1111-4a4a-9b9b-000000000001",
		Site: site.Site{ID: "jh-01", Name: "Jharia Pit 4"},
		Assessment: risk.RiskAssessment{
			Score: 0.91, Level: risk.LevelHigh, Confidence: 72, ModelUsed: risk.RuleBasedModelName,
		},
		Explanation: risk.Explanation{
			PrimaryStatement: "HIGH risk: vibration reading 8.2 Hz exceeds the critical threshold of 7.5 Hz by 9.3%.",
			Factors: []risk.ContributingFactor{
				{Sensor: risk.SensorVibration, Value: 8.2, Band: risk.BandCritical, Score: 3, Unit: "Hz", Baseline: 1.2, DeviationPercent: 583.3},
				{Sensor: "strain", Value: 250, Band: risk.BandElevated, Score: 0.33, Unit: "µε"},
			},
			Violations: []risk.ThresholdViolation{
				{Sensor: risk.SensorVibration, Value: 8.2, Threshold: 7.5, PercentExceeded: 9.33, Severity: risk.BandCritical, Unit: "Hz"},
			},
			Recommendations: []risk.Recommendation{
				{Rank: 1, ActionKey: risk.ActionEvacuate, Text: risk.ActionText(risk.ActionEvacuate, nil)},
			},
		},
		Groups:    []routing.RecipientGroup{routing.GroupEmergency, routing.GroupManagement},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	out, err := BuildPDF(b)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	require.Greater(t, len(out), 500)
}

func TestBuildPDFLowRiskWithoutFactors(t *testing.T) {
	out, err := BuildPDF(evaluation.Bundle{
		ID:         "b-low",
		Site:       site.Site{ID: "od-02"},
		Assessment: risk.RiskAssessment{Level: risk.LevelLow},
		Explanation: risk.Explanation{
			PrimaryStatement: "LOW risk: no threshold exceeded; score derived from baseline aggregate conditions.",
		},
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
