package risk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembleNamesMostSevereViolation(t *testing.T) {
	readings := Readings{SensorVibration: 8.2, SensorAcoustic: 96.4}
	assessment := RiskAssessment{Score: 0.98, Level: LevelHigh, Confidence: 65}

	exp := NewAssembler(testTable(t)).Assemble(readings, assessment)

	require.Equal(t, StatementViolation, exp.Statement.Key)
	require.Equal(t, SensorVibration, exp.Statement.Violation.Sensor)
	require.Len(t, exp.Statement.Supporting, 1)
	require.Equal(t, SensorAcoustic, exp.Statement.Supporting[0].Sensor)
	require.Equal(t,
		"HIGH risk: vibration reading 8.2 Hz exceeds the critical threshold of 7.5 Hz by 9.3%. Also contributing: acoustic (high).",
		exp.PrimaryStatement)
	require.Equal(t, 65.0, exp.Confidence)
	require.Equal(t, ActionEvacuate, exp.Recommendations[0].ActionKey)
}

func TestAssembleGenericStatementWithoutViolations(t *testing.T) {
	exp := NewAssembler(testTable(t)).Assemble(Readings{SensorVibration: 1}, RiskAssessment{Level: LevelLow, Confidence: 7.5})

	require.Equal(t, StatementGeneric, exp.Statement.Key)
	require.Nil(t, exp.Statement.Violation)
	require.Empty(t, exp.Violations)
	require.NotEmpty(t, exp.PrimaryStatement)
	require.Contains(t, exp.PrimaryStatement, "no threshold exceeded")
	require.Len(t, exp.Factors, 1)
}

func TestAssembleLimitsSupportingFactors(t *testing.T) {
	exp := NewAssembler(testTable(t)).Assemble(Readings{
		SensorVibration:      12,
		SensorSlopeStability: 0.55,
		SensorDisplacement:   31,
		SensorAcoustic:       105,
	}, RiskAssessment{Level: LevelHigh})

	require.Equal(t, SensorVibration, exp.Statement.Violation.Sensor)
	require.Len(t, exp.Statement.Supporting, 2)
	require.Equal(t, SensorSlopeStability, exp.Statement.Supporting[0].Sensor)
	require.Equal(t, SensorDisplacement, exp.Statement.Supporting[1].Sensor)
}

func TestFormatValue(t *testing.T) {
	require.Equal(t, "8.2 Hz", FormatValue(8.2, "Hz"))
	require.Equal(t, "0.33", FormatValue(1.0/3, ""))
	require.Equal(t, "9.3", FormatNumber(9.3333, 1))
}
