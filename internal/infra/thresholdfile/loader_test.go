package thresholdfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rockwatch/internal/domain/risk"
)

func TestDefaultTable(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)
	require.Len(t, table.Sensors(), 11)

	vibration, ok := table.Band(risk.SensorVibration)
	require.True(t, ok)
	require.Equal(t, 7.5, vibration.Critical)
	require.Equal(t, "Hz", vibration.Unit)
	require.Equal(t, 1.2, vibration.Baseline)
	require.Equal(t, risk.BandCritical, vibration.Classify(8.2))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sensors:
  - sensor: vibration
    elevated: 3
    high: 6
    critical: 9
    weight: 0.5
`), 0o600))

	table, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{risk.SensorVibration}, table.Sensors())

	table, err = Load("")
	require.NoError(t, err)
	require.Len(t, table.Sensors(), 11)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, risk.IsConfigurationError(err))
}

func TestParseRejectsInvalidTables(t *testing.T) {
	cases := map[string]string{
		"not yaml":        "sensors: [",
		"empty":           "",
		"no sensors":      "sensors: []",
		"weight too big":  "sensors:\n  - {sensor: vibration, elevated: 1, high: 2, critical: 3, weight: 2}",
		"missing bound":   "sensors:\n  - {sensor: vibration, elevated: 1, high: 2, weight: 0.2}",
		"unknown field":   "sensors:\n  - {sensor: vibration, elevated: 1, high: 2, critical: 3, weight: 0.2, colour: red}",
		"not increasing":  "sensors:\n  - {sensor: vibration, elevated: 3, high: 2, critical: 4, weight: 0.2}",
		"duplicate":       "sensors:\n  - {sensor: vibration, elevated: 1, high: 2, critical: 3, weight: 0.2}\n  - {sensor: vibration, elevated: 1, high: 2, critical: 3, weight: 0.2}",
		"missing require": "required: [acoustic]\nsensors:\n  - {sensor: vibration, elevated: 1, high: 2, critical: 3, weight: 0.2}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			require.True(t, risk.IsConfigurationError(err))
		})
	}
}

func TestValidateReportsLocations(t *testing.T) {
	problems := Validate([]byte("sensors:\n  - {sensor: Vibration, elevated: 1, high: 2, critical: 3, weight: 0.2}"))
	require.Len(t, problems, 1)
	require.Contains(t, problems[0], "/sensors/0/sensor")

	require.Empty(t, Validate(DefaultBytes()))
}
