package risk

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func testBands() []ThresholdBand {
	return []ThresholdBand{
		{Sensor: SensorVibration, Floor: 0, Elevated: 2.5, High: 5, Critical: 7.5, Weight: 0.30, Baseline: 1.2, Unit: "Hz"},
		{Sensor: SensorAcoustic, Floor: 0, Elevated: 60, High: 80, Critical: 100, Weight: 0.15, Baseline: 45, Unit: "dB"},
		{Sensor: SensorSlopeStability, Floor: 0, Elevated: 0.1, High: 0.3, Critical: 0.5, Weight: 0.25, Baseline: 0.05},
		{Sensor: SensorTemperature, Floor: -20, Elevated: 30, High: 40, Critical: 50, Weight: 0.10, Baseline: 25, Unit: "°C"},
		{Sensor: SensorHumidity, Floor: 0, Elevated: 70, High: 85, Critical: 95, Weight: 0.05, Baseline: 45, Unit: "%"},
		{Sensor: SensorPressure, Floor: 900, Elevated: 1020, High: 1040, Critical: 1060, Weight: 0.10, Baseline: 1013.25, Unit: "hPa"},
		{Sensor: SensorDisplacement, Floor: 0, Elevated: 5, High: 15, Critical: 30, Weight: 0.20, Unit: "mm"},
		{Sensor: SensorCrackDensity, Floor: 0, Elevated: 0.5, High: 1.5, Critical: 3, Weight: 0.15, Unit: "/m"},
		{Sensor: SensorPorePressure, Floor: 0, Elevated: 50, High: 100, Critical: 150, Weight: 0.15, Unit: "kPa"},
		{Sensor: SensorRainfall, Floor: 0, Elevated: 25, High: 50, Critical: 100, Weight: 0.10, Unit: "mm"},
		{Sensor: SensorStrain, Floor: 0, Elevated: 200, High: 500, Critical: 1000, Weight: 0.10, Unit: "µε"},
	}
}

func testTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(testBands())
	require.NoError(t, err)
	return table
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nan() float64 {
	return math.NaN()
}
