package risk

import (
	"math"
	"sort"
)

// Sensor names understood by the default threshold table.
const (
	SensorVibration      = "vibration"
	SensorAcoustic       = "acoustic"
	SensorDisplacement   = "displacement"
	SensorStrain         = "strain"
	SensorPorePressure   = "pore_pressure"
	SensorCrackDensity   = "crack_density"
	SensorRainfall       = "rainfall"
	SensorTemperature    = "temperature"
	SensorHumidity       = "humidity"
	SensorPressure       = "pressure"
	SensorSlopeStability = "slope_stability"
)

// sensorPriority orders sensors by physical hazard causality. It breaks ties
// between equal contribution scores and equal violations, so explanation
// wording stays deterministic. Sensors not listed rank after these in
// lexical order.
var sensorPriority = map[string]int{
	SensorVibration:      0,
	SensorSlopeStability: 1,
	SensorAcoustic:       2,
	SensorDisplacement:   3,
	SensorCrackDensity:   4,
}

func priorityOf(sensor string) int {
	if p, ok := sensorPriority[sensor]; ok {
		return p
	}
	return len(sensorPriority)
}

// RanksBefore reports whether sensor a precedes sensor b in the hazard priority order.
func RanksBefore(a, b string) bool {
	pa, pb := priorityOf(a), priorityOf(b)
	if pa != pb {
		return pa < pb
	}
	return a < b
}

// Readings maps a sensor name to its observed value for one site and cycle.
// A sensor that was not measured is absent from the map.
type Readings map[string]float64

// Sensors returns the sensor names in hazard priority order.
func (r Readings) Sensors() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return RanksBefore(names[i], names[j]) })
	return names
}

// Clone returns an independent copy.
func (r Readings) Clone() Readings {
	out := make(Readings, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// KnownSensors lists the sensor names this service ships defaults for.
func KnownSensors() []string {
	names := []string{
		SensorVibration, SensorAcoustic, SensorDisplacement, SensorStrain,
		SensorPorePressure, SensorCrackDensity, SensorRainfall, SensorTemperature,
		SensorHumidity, SensorPressure, SensorSlopeStability,
	}
	sort.Slice(names, func(i, j int) bool { return RanksBefore(names[i], names[j]) })
	return names
}
