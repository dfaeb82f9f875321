package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Band classifies a sensor value against its static bounds.
type Band int

const (
	BandNormal Band = iota
	BandElevated
	BandHigh
	BandCritical
)

var bandNames = [...]string{"normal", "elevated", "high", "critical"}

func (b Band) String() string {
	if b < BandNormal || b > BandCritical {
		return "unknown"
	}
	return bandNames[b]
}

// Factor maps the band onto {0, 1/3, 2/3, 1}.
func (b Band) Factor() float64 {
	return float64(b) / float64(BandCritical)
}

// MarshalText renders the band name.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses a band name.
func (b *Band) UnmarshalText(text []byte) error {
	parsed, err := ParseBand(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBand parses a band name case-insensitively.
func ParseBand(raw string) (Band, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for i, candidate := range bandNames {
		if candidate == name {
			return Band(i), nil
		}
	}
	return BandNormal, fmt.Errorf("unknown band %q", raw)
}

// ThresholdBand holds the lower bound of each band for one sensor.
// Intervals are closed below and open above: [Floor, Elevated) is normal,
// [Elevated, High) elevated, [High, Critical) high and [Critical, +inf) critical.
// Values under Floor are still normal.
type ThresholdBand struct {
	Sensor   string
	Floor    float64
	Elevated float64
	High     float64
	Critical float64
	// Weight is the relative influence of the sensor, in [0,1].
	Weight float64
	// Baseline is the typical reading under normal operation. Zero means unknown.
	Baseline float64
	Unit     string
}

// Classify returns the band containing v.
func (t ThresholdBand) Classify(v float64) Band {
	switch {
	case v >= t.Critical:
		return BandCritical
	case v >= t.High:
		return BandHigh
	case v >= t.Elevated:
		return BandElevated
	default:
		return BandNormal
	}
}

// LowerBound returns the inclusive lower bound of b.
func (t ThresholdBand) LowerBound(b Band) float64 {
	switch b {
	case BandCritical:
		return t.Critical
	case BandHigh:
		return t.High
	case BandElevated:
		return t.Elevated
	default:
		return t.Floor
	}
}

// Normalize maps v onto [0,1], linear within each band: normal covers
// [0,1/3), elevated [1/3,2/3), high [2/3,1) and critical saturates at 1.
// The mapping is continuous and non-decreasing in v.
func (t ThresholdBand) Normalize(v float64) float64 {
	third := 1.0 / 3.0
	switch t.Classify(v) {
	case BandCritical:
		return 1
	case BandHigh:
		return 2*third + third*(v-t.High)/(t.Critical-t.High)
	case BandElevated:
		return third + third*(v-t.Elevated)/(t.High-t.Elevated)
	default:
		if v <= t.Floor {
			return 0
		}
		return third * (v - t.Floor) / (t.Elevated - t.Floor)
	}
}

func (t ThresholdBand) validate() error {
	if strings.TrimSpace(t.Sensor) == "" {
		return ConfigurationError("threshold band without sensor name")
	}
	for _, v := range []float64{t.Floor, t.Elevated, t.High, t.Critical, t.Weight, t.Baseline} {
		if !finite(v) {
			return ConfigurationError("sensor %s: bounds must be finite", t.Sensor)
		}
	}
	if !(t.Floor < t.Elevated && t.Elevated < t.High && t.High < t.Critical) {
		return ConfigurationError("sensor %s: bands must be strictly increasing (floor %g, elevated %g, high %g, critical %g)",
			t.Sensor, t.Floor, t.Elevated, t.High, t.Critical)
	}
	if t.Weight < 0 || t.Weight > 1 {
		return ConfigurationError("sensor %s: weight %g outside [0,1]", t.Sensor, t.Weight)
	}
	return nil
}

// Table is the immutable set of threshold bands. It is built once at startup
// and shared read-only by every evaluation.
type Table struct {
	bands   map[string]ThresholdBand
	sensors []string
}

// NewTable validates bands and builds the table. Every sensor in required must
// have a band. Any problem is a ConfigurationError.
func NewTable(bands []ThresholdBand, required ...string) (*Table, error) {
	if len(bands) == 0 {
		return nil, ConfigurationError("threshold table is empty")
	}
	table := &Table{bands: make(map[string]ThresholdBand, len(bands))}
	for _, band := range bands {
		band.Sensor = strings.TrimSpace(band.Sensor)
		if err := band.validate(); err != nil {
			return nil, err
		}
		if _, dup := table.bands[band.Sensor]; dup {
			return nil, ConfigurationError("sensor %s defined twice", band.Sensor)
		}
		table.bands[band.Sensor] = band
		table.sensors = append(table.sensors, band.Sensor)
	}
	for _, sensor := range required {
		if _, ok := table.bands[sensor]; !ok {
			return nil, ConfigurationError("required sensor %s has no threshold band", sensor)
		}
	}
	sort.Slice(table.sensors, func(i, j int) bool { return RanksBefore(table.sensors[i], table.sensors[j]) })
	return table, nil
}

// Band returns the threshold band of sensor.
func (t *Table) Band(sensor string) (ThresholdBand, bool) {
	band, ok := t.bands[sensor]
	return band, ok
}

// Sensors lists configured sensors in hazard priority order.
func (t *Table) Sensors() []string {
	out := make([]string, len(t.sensors))
	copy(out, t.sensors)
	return out
}

// Usable keeps the readings that can be scored: known sensors with finite values.
// The names of dropped sensors are returned for logging.
func (t *Table) Usable(readings Readings) (Readings, []string) {
	usable := make(Readings, len(readings))
	var dropped []string
	for sensor, value := range readings {
		if _, ok := t.bands[sensor]; !ok || !finite(value) {
			dropped = append(dropped, sensor)
			continue
		}
		usable[sensor] = value
	}
	sort.Strings(dropped)
	return usable, dropped
}

func percentOver(value, bound float64) float64 {
	if bound == 0 {
		return 0
	}
	return (value - bound) / math.Abs(bound) * 100
}
