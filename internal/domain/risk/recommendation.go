package risk

import (
	"fmt"
	"sort"
)

// Action keys. Localized text lives under "action.<key>".
const (
	ActionEvacuate           = "evacuate"
	ActionHaltEquipment      = "halt_equipment"
	ActionContactEmergency   = "contact_emergency"
	ActionIsolateArea        = "isolate_area"
	ActionEscalateMonitoring = "escalate_monitoring"
	ActionRestrictAccess     = "restrict_access"
	ActionIncreaseMonitoring = "increase_monitoring"
	ActionBriefPersonnel     = "brief_personnel"
	ActionStageEvacuation    = "stage_evacuation"
	ActionRoutineMonitoring  = "routine_monitoring"
	ActionInspectSensor      = "inspect_sensor"
)

var baselineActions = map[RiskLevel][]string{
	LevelHigh: {
		ActionEvacuate,
		ActionHaltEquipment,
		ActionContactEmergency,
		ActionIsolateArea,
		ActionEscalateMonitoring,
	},
	LevelMedium: {
		ActionRestrictAccess,
		ActionIncreaseMonitoring,
		ActionBriefPersonnel,
		ActionStageEvacuation,
	},
	LevelLow: {
		ActionRoutineMonitoring,
	},
}

// sensorActions holds the follow-up for a violated sensor. Sensors without an
// entry get ActionInspectSensor targeted at them.
var sensorActions = map[string]string{
	SensorVibration:      "inspect_vibration",
	SensorSlopeStability: "inspect_slope",
	SensorAcoustic:       "inspect_acoustic",
	SensorDisplacement:   "survey_displacement",
	SensorCrackDensity:   "map_cracks",
	SensorPorePressure:   "drain_pore_pressure",
	SensorRainfall:       "divert_runoff",
	SensorStrain:         "inspect_supports",
}

var actionText = map[string]string{
	ActionEvacuate:           "Evacuate all personnel from the danger zone immediately",
	ActionHaltEquipment:      "Halt all equipment operating near the affected slope",
	ActionContactEmergency:   "Contact emergency response services",
	ActionIsolateArea:        "Isolate and barricade the affected area",
	ActionEscalateMonitoring: "Escalate monitoring to continuous observation",
	ActionRestrictAccess:     "Restrict access to the affected area to essential personnel",
	ActionIncreaseMonitoring: "Increase monitoring frequency",
	ActionBriefPersonnel:     "Brief on-site personnel about the elevated risk",
	ActionStageEvacuation:    "Stage evacuation routes and equipment for readiness",
	ActionRoutineMonitoring:  "Continue routine monitoring",
	"inspect_vibration":      "Inspect vibration sensors and halt the associated blasting or heavy equipment",
	"inspect_slope":          "Survey slope faces for movement and reinforce unstable benches",
	"inspect_acoustic":       "Investigate acoustic emission sources for active rock fracturing",
	"survey_displacement":    "Verify displacement with a prism survey and cordon the moving block",
	"map_cracks":             "Map new cracks and seal tension cracks above the face",
	"drain_pore_pressure":    "Check piezometers and start dewatering pumps",
	"divert_runoff":          "Divert surface runoff away from the pit walls",
	"inspect_supports":       "Inspect strain gauges and ground support structures",
}

// ActionText returns the default-language text for an action key. targets fill
// the generic sensor inspection action.
func ActionText(key string, targets []string) string {
	if text, ok := actionText[key]; ok {
		return text
	}
	if key == ActionInspectSensor && len(targets) > 0 {
		return fmt.Sprintf("Inspect %s sensor readings and the associated equipment", targets[0])
	}
	return key
}

// Recommender turns a level and its violations into ranked actions.
type Recommender struct{}

// NewRecommender builds the generator. The policy tables are static.
func NewRecommender() *Recommender {
	return &Recommender{}
}

// Generate returns the baseline actions of level with one sensor-specific
// action per violation inserted after the most urgent baseline action.
// Ranks are contiguous from 1 and the output is deterministic for a given
// input order of violations.
func (r *Recommender) Generate(level RiskLevel, violations []ThresholdViolation) []Recommendation {
	baseline, ok := baselineActions[level]
	if !ok {
		baseline = baselineActions[LevelLow]
	}

	type action struct {
		key     string
		targets []string
	}
	actions := make([]action, 0, len(baseline)+len(violations))
	actions = append(actions, action{key: baseline[0]})
	seen := make(map[string]bool, len(violations))
	for _, v := range violations {
		if seen[v.Sensor] {
			continue
		}
		seen[v.Sensor] = true
		key, ok := sensorActions[v.Sensor]
		if !ok {
			key = ActionInspectSensor
		}
		actions = append(actions, action{key: key, targets: []string{v.Sensor}})
	}
	for _, key := range baseline[1:] {
		actions = append(actions, action{key: key})
	}

	out := make([]Recommendation, len(actions))
	for i, a := range actions {
		out[i] = Recommendation{
			Rank:      i + 1,
			ActionKey: a.key,
			Text:      ActionText(a.key, a.targets),
			Targets:   a.targets,
		}
	}
	return out
}

// ActionKeys lists every action the generator can emit, sorted.
func ActionKeys() []string {
	keys := make([]string, 0, len(actionText)+1)
	for key := range actionText {
		keys = append(keys, key)
	}
	keys = append(keys, ActionInspectSensor)
	sort.Strings(keys)
	return keys
}
