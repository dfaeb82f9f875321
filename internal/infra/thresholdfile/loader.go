package thresholdfile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/yanqian/rockwatch/internal/domain/risk"
)

//go:embed schema.json
var schemaJSON []byte

//go:embed default.yaml
var defaultYAML []byte

var printer = message.NewPrinter(language.English)

var tableSchema = mustCompileSchema(schemaJSON, "thresholds.schema.json")

type document struct {
	Required []string     `yaml:"required"`
	Sensors  []sensorBand `yaml:"sensors"`
}

type sensorBand struct {
	Sensor   string  `yaml:"sensor"`
	Unit     string  `yaml:"unit"`
	Floor    float64 `yaml:"floor"`
	Elevated float64 `yaml:"elevated"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
	Weight   float64 `yaml:"weight"`
	Baseline float64 `yaml:"baseline"`
}

func mustCompileSchema(raw []byte, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return schema
}

// Default returns the built-in threshold table.
func Default() (*risk.Table, error) {
	return Parse(defaultYAML)
}

// DefaultBytes exposes the built-in table source.
func DefaultBytes() []byte {
	out := make([]byte, len(defaultYAML))
	copy(out, defaultYAML)
	return out
}

// Load reads path, or the built-in table when path is empty.
func Load(path string) (*risk.Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, risk.ConfigurationError("read threshold file %s: %v", path, err)
	}
	return Parse(data)
}

// Parse validates data against the schema and builds the table. Every
// failure is a risk ConfigurationError.
func Parse(data []byte) (*risk.Table, error) {
	if problems := Validate(data); len(problems) > 0 {
		return nil, risk.ConfigurationError("threshold table invalid: %s", strings.Join(problems, "; "))
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, risk.ConfigurationError("parse threshold table: %v", err)
	}
	bands := make([]risk.ThresholdBand, len(doc.Sensors))
	for i, s := range doc.Sensors {
		bands[i] = risk.ThresholdBand{
			Sensor:   s.Sensor,
			Floor:    s.Floor,
			Elevated: s.Elevated,
			High:     s.High,
			Critical: s.Critical,
			Weight:   s.Weight,
			Baseline: s.Baseline,
			Unit:     s.Unit,
		}
	}
	return risk.NewTable(bands, doc.Required...)
}

// Validate lists schema problems in data, one per failing location.
func Validate(data []byte) []string {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}
	if doc == nil {
		return []string{"/: document is empty"}
	}
	err := tableSchema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var problems []string
	collect(ve, &problems)
	return problems
}

func collect(ve *jsonschema.ValidationError, problems *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*problems = append(*problems, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, c := range ve.Causes {
		collect(c, problems)
	}
}
