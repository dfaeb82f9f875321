package localization

import (
	"embed"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/yanqian/rockwatch/internal/domain/risk"
)

// DefaultLanguage is always present and complete; every gap falls back to it.
const DefaultLanguage = "en"

//go:embed translations/*.yaml
var builtin embed.FS

// Catalog holds parsed message templates per language, keyed by semantic key.
type Catalog struct {
	languages []string
	matcher   language.Matcher
	entries   map[string]map[string]*template.Template
}

// BuiltinCatalog loads the translations shipped with the binary.
func BuiltinCatalog() (*Catalog, error) {
	sub, err := fs.Sub(builtin, "translations")
	if err != nil {
		return nil, err
	}
	return LoadCatalog(sub)
}

// LoadCatalog reads one <language>.yaml file per language from fsys. Each file
// is a flat map of key to text/template source. The default language must
// define every key the renderer uses; other languages may be partial.
func LoadCatalog(fsys fs.FS) (*Catalog, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, risk.ConfigurationError("list translation files: %v", err)
	}
	catalog := &Catalog{entries: make(map[string]map[string]*template.Template, len(files))}
	for _, file := range files {
		code := strings.TrimSuffix(path.Base(file), ".yaml")
		tag, err := language.Parse(code)
		if err != nil {
			return nil, risk.ConfigurationError("translation file %s: invalid language code: %v", file, err)
		}
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, risk.ConfigurationError("read translation file %s: %v", file, err)
		}
		messages := map[string]string{}
		if err := yaml.Unmarshal(raw, &messages); err != nil {
			return nil, risk.ConfigurationError("decode translation file %s: %v", file, err)
		}
		parsed, err := parseMessages(tag.String(), messages)
		if err != nil {
			return nil, err
		}
		catalog.entries[tag.String()] = parsed
	}

	defaults, ok := catalog.entries[DefaultLanguage]
	if !ok {
		return nil, risk.ConfigurationError("translation table for default language %q is missing", DefaultLanguage)
	}
	var missing []string
	for _, key := range RequiredKeys() {
		if _, ok := defaults[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, risk.ConfigurationError("default language is missing keys: %s", strings.Join(missing, ", "))
	}

	for code := range catalog.entries {
		if code != DefaultLanguage {
			catalog.languages = append(catalog.languages, code)
		}
	}
	sort.Strings(catalog.languages)
	catalog.languages = append([]string{DefaultLanguage}, catalog.languages...)
	tags := make([]language.Tag, len(catalog.languages))
	for i, code := range catalog.languages {
		tags[i] = language.Make(code)
	}
	catalog.matcher = language.NewMatcher(tags)
	return catalog, nil
}

func parseMessages(code string, messages map[string]string) (map[string]*template.Template, error) {
	parsed := make(map[string]*template.Template, len(messages))
	for key, source := range messages {
		if strings.TrimSpace(source) == "" {
			continue
		}
		tpl, err := template.New(code + ":" + key).Option("missingkey=error").Parse(source)
		if err != nil {
			return nil, risk.ConfigurationError("translation %s/%s: %v", code, key, err)
		}
		if err := tpl.Execute(io.Discard, sampleData); err != nil {
			return nil, risk.ConfigurationError("translation %s/%s: %v", code, key, err)
		}
		parsed[key] = tpl
	}
	return parsed, nil
}

// Languages lists supported codes, default first.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.languages))
	copy(out, c.languages)
	return out
}

// Resolve maps a requested code such as "hi-IN" onto a supported language.
// Unsupported codes resolve to the default language with ok=false. Only
// High or Exact matches count, so "ur" is not served as English nor "sa" as Hindi.
func (c *Catalog) Resolve(code string) (string, bool) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return DefaultLanguage, false
	}
	_, index, confidence := c.matcher.Match(tag)
	if confidence < language.High {
		return DefaultLanguage, false
	}
	return c.languages[index], true
}

func (c *Catalog) lookup(code, key string) (*template.Template, bool) {
	tpl, ok := c.entries[code][key]
	return tpl, ok
}

// Message keys outside the statement, sensor, band, level and action families.
const (
	KeyAlertHeader      = "alert.header"
	KeySystemName       = "system.name"
	KeyLabelSite        = "label.site"
	KeyLabelRisk        = "label.risk"
	KeyLabelScore       = "label.score"
	KeyLabelConfidence  = "label.confidence"
	KeyLabelTime        = "label.time"
	KeyLabelActions     = "label.actions"
	KeyLabelFactors     = "label.factors"
	KeyStatementSupport = "statement.supporting"
	KeyFactorLine       = "factor.line"
	KeyFactorPair       = "factor.pair"
)

// RequiredKeys lists every key the default language must define.
func RequiredKeys() []string {
	keys := []string{
		KeyAlertHeader, KeySystemName, KeyLabelSite, KeyLabelRisk, KeyLabelScore,
		KeyLabelConfidence, KeyLabelTime, KeyLabelActions, KeyLabelFactors,
		risk.StatementViolation, risk.StatementGeneric, KeyStatementSupport,
		KeyFactorLine, KeyFactorPair,
	}
	for _, level := range risk.Levels {
		keys = append(keys, levelKey(level))
	}
	for b := risk.BandNormal; b <= risk.BandCritical; b++ {
		keys = append(keys, bandKey(b))
	}
	for _, sensor := range risk.KnownSensors() {
		keys = append(keys, sensorKey(sensor))
	}
	for _, action := range risk.ActionKeys() {
		keys = append(keys, actionKey(action))
	}
	return keys
}

func levelKey(level risk.RiskLevel) string { return "level." + string(level) }

func bandKey(b risk.Band) string { return "band." + b.String() }

func sensorKey(sensor string) string { return "sensor." + sensor }

func actionKey(action string) string { return "action." + action }

// sampleData carries every field a template may reference.
var sampleData = map[string]any{
	"Level":     "HIGH",
	"Sensor":    "vibration",
	"Value":     "8.2 Hz",
	"Threshold": "7.5 Hz",
	"Band":      "critical",
	"Percent":   "9.3",
	"Factors":   "acoustic (high)",
	"Score":     "3",
	"Site":      "site",
}

