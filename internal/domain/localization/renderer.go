package localization

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/pkg/metrics"
)

var errEmptyMessage = errors.New("empty message")

// AlertContext carries the site details printed in an alert.
type AlertContext struct {
	SiteID   string
	SiteName string
}

// LocalizedAlert is an explanation rendered in one language.
type LocalizedAlert struct {
	Language         string   `json:"language"`
	Header           string   `json:"header"`
	RiskLevel        string   `json:"riskLevel"`
	PrimaryStatement string   `json:"primaryStatement"`
	Factors          []string `json:"factors"`
	Recommendations  []string `json:"recommendations"`
	Body             string   `json:"body"`
}

// Renderer turns explanations into localized alerts. Missing translations
// fall back to the default language key by key and are reported once.
type Renderer struct {
	catalog  *Catalog
	logger   *slog.Logger
	reported sync.Map
}

// NewRenderer builds a renderer over catalog.
func NewRenderer(catalog *Catalog, logger *slog.Logger) *Renderer {
	return &Renderer{catalog: catalog, logger: logger.With("component", "localization.renderer")}
}

// Catalog exposes the loaded translations.
func (r *Renderer) Catalog() *Catalog {
	return r.catalog
}

// Render produces one alert per distinct resolved language, in request order.
// An empty request renders the default language.
func (r *Renderer) Render(exp risk.Explanation, assessment risk.RiskAssessment, alert AlertContext, languages []string) []LocalizedAlert {
	if len(languages) == 0 {
		languages = []string{DefaultLanguage}
	}
	seen := make(map[string]bool, len(languages))
	out := make([]LocalizedAlert, 0, len(languages))
	for _, requested := range languages {
		code, ok := r.catalog.Resolve(requested)
		if !ok {
			r.logger.Warn("unsupported alert language, using default", "requested", requested, "language", code)
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, r.renderOne(code, exp, assessment, alert))
	}
	return out
}

func (r *Renderer) renderOne(code string, exp risk.Explanation, assessment risk.RiskAssessment, alert AlertContext) LocalizedAlert {
	t := translator{renderer: r, code: code}
	level := t.level(assessment.Level)

	localized := LocalizedAlert{
		Language:         code,
		Header:           t.text(KeyAlertHeader, nil, "ROCKFALL RISK ALERT"),
		RiskLevel:        level,
		PrimaryStatement: t.statement(exp.Statement, exp.PrimaryStatement),
	}
	for _, f := range exp.Factors {
		data := map[string]any{
			"Sensor": t.sensor(f.Sensor),
			"Value":  risk.FormatValue(f.Value, f.Unit),
			"Band":   t.band(f.Band),
			"Score":  risk.FormatNumber(f.Score, 1),
		}
		localized.Factors = append(localized.Factors, t.text(KeyFactorLine, data, fmt.Sprintf("%s: %s", f.Sensor, data["Value"])))
	}
	for _, rec := range exp.Recommendations {
		data := map[string]any{"Sensor": ""}
		if len(rec.Targets) > 0 {
			data["Sensor"] = t.sensor(rec.Targets[0])
		}
		localized.Recommendations = append(localized.Recommendations, t.text(actionKey(rec.ActionKey), data, rec.Text))
	}
	localized.Body = t.body(localized, assessment, alert)
	return localized
}

func (r *Renderer) reportGap(code, key string) {
	if _, loaded := r.reported.LoadOrStore(code+"/"+key, struct{}{}); loaded {
		return
	}
	metrics.IncTranslationGap(code)
	r.logger.Warn("translation gap, using default language", "code", risk.CodeTranslationGap, "language", code, "key", key)
}

type translator struct {
	renderer *Renderer
	code     string
}

// text renders key in the translator language, then the default language,
// then returns fallback. It never returns an empty string when fallback is set.
func (t translator) text(key string, data map[string]any, fallback string) string {
	catalog := t.renderer.catalog
	if tpl, ok := catalog.lookup(t.code, key); ok {
		if out, err := execute(tpl, data); err == nil {
			return out
		}
	}
	if t.code != DefaultLanguage {
		t.renderer.reportGap(t.code, key)
	}
	if tpl, ok := catalog.lookup(DefaultLanguage, key); ok {
		if out, err := execute(tpl, data); err == nil {
			return out
		}
	}
	return fallback
}

func (t translator) level(level risk.RiskLevel) string {
	return t.text(levelKey(level), nil, string(level))
}

func (t translator) band(b risk.Band) string {
	return t.text(bandKey(b), nil, b.String())
}

func (t translator) sensor(sensor string) string {
	return t.text(sensorKey(sensor), nil, risk.SensorLabel(sensor))
}

func (t translator) statement(s risk.Statement, fallback string) string {
	level := t.level(s.Level)
	if s.Key != risk.StatementViolation || s.Violation == nil {
		return t.text(risk.StatementGeneric, map[string]any{"Level": level}, fallback)
	}
	v := s.Violation
	text := t.text(risk.StatementViolation, map[string]any{
		"Level":     level,
		"Sensor":    t.sensor(v.Sensor),
		"Value":     risk.FormatValue(v.Value, v.Unit),
		"Threshold": risk.FormatValue(v.Threshold, v.Unit),
		"Band":      t.band(v.Severity),
		"Percent":   risk.FormatNumber(v.PercentExceeded, 1),
	}, fallback)
	if len(s.Supporting) == 0 {
		return text
	}
	pairs := make([]string, len(s.Supporting))
	for i, f := range s.Supporting {
		pairs[i] = t.text(KeyFactorPair, map[string]any{"Sensor": t.sensor(f.Sensor), "Band": t.band(f.Band)}, f.Sensor)
	}
	supporting := t.text(KeyStatementSupport, map[string]any{"Factors": strings.Join(pairs, ", ")}, "")
	if supporting == "" {
		return text
	}
	return text + " " + supporting
}

func (t translator) body(alert LocalizedAlert, assessment risk.RiskAssessment, site AlertContext) string {
	name := site.SiteName
	if name == "" {
		name = site.SiteID
	}
	var b strings.Builder
	b.WriteString(alert.Header)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%s: %s\n", t.text(KeyLabelSite, nil, "Site"), name)
	fmt.Fprintf(&b, "%s: %s (%s %s)\n", t.text(KeyLabelRisk, nil, "Risk"), alert.RiskLevel,
		t.text(KeyLabelScore, nil, "score"), risk.FormatNumber(assessment.Score, 2))
	fmt.Fprintf(&b, "%s: %s%%\n", t.text(KeyLabelConfidence, nil, "Confidence"), risk.FormatNumber(assessment.Confidence, 0))
	fmt.Fprintf(&b, "%s: %s\n", t.text(KeyLabelTime, nil, "Time"), assessment.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString(alert.PrimaryStatement)
	b.WriteByte('\n')
	if len(alert.Recommendations) > 0 {
		fmt.Fprintf(&b, "%s:\n", t.text(KeyLabelActions, nil, "Actions"))
		for i, rec := range alert.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
	}
	fmt.Fprintf(&b, "- %s", t.text(KeySystemName, nil, "Rockwatch"))
	return b.String()
}

func execute(tpl *template.Template, data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return "", errEmptyMessage
	}
	return out, nil
}
