package notify

import (
	"bytes"
	"errors"
	"strings"
	"text/template"
	"time"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/localization"
)

// DefaultTemplate prints every localized body, separated by a blank line.
const DefaultTemplate = `[{{.Level}}] {{.Site}}
{{range $i, $a := .Alerts}}{{if $i}}
{{end}}{{$a.Body}}
{{end}}{{if .ReportURL}}
Report: {{.ReportURL}}
{{end}}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	BundleID  string
	Site      string
	SiteID    string
	Level     string
	Score     float64
	Groups    string
	CreatedAt string
	Alerts    []localization.LocalizedAlert
	ReportURL string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("alert-notification").Option("missingkey=error").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildTemplateData(d evaluation.Delivery, reportURL string) TemplateData {
	site := d.SiteName
	if site == "" {
		site = d.SiteID
	}
	groups := make([]string, len(d.Groups))
	for i, g := range d.Groups {
		groups[i] = string(g)
	}
	return TemplateData{
		BundleID:  d.BundleID,
		Site:      site,
		SiteID:    d.SiteID,
		Level:     string(d.Level),
		Score:     d.Score,
		Groups:    strings.Join(groups, ", "),
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
		Alerts:    d.Alerts,
		ReportURL: reportURL,
	}
}
