package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/localization"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/routing"
	"github.com/yanqian/rockwatch/internal/domain/site"
	"github.com/yanqian/rockwatch/internal/infra/config"
	"github.com/yanqian/rockwatch/internal/infra/modeladapter/logistic"
	"github.com/yanqian/rockwatch/internal/infra/siteregistry"
	"github.com/yanqian/rockwatch/internal/infra/thresholdfile"
)

// readingsFile is the on-disk input of the evaluate command.
type readingsFile struct {
	Site      string             `yaml:"site"`
	Name      string             `yaml:"name"`
	Region    string             `yaml:"region"`
	Languages []string           `yaml:"languages"`
	Readings  map[string]float64 `yaml:"readings"`
}

func newEvaluateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a readings file and print the localized alerts",
		Long: `Evaluate runs one assessment over a YAML or JSON readings file:

  site: jh-01
  region: JHARKHAND
  readings:
    vibration: 8.2
    acoustic: 96.4

Languages default to the file, then to the site region.`,
		Args: cobra.NoArgs,
		RunE: runEvaluate,
	}
	cmd.Flags().String("readings", "", "Path to the readings file (required)")
	cmd.Flags().String("site", "", "Site id, overrides the file")
	cmd.Flags().StringSlice("lang", nil, "Alert languages, e.g. en,hi")
	cmd.Flags().String("thresholds", "", "Threshold table file; defaults to the built-in table")
	cmd.Flags().Bool("rules-only", false, "Skip the local logistic model")
	cmd.Flags().String("format", "json", "Output format: json | text")
	_ = cmd.MarkFlagRequired("readings")
	return cmd
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("readings")
	input, err := loadReadingsFile(path)
	if err != nil {
		return err
	}
	if id, _ := cmd.Flags().GetString("site"); id != "" {
		input.Site = id
	}
	if langs, _ := cmd.Flags().GetStringSlice("lang"); len(langs) > 0 {
		input.Languages = langs
	}
	if input.Site == "" {
		input.Site = "adhoc"
	}

	thresholds, _ := cmd.Flags().GetString("thresholds")
	rulesOnly, _ := cmd.Flags().GetBool("rules-only")
	pipeline, err := buildPipeline(cmd, thresholds, rulesOnly)
	if err != nil {
		return err
	}

	s := site.Site{ID: input.Site, Name: input.Name, Region: input.Region, Languages: input.Languages}
	if s.Name == "" {
		s.Name = s.ID
	}
	if len(s.Languages) == 0 {
		s.Languages = siteregistry.LanguagesFor(s.Region)
	}

	bundle, err := pipeline.Run(cmd.Context(), s, risk.Readings(input.Readings))
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	return writeBundle(cmd.OutOrStdout(), bundle, format)
}

func loadReadingsFile(path string) (readingsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return readingsFile{}, fmt.Errorf("read readings file: %w", err)
	}
	var input readingsFile
	if err := yaml.Unmarshal(data, &input); err != nil {
		return readingsFile{}, fmt.Errorf("parse readings file: %w", err)
	}
	normalized := make(map[string]float64, len(input.Readings))
	for name, v := range input.Readings {
		normalized[strings.ToLower(strings.TrimSpace(name))] = v
	}
	input.Readings = normalized
	return input, nil
}

// buildPipeline assembles an offline pipeline. The remote model is never
// consulted here.
func buildPipeline(cmd *cobra.Command, thresholdsPath string, rulesOnly bool) (*evaluation.Pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := commandLogger(cmd)

	table, err := thresholdfile.Load(thresholdsPath)
	if err != nil {
		return nil, err
	}
	var adapters []risk.ModelAdapter
	if secondary := cfg.Models.Secondary; !rulesOnly && secondary.Enabled && len(secondary.Coefficients) > 0 {
		adapters = append(adapters, logistic.NewModel(logistic.Config{
			Intercept:    secondary.Intercept,
			Coefficients: secondary.Coefficients,
		}))
	}
	orchestrator, err := risk.NewOrchestrator(table, adapters,
		risk.ClassifierConfig{HighThreshold: cfg.Risk.HighThreshold, MediumThreshold: cfg.Risk.MediumThreshold},
		risk.NewEstimator(risk.ConfidenceConfig{
			CoveragePerSensor: cfg.Risk.Confidence.CoveragePerSensor,
			CoverageWeight:    cfg.Risk.Confidence.CoverageWeight,
			AgreementWeight:   cfg.Risk.Confidence.AgreementWeight,
			FallbackCeiling:   cfg.Risk.Confidence.FallbackCeiling,
		}), log)
	if err != nil {
		return nil, err
	}
	catalog, err := localization.BuiltinCatalog()
	if err != nil {
		return nil, err
	}
	router, err := routing.NewRouter(routing.DefaultTable())
	if err != nil {
		return nil, err
	}
	return evaluation.NewPipeline(orchestrator, risk.NewAssembler(table), localization.NewRenderer(catalog, log), router), nil
}

func writeBundle(w io.Writer, bundle evaluation.Bundle, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	case "text":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	a := bundle.Assessment
	fmt.Fprintf(w, "level=%s score=%s confidence=%s%% model=%s\n",
		a.Level, risk.FormatNumber(a.Score, 2), risk.FormatNumber(a.Confidence, 0), a.ModelUsed)
	groups := make([]string, len(bundle.Groups))
	for i, g := range bundle.Groups {
		groups[i] = string(g)
	}
	fmt.Fprintf(w, "notify=%s channels=%s\n", strings.Join(groups, ","), strings.Join(bundle.Channels, ","))
	for _, alert := range bundle.Alerts {
		fmt.Fprintf(w, "\n[%s]\n%s\n", alert.Language, alert.Body)
	}
	return nil
}
