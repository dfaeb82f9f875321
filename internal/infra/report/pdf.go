package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/risk"
)

// ContentType is the MIME type of rendered reports.
const ContentType = "application/pdf"

// BuildPDF renders the default-language explanation of a bundle. Core PDF
// fonts only cover Latin-1, so localized bodies stay in the JSON archive.
func BuildPDF(b evaluation.Bundle) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Rockfall risk report "+b.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Rockfall Risk Report")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	name := b.Site.Name
	if name == "" {
		name = b.Site.ID
	}
	lines := []string{
		fmt.Sprintf("Site: %s (%s)", name, b.Site.ID),
		fmt.Sprintf("Assessment: %s", b.ID),
		fmt.Sprintf("Generated: %s", b.CreatedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("Risk level: %s", b.Assessment.Level),
		fmt.Sprintf("Risk score: %s", risk.FormatNumber(b.Assessment.Score, 3)),
		fmt.Sprintf("Confidence: %s%%", risk.FormatNumber(b.Assessment.Confidence, 0)),
		fmt.Sprintf("Model: %s", b.Assessment.ModelUsed),
	}
	for _, line := range lines {
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Summary")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, tr(b.Explanation.PrimaryStatement), "", "L", false)
	pdf.Ln(3)

	if len(b.Explanation.Factors) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 6, "Sensor", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, "Value", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Band", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Contribution", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "vs. normal", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, f := range b.Explanation.Factors {
			pdf.CellFormat(50, 6, tr(risk.SensorLabel(f.Sensor)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, tr(risk.FormatValue(f.Value, f.Unit)), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, f.Band.String(), "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 6, risk.FormatNumber(f.Score, 2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, deviation(f), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	if len(b.Explanation.Violations) > 0 {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, "Threshold violations")
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 10)
		for _, v := range b.Explanation.Violations {
			line := fmt.Sprintf("%s: %s over %s threshold %s (+%s%%)", risk.SensorLabel(v.Sensor),
				risk.FormatValue(v.Value, v.Unit), v.Severity, risk.FormatValue(v.Threshold, v.Unit),
				risk.FormatNumber(v.PercentExceeded, 1))
			pdf.Cell(0, 6, tr(line))
			pdf.Ln(5)
		}
		pdf.Ln(3)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Recommended actions")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	for _, rec := range b.Explanation.Recommendations {
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("%d. %s", rec.Rank, rec.Text)), "", "L", false)
	}

	if len(b.Groups) > 0 {
		pdf.Ln(3)
		groups := ""
		for i, g := range b.Groups {
			if i > 0 {
				groups += ", "
			}
			groups += string(g)
		}
		pdf.Cell(0, 6, "Notified: "+groups)
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deviation(f risk.ContributingFactor) string {
	if f.Baseline == 0 {
		return "-"
	}
	sign := ""
	if f.DeviationPercent > 0 {
		sign = "+"
	}
	return sign + risk.FormatNumber(f.DeviationPercent, 1) + "%"
}
