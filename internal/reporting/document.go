package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// Markdown renders the report as a GitHub-flavoured markdown document.
func Markdown(report *models.ComparisonReport) string {
	var b strings.Builder

	b.WriteString("# Claim Triage Strategy Comparison\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- Timestamp: %s\n", report.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- Claims: %d\n", report.Claims)
	if report.BestStrategy != "" {
		fmt.Fprintf(&b, "- Best strategy: **%s**\n", report.BestStrategy)
	}
	if report.Cancelled {
		b.WriteString("- Status: stopped early\n")
	}

	b.WriteString("\n## Ranking\n\n")
	b.WriteString("| Rank | Strategy | Severity Acc | Severity F1 | Action Acc | Action F1 | Failures | Avg Latency (s) | Overall |\n")
	b.WriteString("|---:|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, r := range report.Ranking {
		res := report.Results[r.Strategy]
		fmt.Fprintf(&b, "| %d | %s | %.3f | %.3f | %.3f | %.3f | %d | %.3f | %.3f |\n",
			r.Rank, escapeCell(r.Strategy), res.Severity.Accuracy, res.Severity.F1,
			res.Action.Accuracy, res.Action.F1, res.Failures, res.MeanLatencySeconds, res.Composite)
	}

	for _, name := range strategyOrder(report) {
		res := report.Results[name]
		fmt.Fprintf(&b, "\n## %s\n\n", name)
		if res.ExactMatchCI != nil {
			fmt.Fprintf(&b, "%s\n\n", InterpretInterval(res.ExactMatchCI))
		}
		b.WriteString("### Severity confusion matrix\n\n")
		writeMarkdownMatrix(&b, res.SeverityConfusion)
		b.WriteString("\n### Action confusion matrix\n\n")
		writeMarkdownMatrix(&b, res.ActionConfusion)
	}
	return b.String()
}

func writeMarkdownMatrix(b *strings.Builder, m models.ConfusionMatrix) {
	b.WriteString("| true \\ predicted |")
	for _, l := range m.Labels {
		fmt.Fprintf(b, " %s |", l)
	}
	b.WriteString("\n|---|")
	b.WriteString(strings.Repeat("---:|", len(m.Labels)))
	b.WriteString("\n")
	for i, l := range m.Labels {
		fmt.Fprintf(b, "| %s |", l)
		for _, n := range m.Counts[i] {
			fmt.Fprintf(b, " %d |", n)
		}
		b.WriteString("\n")
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// HTML renders the markdown report into a standalone HTML page.
func HTML(report *models.ComparisonReport) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(report)), &body); err != nil {
		return nil, fmt.Errorf("rendering HTML report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>Claim triage run %s</title>\n", html.EscapeString(report.RunID))
	page.WriteString("<style>body{font-family:sans-serif;max-width:960px;margin:2em auto}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report *models.ComparisonReport) error {
	return writeIndented(w, report)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return nil
}

// LoadReport reads a report written by WriteJSON.
func LoadReport(path string) (*models.ComparisonReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report models.ComparisonReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if report.Results == nil {
		return nil, fmt.Errorf("%s is not a comparison report: no results", path)
	}
	return &report, nil
}
