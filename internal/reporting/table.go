// Package reporting renders comparison reports for terminals, documents
// and CI systems.
package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

const ruleWidth = 86

var bestStyle = color.New(color.FgGreen, color.Bold)

// WriteTable writes the ranked comparison table. The best strategy is
// highlighted when w is a colour terminal.
func WriteTable(w io.Writer, report *models.ComparisonReport) {
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
	fmt.Fprintln(w, " STRATEGY COMPARISON")
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
	fmt.Fprintf(w, "  Run %s  ·  %d claims  ·  %d strategies\n", report.RunID, report.Claims, len(report.Results))
	if report.Cancelled {
		fmt.Fprintln(w, "  (stopped early)")
	}
	fmt.Fprintln(w)

	header := []string{"#", "Strategy", "Sev Acc", "Sev F1", "Act Acc", "Act F1", "Fail", "Avg Lat", "Overall"}
	widths := []int{3, 22, 8, 8, 8, 8, 5, 9, 8}
	writeRow(w, header, widths)
	fmt.Fprintln(w, "  "+strings.Repeat("-", ruleWidth-2))

	for _, r := range report.Ranking {
		res := report.Results[r.Strategy]
		row := []string{
			fmt.Sprintf("%d", r.Rank),
			truncateName(r.Strategy, widths[1]),
			pct(res.Severity.Accuracy),
			fmt.Sprintf("%.3f", res.Severity.F1),
			pct(res.Action.Accuracy),
			fmt.Sprintf("%.3f", res.Action.F1),
			fmt.Sprintf("%d", res.Failures),
			fmt.Sprintf("%.3fs", res.MeanLatencySeconds),
			fmt.Sprintf("%.3f", res.Composite),
		}
		if r.Strategy == report.BestStrategy {
			fmt.Fprint(w, bestStyle.Sprint(formatRow(row, widths)))
			fmt.Fprintln(w)
			continue
		}
		writeRow(w, row, widths)
	}
	fmt.Fprintln(w)

	if report.BestStrategy != "" {
		fmt.Fprintf(w, "  Best strategy: %s\n", bestStyle.Sprint(report.BestStrategy))
	}
}

// WriteConfusion writes both confusion matrices for one strategy.
func WriteConfusion(w io.Writer, res models.EvaluationResult) {
	fmt.Fprintln(w, strings.Repeat("-", ruleWidth))
	fmt.Fprintf(w, " %s\n", res.Strategy)
	fmt.Fprintln(w, strings.Repeat("-", ruleWidth))
	writeMatrix(w, "Severity", res.SeverityConfusion)
	fmt.Fprintln(w)
	writeMatrix(w, "Action", res.ActionConfusion)
	fmt.Fprintln(w)
}

func writeMatrix(w io.Writer, title string, m models.ConfusionMatrix) {
	const cell = 12
	cols := append([]string{title + " ↓/→"}, m.Labels...)
	widths := make([]int, len(cols))
	for i := range widths {
		widths[i] = cell
	}
	widths[0] = 16
	writeRow(w, cols, widths)
	for i, label := range m.Labels {
		row := []string{label}
		for _, n := range m.Counts[i] {
			row = append(row, fmt.Sprintf("%d", n))
		}
		writeRow(w, row, widths)
	}
}

func writeRow(w io.Writer, cells []string, widths []int) {
	fmt.Fprintln(w, formatRow(cells, widths))
}

func formatRow(cells []string, widths []int) string {
	var b strings.Builder
	b.WriteString("  ")
	for i, c := range cells {
		b.WriteString(padRight(c, widths[i]))
		if i < len(cells)-1 {
			b.WriteString(" ")
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func truncateName(name string, maxLen int) string {
	if runewidth.StringWidth(name) <= maxLen {
		return name
	}
	return runewidth.Truncate(name, maxLen, "…")
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
