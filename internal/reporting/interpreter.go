package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/statistics"
)

const marginSeed = 42

// InterpretScore returns a plain-language label for a numeric score (0–1).
func InterpretScore(score float64) string {
	pct := score * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// InterpretFailures explains how many claims a strategy could not decide.
func InterpretFailures(failures, claims int) string {
	switch {
	case claims == 0:
		return "No claims were evaluated."
	case failures == 0:
		return "Every claim produced a decision."
	case failures == claims:
		return fmt.Sprintf("Every claim failed (%d of %d); all were escalated by the fail-safe path.", failures, claims)
	default:
		return fmt.Sprintf("%d of %d claims failed and were escalated by the fail-safe path.", failures, claims)
	}
}

// InterpretInterval describes how wide the exact-match confidence interval is.
func InterpretInterval(ci *models.ConfidenceInterval) string {
	if ci == nil {
		return "Too few claims for a confidence interval."
	}
	width := ci.Upper - ci.Lower
	label := "narrow"
	if width > 0.3 {
		label = "wide; evaluate more claims before trusting the ranking"
	} else if width > 0.1 {
		label = "moderate"
	}
	return fmt.Sprintf("%.0f%% CI for exact match: [%.2f, %.2f] (%s)", ci.ConfidenceLevel*100, ci.Lower, ci.Upper, label)
}

// InterpretMargin compares the best strategy with the runner-up on paired
// per-claim exact matches. It returns "" when there is nothing to compare.
func InterpretMargin(report *models.ComparisonReport) string {
	if len(report.Ranking) < 2 {
		return ""
	}
	best := report.Results[report.Ranking[0].Strategy]
	next := report.Results[report.Ranking[1].Strategy]
	if len(best.Predictions) < 2 || len(best.Predictions) != len(next.Predictions) {
		return ""
	}

	ci := statistics.PairedDifferenceCI(
		statistics.ExactMatches(next.Predictions),
		statistics.ExactMatches(best.Predictions),
		0.95, marginSeed)
	verdict := "not significant, the order could flip on another sample"
	if statistics.IsSignificant(ci) {
		verdict = "significant"
	}
	return fmt.Sprintf("%s vs %s: exact match %+.2f, 95%% CI [%+.2f, %+.2f] (%s)",
		best.Strategy, next.Strategy, ci.Mean, ci.Lower, ci.Upper, verdict)
}

// FormatSummaryReport produces a plain-language report from a comparison.
func FormatSummaryReport(report *models.ComparisonReport) string {
	var b strings.Builder

	duration := time.Duration(report.DurationMs) * time.Millisecond

	b.WriteString("=== Interpretation ===\n\n")
	fmt.Fprintf(&b, "Claims:        %d\n", report.Claims)
	fmt.Fprintf(&b, "Strategies:    %d\n", len(report.Results))
	fmt.Fprintf(&b, "Duration:      %v\n", duration)
	if report.Cancelled {
		b.WriteString("Status:        stopped early; unrun claims were scored as failures\n")
	}

	if best, ok := report.Best(); ok {
		fmt.Fprintf(&b, "Best Strategy: %s (%.3f, %s)\n", best.Strategy, best.Composite, InterpretScore(best.Composite))
	}
	if m := InterpretMargin(report); m != "" {
		fmt.Fprintf(&b, "Margin:        %s\n", m)
	}

	if len(report.Ranking) > 0 {
		b.WriteString("\nPer-Strategy Interpretation:\n")
		for _, r := range report.Ranking {
			res := report.Results[r.Strategy]
			icon := "✓"
			if res.Composite < 0.5 || res.Failures > 0 {
				icon = "✗"
			}
			fmt.Fprintf(&b, "  %s %s: %.3f — %s\n", icon, r.Strategy, res.Composite, InterpretScore(res.Composite))
			fmt.Fprintf(&b, "    Severity accuracy %.1f%%, action accuracy %.1f%%\n", res.Severity.Accuracy*100, res.Action.Accuracy*100)
			fmt.Fprintf(&b, "    %s\n", InterpretFailures(res.Failures, res.Claims))
			fmt.Fprintf(&b, "    %s\n", InterpretInterval(res.ExactMatchCI))
		}
	}

	return b.String()
}
