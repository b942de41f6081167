package reporting

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// StrategyDelta tracks one strategy's overall score across runs. Runs that
// did not include the strategy hold NaN.
type StrategyDelta struct {
	Strategy string    `json:"strategy"`
	Scores   []float64 `json:"scores"`
	Delta    float64   `json:"delta"`
}

// Comparison lines up several saved reports, oldest first.
type Comparison struct {
	Files      []string        `json:"files"`
	RunIDs     []string        `json:"run_ids"`
	Claims     []int           `json:"claims"`
	Best       []string        `json:"best_strategies"`
	Strategies []StrategyDelta `json:"strategies"`
}

// jsonSafe replaces NaN, which JSON cannot encode: missing scores become -1
// and undefined deltas 0.
func (c *Comparison) jsonSafe() *Comparison {
	out := *c
	out.Strategies = make([]StrategyDelta, len(c.Strategies))
	for i, s := range c.Strategies {
		scores := make([]float64, len(s.Scores))
		for j, v := range s.Scores {
			if math.IsNaN(v) {
				v = -1
			}
			scores[j] = v
		}
		delta := s.Delta
		if math.IsNaN(delta) {
			delta = 0
		}
		out.Strategies[i] = StrategyDelta{Strategy: s.Strategy, Scores: scores, Delta: delta}
	}
	return &out
}

// Compare builds a comparison across reports. files names each report.
func Compare(files []string, reports []*models.ComparisonReport) (*Comparison, error) {
	if len(reports) < 2 {
		return nil, fmt.Errorf("need at least two reports to compare, got %d", len(reports))
	}
	if len(files) != len(reports) {
		return nil, fmt.Errorf("got %d names for %d reports", len(files), len(reports))
	}

	c := &Comparison{Files: files}
	var order []string
	seen := map[string]bool{}
	for _, r := range reports {
		c.RunIDs = append(c.RunIDs, r.RunID)
		c.Claims = append(c.Claims, r.Claims)
		c.Best = append(c.Best, r.BestStrategy)
		for _, name := range strategyOrder(r) {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
		}
	}

	n := len(reports)
	for _, name := range order {
		d := StrategyDelta{Strategy: name}
		for _, r := range reports {
			if res, ok := r.Results[name]; ok {
				d.Scores = append(d.Scores, res.Composite)
			} else {
				d.Scores = append(d.Scores, math.NaN())
			}
		}
		d.Delta = d.Scores[n-1] - d.Scores[0]
		c.Strategies = append(c.Strategies, d)
	}
	return c, nil
}

// WriteComparisonTable prints the comparison with a delta column.
func WriteComparisonTable(w io.Writer, c *Comparison) {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintln(w, " COMPARISON REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintln(w)

	for i, f := range c.Files {
		fmt.Fprintf(w, "  [%d] %s  (%d claims, best: %s)\n", i+1, f, c.Claims[i], c.Best[i])
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s", padRight("Strategy", 22))
	for i := range c.Files {
		fmt.Fprintf(w, "  %s", padRight(fmt.Sprintf("[%d]", i+1), 9))
	}
	fmt.Fprintln(w, "  Delta")

	for _, s := range c.Strategies {
		fmt.Fprintf(w, "  %s", padRight(truncateName(s.Strategy, 22), 22))
		for _, v := range s.Scores {
			if math.IsNaN(v) {
				fmt.Fprintf(w, "  %-9s", "n/a")
			} else {
				fmt.Fprintf(w, "  %-9.4f", v)
			}
		}
		switch {
		case math.IsNaN(s.Delta):
			fmt.Fprintln(w, "  n/a")
		case s.Delta > 0:
			fmt.Fprintf(w, "  ↑%+.4f\n", s.Delta)
		case s.Delta < 0:
			fmt.Fprintf(w, "  ↓%+.4f\n", s.Delta)
		default:
			fmt.Fprintf(w, "   %+.4f\n", s.Delta)
		}
	}
	fmt.Fprintln(w)
}

// WriteComparisonJSON writes the comparison as JSON. Missing scores are -1.
func WriteComparisonJSON(w io.Writer, c *Comparison) error {
	return writeIndented(w, c.jsonSafe())
}
