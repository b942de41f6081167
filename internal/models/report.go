package models

import "time"

// LabelUnknown is the confusion-matrix label for predictions outside the
// fixed vocabulary.
const LabelUnknown = "unknown"

// Prediction is one strategy's output for one claim, paired with the truth.
type Prediction struct {
	ClaimID        string   `json:"claim_id"`
	TrueSeverity   Severity `json:"true_severity"`
	TrueAction     Action   `json:"true_action"`
	PredSeverity   Severity `json:"pred_severity"`
	PredAction     Action   `json:"pred_action"`
	Rationale      string   `json:"rationale,omitempty"`
	LatencySeconds float64  `json:"latency_seconds"`
	Success        bool     `json:"success"`
	Cached         bool     `json:"cached,omitempty"`
}

// Correct reports whether both labels match the truth.
func (p Prediction) Correct() bool {
	return p.PredSeverity == p.TrueSeverity && p.PredAction == p.TrueAction
}

// ClassificationScores holds accuracy and support-weighted precision,
// recall and F1 for one label dimension.
type ClassificationScores struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
}

// ConfusionMatrix is a square count matrix. Rows are true labels, columns
// are predicted labels, both in Labels order.
type ConfusionMatrix struct {
	Labels []string `json:"labels"`
	Counts [][]int  `json:"counts"`
}

// Total sums every cell.
func (m ConfusionMatrix) Total() int {
	total := 0
	for _, row := range m.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// ConfidenceInterval is a bootstrap interval over a per-claim statistic.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// EvaluationResult is the scored outcome of one strategy over a batch.
type EvaluationResult struct {
	Strategy           string               `json:"strategy"`
	Claims             int                  `json:"claims"`
	Failures           int                  `json:"failures"`
	Severity           ClassificationScores `json:"severity"`
	Action             ClassificationScores `json:"action"`
	SeverityConfusion  ConfusionMatrix      `json:"severity_confusion_matrix"`
	ActionConfusion    ConfusionMatrix      `json:"action_confusion_matrix"`
	MeanLatencySeconds float64              `json:"avg_latency_seconds"`
	P95LatencySeconds  float64              `json:"p95_latency_seconds"`
	ExactMatchCI       *ConfidenceInterval  `json:"exact_match_ci,omitempty"`
	Composite          float64              `json:"overall_score"`
	DurationMs         int64                `json:"duration_ms"`
	Predictions        []Prediction         `json:"predictions,omitempty"`
}

// RankedStrategy is one row of the comparison ranking.
type RankedStrategy struct {
	Rank      int     `json:"rank"`
	Strategy  string  `json:"strategy"`
	Composite float64 `json:"overall_score"`
}

// ComparisonReport is the cross-strategy report produced by the harness.
type ComparisonReport struct {
	RunID        string                      `json:"run_id"`
	Timestamp    time.Time                   `json:"timestamp"`
	Claims       int                         `json:"claims"`
	Results      map[string]EvaluationResult `json:"results"`
	Ranking      []RankedStrategy            `json:"ranking"`
	BestStrategy string                      `json:"best_strategy"`
	DurationMs   int64                       `json:"duration_ms"`
	// Cancelled is set when the run stopped early; unrun claims are
	// scored as fail-safe predictions.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Best returns the result for the best strategy, if any.
func (r *ComparisonReport) Best() (EvaluationResult, bool) {
	res, ok := r.Results[r.BestStrategy]
	return res, ok
}
