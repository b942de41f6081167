package reporting

import (
	"time"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

func pred(id string, ts, ps models.Severity, ta, pa models.Action, ok bool) models.Prediction {
	return models.Prediction{
		ClaimID: id, TrueSeverity: ts, PredSeverity: ps, TrueAction: ta, PredAction: pa,
		LatencySeconds: 0.25, Success: ok,
	}
}

func matrix(counts [][]int) models.ConfusionMatrix {
	return models.ConfusionMatrix{Labels: []string{"low", "high", "unknown"}, Counts: counts}
}

func sampleReport() *models.ComparisonReport {
	return &models.ComparisonReport{
		RunID:     "run-1",
		Timestamp: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Claims:    3,
		Results: map[string]models.EvaluationResult{
			"rule_based": {
				Strategy: "rule_based", Claims: 3, Composite: 0.9,
				Severity:          models.ClassificationScores{Accuracy: 1, F1: 1},
				Action:            models.ClassificationScores{Accuracy: 0.667, F1: 0.6},
				SeverityConfusion: matrix([][]int{{2, 0, 0}, {0, 1, 0}, {0, 0, 0}}),
				ActionConfusion:   matrix([][]int{{1, 1, 0}, {0, 1, 0}, {0, 0, 0}}),
				ExactMatchCI:      &models.ConfidenceInterval{Lower: 0.33, Upper: 1, Mean: 0.667, ConfidenceLevel: 0.95},
				DurationMs:        12,
				Predictions: []models.Prediction{
					pred("CLM-1", models.SeverityLow, models.SeverityLow, models.ActionApprove, models.ActionApprove, true),
					pred("CLM-2", models.SeverityLow, models.SeverityLow, models.ActionApprove, models.ActionInvestigate, true),
					pred("CLM-3", models.SeverityHigh, models.SeverityHigh, models.ActionEscalate, models.ActionEscalate, true),
				},
			},
			"agent": {
				Strategy: "agent", Claims: 3, Failures: 1, Composite: 0.4,
				Severity:          models.ClassificationScores{Accuracy: 0.333},
				Action:            models.ClassificationScores{Accuracy: 0.333},
				SeverityConfusion: matrix([][]int{{1, 0, 1}, {0, 0, 1}, {0, 0, 0}}),
				ActionConfusion:   matrix([][]int{{1, 0, 1}, {0, 0, 1}, {0, 0, 0}}),
				MeanLatencySeconds: 1.5,
				Predictions: []models.Prediction{
					pred("CLM-1", models.SeverityLow, models.SeverityLow, models.ActionApprove, models.ActionApprove, true),
					pred("CLM-2", models.SeverityLow, models.SeverityMedium, models.ActionApprove, models.ActionApprove, true),
					{ClaimID: "CLM-3", TrueSeverity: models.SeverityHigh, PredSeverity: models.SeverityUnknown, TrueAction: models.ActionEscalate, PredAction: models.ActionEscalate, Rationale: "Error processing claim: timeout"},
				},
			},
		},
		Ranking: []models.RankedStrategy{
			{Rank: 1, Strategy: "rule_based", Composite: 0.9},
			{Rank: 2, Strategy: "agent", Composite: 0.4},
		},
		BestStrategy: "rule_based",
		DurationMs:   1500,
	}
}
