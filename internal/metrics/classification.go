package metrics

import (
	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/models"
)

// Accuracy is the fraction of positions where pred equals truth.
// Returns 0 for empty input.
func Accuracy(truth, pred []string) float64 {
	n := min(len(truth), len(pred))
	if n == 0 {
		return 0
	}
	hits := 0
	for i := 0; i < n; i++ {
		if truth[i] == pred[i] {
			hits++
		}
	}
	return float64(hits) / float64(n)
}

// WeightedPRF computes precision, recall and F1 per true label and averages
// them weighted by each label's support in truth. A zero denominator yields
// 0 for that label instead of NaN. Predicted labels absent from truth add
// false positives to nobody's precision but carry no weight of their own.
func WeightedPRF(truth, pred []string) (precision, recall, f1 float64) {
	n := min(len(truth), len(pred))
	if n == 0 {
		return 0, 0, 0
	}

	support := map[string]int{}
	predicted := map[string]int{}
	truePos := map[string]int{}
	var order []string

	for i := 0; i < n; i++ {
		t, p := truth[i], pred[i]
		if support[t] == 0 {
			order = append(order, t)
		}
		support[t]++
		predicted[p]++
		if t == p {
			truePos[t]++
		}
	}

	for _, label := range order {
		tp := float64(truePos[label])
		s := float64(support[label])
		w := s / float64(n)

		var p, r, f float64
		if predicted[label] > 0 {
			p = tp / float64(predicted[label])
		}
		r = tp / s
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}

		precision += w * p
		recall += w * r
		f1 += w * f
	}

	return precision, recall, f1
}

// Scores bundles accuracy and weighted PRF for one label dimension.
func Scores(truth, pred []string) models.ClassificationScores {
	p, r, f := WeightedPRF(truth, pred)
	return models.ClassificationScores{
		Accuracy:  Accuracy(truth, pred),
		Precision: p,
		Recall:    r,
		F1:        f,
	}
}

// Confusion counts (truth, pred) pairs over labels plus a trailing
// "unknown" row and column. Values outside labels land in the unknown
// row or column, so the matrix total always equals the number of pairs.
func Confusion(truth, pred []string, labels []string) models.ConfusionMatrix {
	all := make([]string, 0, len(labels)+1)
	all = append(all, labels...)
	all = append(all, models.LabelUnknown)

	index := make(map[string]int, len(all))
	for i, l := range all {
		index[l] = i
	}
	unknown := len(all) - 1

	lookup := func(v string) int {
		if i, ok := index[v]; ok {
			return i
		}
		return unknown
	}

	counts := make([][]int, len(all))
	for i := range counts {
		counts[i] = make([]int, len(all))
	}

	n := min(len(truth), len(pred))
	for i := 0; i < n; i++ {
		counts[lookup(truth[i])][lookup(pred[i])]++
	}

	return models.ConfusionMatrix{Labels: all, Counts: counts}
}

// Composite blends accuracy and F1 of both dimensions.
func Composite(severity, action models.ClassificationScores, w config.CompositeWeights) float64 {
	return w.SeverityAccuracy*severity.Accuracy +
		w.ActionAccuracy*action.Accuracy +
		w.SeverityF1*severity.F1 +
		w.ActionF1*action.F1
}

// SeverityStrings converts severities for the generic metric functions.
func SeverityStrings(v []models.Severity) []string {
	out := make([]string, len(v))
	for i, s := range v {
		out[i] = string(s)
	}
	return out
}

// ActionStrings converts actions for the generic metric functions.
func ActionStrings(v []models.Action) []string {
	out := make([]string, len(v))
	for i, a := range v {
		out[i] = string(a)
	}
	return out
}
