package statistics

import (
	"math"
	"math/rand"
	"sort"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 10000

// BootstrapCIWithSeed computes a percentile bootstrap interval for the mean
// of scores. confidenceLevel should be in (0, 1), e.g. 0.95. Fewer than two
// data points yield a degenerate interval at the mean. A negative seed uses
// a non-deterministic source.
func BootstrapCIWithSeed(scores []float64, confidenceLevel float64, seed int64) models.ConfidenceInterval {
	n := len(scores)
	m := mean(scores)
	if n < 2 {
		return models.ConfidenceInterval{
			Lower:           m,
			Upper:           m,
			Mean:            m,
			ConfidenceLevel: confidenceLevel,
		}
	}

	rng := newRand(seed)
	iters := DefaultBootstrapIterations

	bootMeans := make([]float64, iters)
	sample := make([]float64, n)
	for i := 0; i < iters; i++ {
		for j := 0; j < n; j++ {
			sample[j] = scores[rng.Intn(n)]
		}
		bootMeans[i] = mean(sample)
	}

	lo, hi := percentileBounds(bootMeans, confidenceLevel)
	return models.ConfidenceInterval{
		Lower:           lo,
		Upper:           hi,
		Mean:            m,
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
	}
}

// PairedDifferenceCI bootstraps the mean of b[i]-a[i]. Both slices must be
// aligned on the same claims; extra elements in the longer slice are ignored.
func PairedDifferenceCI(a, b []float64, confidenceLevel float64, seed int64) models.ConfidenceInterval {
	n := min(len(a), len(b))
	diffs := make([]float64, n)
	for i := 0; i < n; i++ {
		diffs[i] = b[i] - a[i]
	}
	return BootstrapCIWithSeed(diffs, confidenceLevel, seed)
}

// IsSignificant returns true if the confidence interval does not contain zero,
// indicating statistical significance at the given confidence level.
func IsSignificant(ci models.ConfidenceInterval) bool {
	return ci.Lower > 0 || ci.Upper < 0
}

// ExactMatches turns predictions into a 0/1 sample: 1 when both labels are
// correct.
func ExactMatches(preds []models.Prediction) []float64 {
	out := make([]float64, len(preds))
	for i, p := range preds {
		if p.Correct() {
			out[i] = 1
		}
	}
	return out
}

func newRand(seed int64) *rand.Rand {
	if seed >= 0 {
		return rand.New(rand.NewSource(seed))
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

func percentileBounds(sorted []float64, confidenceLevel float64) (float64, float64) {
	sort.Float64s(sorted)
	iters := len(sorted)
	alpha := 1.0 - confidenceLevel
	loIdx := int(math.Floor(alpha / 2.0 * float64(iters)))
	hiIdx := int(math.Floor((1.0 - alpha/2.0) * float64(iters)))
	if hiIdx >= iters {
		hiIdx = iters - 1
	}
	return sorted[loIdx], sorted[hiIdx]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
