// Package eval computes ranking metrics for binary conversion scores.
package eval

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ErrSingleClass indicates the labels hold only one class, so no ranking
// metric is defined.
var ErrSingleClass = errors.New("labels contain a single class")

// AUC returns the area under the ROC curve for the given scores against
// binary labels (0 or 1). Higher scores should rank positives above
// negatives; 0.5 is chance level.
func AUC(scores, labels []float64) (float64, error) {
	if len(scores) != len(labels) {
		return 0, fmt.Errorf("scores and labels length mismatch: %d vs %d", len(scores), len(labels))
	}

	pos := 0
	for _, l := range labels {
		if l > 0.5 {
			pos++
		}
	}
	if pos == 0 || pos == len(labels) {
		return 0, fmt.Errorf("%w: %d positives out of %d", ErrSingleClass, pos, len(labels))
	}

	// stat.ROC wants scores sorted ascending with parallel class labels.
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	sorted := make([]float64, len(scores))
	classes := make([]bool, len(labels))
	for i, j := range idx {
		sorted[i] = scores[j]
		classes[i] = labels[j] > 0.5
	}

	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)

	// Trapezoidal integration needs the false positive rate ascending.
	if len(fpr) > 1 && fpr[0] > fpr[len(fpr)-1] {
		reverse(fpr)
		reverse(tpr)
	}
	return integrate.Trapezoidal(fpr, tpr), nil
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// BootstrapMeanCI estimates a two-sided confidence interval for the mean of
// values by bootstrap resampling. The same seed always yields the same
// interval.
func BootstrapMeanCI(values []float64, resamples int, confidence float64, seed int64) (lo, hi float64, err error) {
	if len(values) == 0 {
		return 0, 0, errors.New("no values to resample")
	}
	if resamples <= 0 {
		return 0, 0, fmt.Errorf("resamples must be positive, got %d", resamples)
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, fmt.Errorf("confidence must be in (0, 1), got %v", confidence)
	}

	rng := rand.New(rand.NewSource(seed))
	sample := make([]float64, len(values))
	means := make([]float64, resamples)
	for i := range means {
		for j := range sample {
			sample[j] = values[rng.Intn(len(values))]
		}
		means[i] = stat.Mean(sample, nil)
	}
	sort.Float64s(means)

	alpha := (1 - confidence) / 2
	lo = stat.Quantile(alpha, stat.Empirical, means, nil)
	hi = stat.Quantile(1-alpha, stat.Empirical, means, nil)
	return lo, hi, nil
}
