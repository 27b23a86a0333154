// Package boost implements gradient boosted decision trees for binary
// classification with logistic loss. Training is deterministic for a given
// seed, and models serialize to JSON without losing precision.
package boost

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Params configures one training run.
type Params struct {
	Rounds          int     `json:"rounds" yaml:"rounds"`
	LearningRate    float64 `json:"learning_rate" yaml:"learning_rate"`
	MaxDepth        int     `json:"max_depth" yaml:"max_depth"`
	Subsample       float64 `json:"subsample" yaml:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree" yaml:"colsample_bytree"`
	Gamma           float64 `json:"gamma" yaml:"gamma"`
	Lambda          float64 `json:"lambda" yaml:"lambda"`
	MinChildWeight  float64 `json:"min_child_weight" yaml:"min_child_weight"`
	BaseScore       float64 `json:"base_score" yaml:"base_score"`
	Seed            int64   `json:"seed" yaml:"seed"`
}

// DefaultParams returns the untuned baseline configuration.
func DefaultParams() Params {
	return Params{
		Rounds:          100,
		LearningRate:    0.3,
		MaxDepth:        6,
		Subsample:       1.0,
		ColsampleByTree: 1.0,
		Gamma:           0,
		Lambda:          1.0,
		MinChildWeight:  1.0,
		BaseScore:       0.5,
		Seed:            42,
	}
}

// Validate checks that the parameters describe a trainable configuration.
func (p Params) Validate() error {
	switch {
	case p.Rounds < 1:
		return fmt.Errorf("rounds must be at least 1, got %d", p.Rounds)
	case p.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be positive, got %v", p.LearningRate)
	case p.MaxDepth < 1:
		return fmt.Errorf("max_depth must be at least 1, got %d", p.MaxDepth)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %v", p.Subsample)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("colsample_bytree must be in (0, 1], got %v", p.ColsampleByTree)
	case p.Gamma < 0:
		return fmt.Errorf("gamma must be non-negative, got %v", p.Gamma)
	case p.Lambda < 0:
		return fmt.Errorf("lambda must be non-negative, got %v", p.Lambda)
	case p.MinChildWeight < 0:
		return fmt.Errorf("min_child_weight must be non-negative, got %v", p.MinChildWeight)
	case p.BaseScore <= 0 || p.BaseScore >= 1:
		return fmt.Errorf("base_score must be in (0, 1), got %v", p.BaseScore)
	}
	return nil
}

// EvalSet carries a holdout slice monitored during training. When StopAfter
// is positive, training stops after that many rounds without log-loss
// improvement on the holdout and the model is truncated to its best round.
type EvalSet struct {
	X         [][]float64
	Y         []float64
	StopAfter int
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// logLoss computes the mean binary cross entropy of raw scores against
// labels, clamping probabilities away from 0 and 1.
func logLoss(raw, y []float64) float64 {
	const eps = 1e-15
	sum := 0.0
	for i, z := range raw {
		p := sigmoid(z)
		if p < eps {
			p = eps
		} else if p > 1-eps {
			p = 1 - eps
		}
		if y[i] > 0.5 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(raw))
}

func checkMatrix(x [][]float64, y []float64) (int, error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("empty design matrix")
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("matrix has %d rows but %d labels", len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return 0, fmt.Errorf("design matrix has no features")
	}
	for i, row := range x {
		if len(row) != width {
			return 0, fmt.Errorf("row %d has %d features, expected %d", i, len(row), width)
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return 0, fmt.Errorf("label %d is %v, expected 0 or 1", i, label)
		}
	}
	return width, nil
}

// sampleIndexes picks floor(frac*n) indexes without replacement, at least
// one, returned in ascending order so downstream iteration is stable.
func sampleIndexes(rng *rand.Rand, n int, frac float64) []int {
	if frac >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := int(frac * float64(n))
	if k < 1 {
		k = 1
	}
	idx := rng.Perm(n)[:k]
	sort.Ints(idx)
	return idx
}

// Train fits a boosted tree ensemble to the design matrix x and binary
// labels y. When eval is non-nil its slice is scored every round for early
// stopping.
func Train(ctx context.Context, x [][]float64, y []float64, p Params, eval *EvalSet) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	width, err := checkMatrix(x, y)
	if err != nil {
		return nil, fmt.Errorf("invalid training data: %w", err)
	}

	var evalRaw []float64
	if eval != nil {
		evalWidth, err := checkMatrix(eval.X, eval.Y)
		if err != nil {
			return nil, fmt.Errorf("invalid eval data: %w", err)
		}
		if evalWidth != width {
			return nil, fmt.Errorf("eval width %d does not match train width %d", evalWidth, width)
		}
		evalRaw = make([]float64, len(eval.X))
		for i := range evalRaw {
			evalRaw[i] = logit(p.BaseScore)
		}
	}

	n := len(x)
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = logit(p.BaseScore)
	}
	grad := make([]float64, n)
	hess := make([]float64, n)

	rng := rand.New(rand.NewSource(p.Seed))
	m := &Model{
		BaseScore:   p.BaseScore,
		NumFeatures: width,
		Trees:       make([]Tree, 0, p.Rounds),
	}

	bestLoss := math.Inf(1)
	bestRound := -1
	sinceBest := 0

	for round := 0; round < p.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := range x {
			prob := sigmoid(raw[i])
			grad[i] = prob - y[i]
			hess[i] = prob * (1 - prob)
		}

		rows := sampleIndexes(rng, n, p.Subsample)
		feats := sampleIndexes(rng, width, p.ColsampleByTree)
		tree := growTree(x, grad, hess, rows, feats, p)
		m.Trees = append(m.Trees, tree)

		for i := range x {
			raw[i] += tree.predictRaw(x[i])
		}

		if eval == nil || eval.StopAfter <= 0 {
			continue
		}
		for i := range eval.X {
			evalRaw[i] += tree.predictRaw(eval.X[i])
		}
		loss := logLoss(evalRaw, eval.Y)
		if loss < bestLoss {
			bestLoss = loss
			bestRound = round
			sinceBest = 0
		} else {
			sinceBest++
			if sinceBest >= eval.StopAfter {
				break
			}
		}
	}

	if eval != nil && eval.StopAfter > 0 && bestRound >= 0 {
		m.Trees = m.Trees[:bestRound+1]
	}
	return m, nil
}
