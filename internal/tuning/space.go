// Package tuning implements randomized hyperparameter search over the boost
// trainer, scored by AUC on a chronologically held-out tune slice.
package tuning

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/boost"
)

// ErrInvalidSpace indicates a search space with empty or out-of-range
// intervals.
var ErrInvalidSpace = errors.New("invalid search space")

// IntRange is a closed integer interval sampled uniformly.
type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// FloatRange is a closed float interval sampled uniformly.
type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// SearchSpace bounds the randomized search. Fields omitted from a YAML
// override keep their defaults.
type SearchSpace struct {
	Rounds          IntRange   `yaml:"rounds"`
	MaxDepth        IntRange   `yaml:"max_depth"`
	LearningRate    FloatRange `yaml:"learning_rate"`
	Subsample       FloatRange `yaml:"subsample"`
	ColsampleByTree FloatRange `yaml:"colsample_bytree"`
	Gamma           FloatRange `yaml:"gamma"`
}

// DefaultSpace returns the stock search bounds.
func DefaultSpace() SearchSpace {
	return SearchSpace{
		Rounds:          IntRange{Min: 100, Max: 1000},
		MaxDepth:        IntRange{Min: 3, Max: 9},
		LearningRate:    FloatRange{Min: 0.01, Max: 0.3},
		Subsample:       FloatRange{Min: 0.6, Max: 1.0},
		ColsampleByTree: FloatRange{Min: 0.6, Max: 1.0},
		Gamma:           FloatRange{Min: 0, Max: 5},
	}
}

// LoadSpace reads a YAML override file on top of the default bounds.
func LoadSpace(path string) (SearchSpace, error) {
	space := DefaultSpace()
	raw, err := os.ReadFile(path)
	if err != nil {
		return space, fmt.Errorf("failed to read search space file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &space); err != nil {
		return space, fmt.Errorf("failed to parse search space file: %w", err)
	}
	if err := space.Validate(); err != nil {
		return space, err
	}
	return space, nil
}

// Validate checks that every interval is non-empty and within the bounds the
// trainer accepts.
func (s SearchSpace) Validate() error {
	switch {
	case s.Rounds.Min < 1 || s.Rounds.Max < s.Rounds.Min:
		return fmt.Errorf("%w: rounds [%d, %d]", ErrInvalidSpace, s.Rounds.Min, s.Rounds.Max)
	case s.MaxDepth.Min < 1 || s.MaxDepth.Max < s.MaxDepth.Min:
		return fmt.Errorf("%w: max_depth [%d, %d]", ErrInvalidSpace, s.MaxDepth.Min, s.MaxDepth.Max)
	case s.LearningRate.Min <= 0 || s.LearningRate.Max < s.LearningRate.Min:
		return fmt.Errorf("%w: learning_rate [%v, %v]", ErrInvalidSpace, s.LearningRate.Min, s.LearningRate.Max)
	case s.Subsample.Min <= 0 || s.Subsample.Max > 1 || s.Subsample.Max < s.Subsample.Min:
		return fmt.Errorf("%w: subsample [%v, %v]", ErrInvalidSpace, s.Subsample.Min, s.Subsample.Max)
	case s.ColsampleByTree.Min <= 0 || s.ColsampleByTree.Max > 1 || s.ColsampleByTree.Max < s.ColsampleByTree.Min:
		return fmt.Errorf("%w: colsample_bytree [%v, %v]", ErrInvalidSpace, s.ColsampleByTree.Min, s.ColsampleByTree.Max)
	case s.Gamma.Min < 0 || s.Gamma.Max < s.Gamma.Min:
		return fmt.Errorf("%w: gamma [%v, %v]", ErrInvalidSpace, s.Gamma.Min, s.Gamma.Max)
	}
	return nil
}

func sampleInt(rng *rand.Rand, r IntRange) int {
	if r.Max == r.Min {
		return r.Min
	}
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

func sampleFloat(rng *rand.Rand, r FloatRange) float64 {
	if r.Max == r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// sample draws one parameter set uniformly from the space. Structural
// parameters the search does not explore keep their defaults.
func (s SearchSpace) sample(rng *rand.Rand) boost.Params {
	p := boost.DefaultParams()
	p.Rounds = sampleInt(rng, s.Rounds)
	p.MaxDepth = sampleInt(rng, s.MaxDepth)
	p.LearningRate = sampleFloat(rng, s.LearningRate)
	p.Subsample = sampleFloat(rng, s.Subsample)
	p.ColsampleByTree = sampleFloat(rng, s.ColsampleByTree)
	p.Gamma = sampleFloat(rng, s.Gamma)
	return p
}
