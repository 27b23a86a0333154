package tuning

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/boost"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/eval"
)

// Trial records one evaluated parameter set.
type Trial struct {
	Index  int          `json:"index"`
	Params boost.Params `json:"params"`
	AUC    float64      `json:"auc"`
	Rounds int          `json:"rounds"`
}

// Result holds every trial of a search and the winner.
type Result struct {
	Best   Trial   `json:"best"`
	Trials []Trial `json:"trials"`
}

// Tuner runs a randomized search. Trial zero always evaluates the default
// parameters, so the winner can never score below the untuned baseline.
type Tuner struct {
	space         SearchSpace
	trials        int
	seed          int64
	earlyStopping int
	log           *zap.Logger
}

// NewTuner creates a tuner running the given number of trials.
func NewTuner(space SearchSpace, trials int, seed int64, earlyStopping int, log *zap.Logger) (*Tuner, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if trials < 1 {
		return nil, fmt.Errorf("trials must be at least 1, got %d", trials)
	}
	return &Tuner{
		space:         space,
		trials:        trials,
		seed:          seed,
		earlyStopping: earlyStopping,
		log:           log,
	}, nil
}

func hasBothClasses(y []float64) bool {
	pos := false
	neg := false
	for _, label := range y {
		if label > 0.5 {
			pos = true
		} else {
			neg = true
		}
		if pos && neg {
			return true
		}
	}
	return false
}

// Search trains one model per trial on the train slice and scores it by AUC
// on the tune slice. The best trial wins by strict improvement, so ties keep
// the earliest trial.
func (t *Tuner) Search(ctx context.Context, trainX [][]float64, trainY []float64, tuneX [][]float64, tuneY []float64) (*Result, error) {
	if !hasBothClasses(tuneY) {
		return nil, fmt.Errorf("tune slice: %w", eval.ErrSingleClass)
	}

	rng := rand.New(rand.NewSource(t.seed))
	result := &Result{Trials: make([]Trial, 0, t.trials)}

	for i := 0; i < t.trials; i++ {
		params := boost.DefaultParams()
		if i > 0 {
			params = t.space.sample(rng)
		}
		params.Seed = t.seed + int64(i)

		model, err := boost.Train(ctx, trainX, trainY, params, &boost.EvalSet{
			X:         tuneX,
			Y:         tuneY,
			StopAfter: t.earlyStopping,
		})
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}

		scores, err := model.PredictBatch(tuneX)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
		auc, err := eval.AUC(scores, tuneY)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}

		trial := Trial{Index: i, Params: params, AUC: auc, Rounds: model.Rounds()}
		result.Trials = append(result.Trials, trial)

		if i == 0 || auc > result.Best.AUC {
			result.Best = trial
			t.log.Info("new best trial",
				zap.Int("trial", i),
				zap.Float64("auc", auc),
				zap.Int("rounds", trial.Rounds))
		} else {
			t.log.Debug("trial finished",
				zap.Int("trial", i),
				zap.Float64("auc", auc),
				zap.Int("rounds", trial.Rounds))
		}
	}
	return result, nil
}
