package tuning

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/boost"
	"github.com/AllahuRodrigues/truffle-pig-dashboard/internal/eval"
)

// tinySpace keeps test searches fast.
func tinySpace() SearchSpace {
	return SearchSpace{
		Rounds:          IntRange{Min: 5, Max: 15},
		MaxDepth:        IntRange{Min: 2, Max: 4},
		LearningRate:    FloatRange{Min: 0.1, Max: 0.3},
		Subsample:       FloatRange{Min: 0.8, Max: 1.0},
		ColsampleByTree: FloatRange{Min: 0.8, Max: 1.0},
		Gamma:           FloatRange{Min: 0, Max: 1},
	}
}

func separableSlices() (trainX [][]float64, trainY []float64, tuneX [][]float64, tuneY []float64) {
	for i := 0; i < 30; i++ {
		row := []float64{float64(i)}
		label := 0.0
		if i >= 15 {
			label = 1
		}
		if i%3 == 0 {
			tuneX = append(tuneX, row)
			tuneY = append(tuneY, label)
		} else {
			trainX = append(trainX, row)
			trainY = append(trainY, label)
		}
	}
	return trainX, trainY, tuneX, tuneY
}

func TestSearchSpace_DefaultValidates(t *testing.T) {
	assert.NoError(t, DefaultSpace().Validate())
}

func TestSearchSpace_Validate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SearchSpace)
	}{
		{"rounds min zero", func(s *SearchSpace) { s.Rounds.Min = 0 }},
		{"rounds inverted", func(s *SearchSpace) { s.Rounds = IntRange{Min: 10, Max: 5} }},
		{"learning rate zero", func(s *SearchSpace) { s.LearningRate.Min = 0 }},
		{"subsample above one", func(s *SearchSpace) { s.Subsample.Max = 1.5 }},
		{"gamma negative", func(s *SearchSpace) { s.Gamma.Min = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultSpace()
			tc.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSpace)
		})
	}
}

func TestLoadSpace_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.yaml")
	content := "max_depth:\n  min: 4\n  max: 6\nlearning_rate:\n  min: 0.05\n  max: 0.1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	space, err := LoadSpace(path)

	require.NoError(t, err)
	assert.Equal(t, IntRange{Min: 4, Max: 6}, space.MaxDepth)
	assert.Equal(t, FloatRange{Min: 0.05, Max: 0.1}, space.LearningRate)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultSpace().Rounds, space.Rounds)
	assert.Equal(t, DefaultSpace().Gamma, space.Gamma)
}

func TestLoadSpace_MissingFile(t *testing.T) {
	_, err := LoadSpace(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestLoadSpace_InvalidOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rounds:\n  min: 0\n  max: 10\n"), 0o644))

	_, err := LoadSpace(path)

	assert.ErrorIs(t, err, ErrInvalidSpace)
}

func TestNewTuner_RejectsZeroTrials(t *testing.T) {
	_, err := NewTuner(DefaultSpace(), 0, 1, 5, zap.NewNop())

	assert.Error(t, err)
}

func TestNewTuner_RejectsInvalidSpace(t *testing.T) {
	s := DefaultSpace()
	s.Rounds.Min = 0

	_, err := NewTuner(s, 10, 1, 5, zap.NewNop())

	assert.ErrorIs(t, err, ErrInvalidSpace)
}

func TestTuner_Search_FirstTrialIsBaseline(t *testing.T) {
	trainX, trainY, tuneX, tuneY := separableSlices()
	tuner, err := NewTuner(tinySpace(), 4, 7, 5, zap.NewNop())
	require.NoError(t, err)

	result, err := tuner.Search(context.Background(), trainX, trainY, tuneX, tuneY)

	require.NoError(t, err)
	require.Len(t, result.Trials, 4)

	baseline := result.Trials[0].Params
	want := boost.DefaultParams()
	want.Seed = baseline.Seed
	assert.Equal(t, want, baseline)
}

func TestTuner_Search_BestNeverBelowBaseline(t *testing.T) {
	trainX, trainY, tuneX, tuneY := separableSlices()
	tuner, err := NewTuner(tinySpace(), 6, 3, 5, zap.NewNop())
	require.NoError(t, err)

	result, err := tuner.Search(context.Background(), trainX, trainY, tuneX, tuneY)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Best.AUC, result.Trials[0].AUC)
}

func TestTuner_Search_TiesKeepEarliestTrial(t *testing.T) {
	// Perfectly separable data pushes every trial to AUC 1, so the winner
	// must stay the first trial.
	trainX, trainY, tuneX, tuneY := separableSlices()
	tuner, err := NewTuner(tinySpace(), 5, 11, 5, zap.NewNop())
	require.NoError(t, err)

	result, err := tuner.Search(context.Background(), trainX, trainY, tuneX, tuneY)

	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Best.AUC)
	assert.Equal(t, 0, result.Best.Index)
}

func TestTuner_Search_SampledParamsWithinSpace(t *testing.T) {
	trainX, trainY, tuneX, tuneY := separableSlices()
	space := tinySpace()
	tuner, err := NewTuner(space, 8, 21, 5, zap.NewNop())
	require.NoError(t, err)

	result, err := tuner.Search(context.Background(), trainX, trainY, tuneX, tuneY)

	require.NoError(t, err)
	for _, trial := range result.Trials[1:] {
		p := trial.Params
		assert.GreaterOrEqual(t, p.Rounds, space.Rounds.Min)
		assert.LessOrEqual(t, p.Rounds, space.Rounds.Max)
		assert.GreaterOrEqual(t, p.MaxDepth, space.MaxDepth.Min)
		assert.LessOrEqual(t, p.MaxDepth, space.MaxDepth.Max)
		assert.GreaterOrEqual(t, p.LearningRate, space.LearningRate.Min)
		assert.LessOrEqual(t, p.LearningRate, space.LearningRate.Max)
		assert.GreaterOrEqual(t, p.Subsample, space.Subsample.Min)
		assert.LessOrEqual(t, p.Subsample, space.Subsample.Max)
		assert.GreaterOrEqual(t, p.Gamma, space.Gamma.Min)
		assert.LessOrEqual(t, p.Gamma, space.Gamma.Max)
	}
}

func TestTuner_Search_DeterministicForSeed(t *testing.T) {
	trainX, trainY, tuneX, tuneY := separableSlices()

	run := func() *Result {
		tuner, err := NewTuner(tinySpace(), 5, 17, 5, zap.NewNop())
		require.NoError(t, err)
		result, err := tuner.Search(context.Background(), trainX, trainY, tuneX, tuneY)
		require.NoError(t, err)
		return result
	}

	assert.Equal(t, run(), run())
}

func TestTuner_Search_SingleClassTuneSlice(t *testing.T) {
	trainX, trainY, tuneX, _ := separableSlices()
	allNegative := make([]float64, len(tuneX))
	tuner, err := NewTuner(tinySpace(), 3, 1, 5, zap.NewNop())
	require.NoError(t, err)

	_, err = tuner.Search(context.Background(), trainX, trainY, tuneX, allNegative)

	assert.ErrorIs(t, err, eval.ErrSingleClass)
}

func TestTuner_Search_ContextCanceled(t *testing.T) {
	trainX, trainY, tuneX, tuneY := separableSlices()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tuner, err := NewTuner(tinySpace(), 3, 1, 5, zap.NewNop())
	require.NoError(t, err)

	_, err = tuner.Search(ctx, trainX, trainY, tuneX, tuneY)

	assert.ErrorIs(t, err, context.Canceled)
}
