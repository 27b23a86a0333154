package boost

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable returns a single-feature dataset split cleanly at 0.5.
func separable() ([][]float64, []float64) {
	x := make([][]float64, 20)
	y := make([]float64, 20)
	for i := range x {
		v := float64(i) * 0.05
		x[i] = []float64{v}
		if v >= 0.5 {
			y[i] = 1
		}
	}
	return x, y
}

func smallParams() Params {
	p := DefaultParams()
	p.Rounds = 60
	p.MaxDepth = 3
	// The fixtures are tiny; the default hessian floor would freeze training
	// long before the probabilities saturate.
	p.MinChildWeight = 0
	return p
}

func TestTrain_LearnsSeparableData(t *testing.T) {
	x, y := separable()

	m, err := Train(context.Background(), x, y, smallParams(), nil)

	require.NoError(t, err)
	assert.Equal(t, 60, m.Rounds())
	for i, row := range x {
		p, err := m.PredictProba(row)
		require.NoError(t, err)
		if y[i] == 1 {
			assert.Greater(t, p, 0.9, "row %d", i)
		} else {
			assert.Less(t, p, 0.1, "row %d", i)
		}
	}
}

func TestTrain_DeterministicForSeed(t *testing.T) {
	x := [][]float64{
		{0.1, 5, 1}, {0.3, 2, 0}, {0.5, 9, 1}, {0.7, 1, 0},
		{0.2, 4, 1}, {0.8, 7, 0}, {0.4, 3, 1}, {0.9, 6, 0},
		{0.15, 8, 1}, {0.65, 0, 0},
	}
	y := []float64{0, 0, 1, 1, 0, 1, 0, 1, 0, 1}
	p := DefaultParams()
	p.Rounds = 25
	p.Subsample = 0.7
	p.ColsampleByTree = 0.7
	p.Seed = 1234

	m1, err := Train(context.Background(), x, y, p, nil)
	require.NoError(t, err)
	m2, err := Train(context.Background(), x, y, p, nil)
	require.NoError(t, err)

	assert.Equal(t, m1, m2)
}

func TestTrain_EarlyStoppingTruncatesToBestRound(t *testing.T) {
	x, y := separable()
	flipped := make([]float64, len(y))
	for i, label := range y {
		flipped[i] = 1 - label
	}
	p := smallParams()
	p.Rounds = 200

	m, err := Train(context.Background(), x, y, p, &EvalSet{X: x, Y: flipped, StopAfter: 5})

	require.NoError(t, err)
	// The holdout is labeled against the training data, so it worsens from
	// round one and the model keeps only the first round.
	assert.Equal(t, 1, m.Rounds())
}

func TestTrain_EarlyStoppingKeepsImprovingModel(t *testing.T) {
	x, y := separable()
	p := smallParams()
	p.Rounds = 30

	m, err := Train(context.Background(), x, y, p, &EvalSet{X: x, Y: y, StopAfter: 5})

	require.NoError(t, err)
	assert.Equal(t, 30, m.Rounds())
}

func TestTrain_GammaBlocksWeakSplits(t *testing.T) {
	x, y := separable()
	p := smallParams()
	p.Gamma = 1e9

	m, err := Train(context.Background(), x, y, p, nil)

	require.NoError(t, err)
	prob, err := m.PredictProba(x[0])
	require.NoError(t, err)
	assert.Equal(t, 0.5, prob)
}

func TestTrain_InvalidParams(t *testing.T) {
	x, y := separable()

	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero rounds", func(p *Params) { p.Rounds = 0 }},
		{"zero learning rate", func(p *Params) { p.LearningRate = 0 }},
		{"zero depth", func(p *Params) { p.MaxDepth = 0 }},
		{"subsample too high", func(p *Params) { p.Subsample = 1.5 }},
		{"zero colsample", func(p *Params) { p.ColsampleByTree = 0 }},
		{"negative gamma", func(p *Params) { p.Gamma = -1 }},
		{"negative lambda", func(p *Params) { p.Lambda = -1 }},
		{"base score at bound", func(p *Params) { p.BaseScore = 1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			_, err := Train(context.Background(), x, y, p, nil)
			assert.Error(t, err)
		})
	}
}

func TestTrain_InvalidData(t *testing.T) {
	p := DefaultParams()

	_, err := Train(context.Background(), nil, nil, p, nil)
	assert.Error(t, err)

	_, err = Train(context.Background(), [][]float64{{1}, {2}}, []float64{0}, p, nil)
	assert.Error(t, err)

	_, err = Train(context.Background(), [][]float64{{1}, {2}}, []float64{0, 2}, p, nil)
	assert.Error(t, err)

	_, err = Train(context.Background(), [][]float64{{1}, {2, 3}}, []float64{0, 1}, p, nil)
	assert.Error(t, err)
}

func TestTrain_ContextCanceled(t *testing.T) {
	x, y := separable()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Train(ctx, x, y, DefaultParams(), nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_JSONRoundTripScoresIdentically(t *testing.T) {
	x, y := separable()
	m, err := Train(context.Background(), x, y, smallParams(), nil)
	require.NoError(t, err)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	var restored Model
	require.NoError(t, json.Unmarshal(raw, &restored))
	require.NoError(t, restored.Validate())

	want, err := m.PredictBatch(x)
	require.NoError(t, err)
	got, err := restored.PredictBatch(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestModel_FeatureImportances(t *testing.T) {
	x := make([][]float64, 20)
	y := make([]float64, 20)
	for i := range x {
		v := float64(i) * 0.05
		x[i] = []float64{v, 1.0} // second feature is constant noise
		if v >= 0.5 {
			y[i] = 1
		}
	}
	p := smallParams()

	m, err := Train(context.Background(), x, y, p, nil)
	require.NoError(t, err)

	imp := m.FeatureImportances()
	require.Len(t, imp, 2)
	assert.InDelta(t, 1.0, imp[0], 1e-12)
	assert.Equal(t, 0.0, imp[1])
}

func TestModel_PredictProba_WidthMismatch(t *testing.T) {
	x, y := separable()
	m, err := Train(context.Background(), x, y, smallParams(), nil)
	require.NoError(t, err)

	_, err = m.PredictProba([]float64{1, 2})

	assert.Error(t, err)
}

func TestModel_Validate_RejectsCorruptTrees(t *testing.T) {
	m := &Model{
		BaseScore:   0.5,
		NumFeatures: 2,
		Trees: []Tree{
			{Nodes: []Node{{Feature: 5, Threshold: 1, Left: 1, Right: 2}, leafNode(0.1), leafNode(-0.1)}},
		},
	}
	assert.Error(t, m.Validate())

	m.Trees[0].Nodes[0].Feature = 0
	assert.NoError(t, m.Validate())

	m.Trees[0].Nodes[0].Left = 0
	assert.Error(t, m.Validate())
}

func leafNode(w float64) Node {
	return Node{Feature: -1, Left: -1, Right: -1, Weight: w}
}
