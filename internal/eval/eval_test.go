package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAUC_PerfectRanking(t *testing.T) {
	scores := []float64{0.1, 0.2, 0.3, 0.8, 0.9}
	labels := []float64{0, 0, 0, 1, 1}

	auc, err := AUC(scores, labels)

	require.NoError(t, err)
	assert.InDelta(t, 1.0, auc, 1e-9)
}

func TestAUC_InvertedRanking(t *testing.T) {
	scores := []float64{0.9, 0.8, 0.3, 0.2, 0.1}
	labels := []float64{0, 0, 0, 1, 1}

	auc, err := AUC(scores, labels)

	require.NoError(t, err)
	assert.InDelta(t, 0.0, auc, 1e-9)
}

func TestAUC_KnownValue(t *testing.T) {
	scores := []float64{0.1, 0.4, 0.35, 0.8}
	labels := []float64{0, 0, 1, 1}

	auc, err := AUC(scores, labels)

	require.NoError(t, err)
	assert.InDelta(t, 0.75, auc, 1e-9)
}

func TestAUC_AllScoresEqualIsChance(t *testing.T) {
	scores := []float64{0.5, 0.5, 0.5, 0.5}
	labels := []float64{0, 1, 0, 1}

	auc, err := AUC(scores, labels)

	require.NoError(t, err)
	assert.InDelta(t, 0.5, auc, 1e-9)
}

func TestAUC_SingleClass(t *testing.T) {
	_, err := AUC([]float64{0.1, 0.2}, []float64{1, 1})
	assert.ErrorIs(t, err, ErrSingleClass)

	_, err = AUC([]float64{0.1, 0.2}, []float64{0, 0})
	assert.ErrorIs(t, err, ErrSingleClass)
}

func TestAUC_LengthMismatch(t *testing.T) {
	_, err := AUC([]float64{0.1}, []float64{0, 1})
	assert.Error(t, err)
}

func TestBootstrapMeanCI_ConstantValues(t *testing.T) {
	values := []float64{42, 42, 42, 42}

	lo, hi, err := BootstrapMeanCI(values, 200, 0.95, 1)

	require.NoError(t, err)
	assert.Equal(t, 42.0, lo)
	assert.Equal(t, 42.0, hi)
}

func TestBootstrapMeanCI_BracketsMean(t *testing.T) {
	values := []float64{10, 12, 9, 11, 10, 13, 8, 10, 11, 9}

	lo, hi, err := BootstrapMeanCI(values, 1000, 0.95, 7)

	require.NoError(t, err)
	assert.Less(t, lo, hi)
	assert.Greater(t, lo, 8.0)
	assert.Less(t, hi, 13.0)
}

func TestBootstrapMeanCI_DeterministicForSeed(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	lo1, hi1, err := BootstrapMeanCI(values, 500, 0.9, 99)
	require.NoError(t, err)
	lo2, hi2, err := BootstrapMeanCI(values, 500, 0.9, 99)
	require.NoError(t, err)

	assert.Equal(t, lo1, lo2)
	assert.Equal(t, hi1, hi2)
}

func TestBootstrapMeanCI_InvalidArgs(t *testing.T) {
	_, _, err := BootstrapMeanCI(nil, 100, 0.95, 1)
	assert.Error(t, err)

	_, _, err = BootstrapMeanCI([]float64{1}, 0, 0.95, 1)
	assert.Error(t, err)

	_, _, err = BootstrapMeanCI([]float64{1}, 100, 1.5, 1)
	assert.Error(t, err)
}
