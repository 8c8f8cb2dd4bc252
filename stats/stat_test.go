package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	testData := map[string]struct {
		predicted []float64
		actual    []float64
		mae       float64
		mape      float64
		medae     float64
		mse       float64
	}{
		"exact": {
			predicted: []float64{1, 2, 3},
			actual:    []float64{1, 2, 3},
		},
		"odd": {
			predicted: []float64{1, 4, 2},
			actual:    []float64{2, 2, 2},
			mae:       1,
			mape:      0.5,
			medae:     1,
			mse:       5.0 / 3.0,
		},
		"even": {
			predicted: []float64{1, 3, 7, 4},
			actual:    []float64{2, 2, 2, 2},
			mae:       2.25,
			mape:      1.125,
			medae:     1.5,
			mse:       7.75,
		},
		"nan skipped": {
			predicted: []float64{1, math.NaN(), 5},
			actual:    []float64{2, 3, 4},
			mae:       1,
			mape:      0.375,
			medae:     1,
			mse:       1,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			scores, err := NewScores(td.predicted, td.actual)
			require.Nil(t, err)
			assert.InDelta(t, td.mae, scores.MAE, 1e-12)
			assert.InDelta(t, td.mape, scores.MAPE, 1e-12)
			assert.InDelta(t, td.medae, scores.MedianAE, 1e-12)
			assert.InDelta(t, td.mse, scores.MSE, 1e-12)
		})
	}
}

func TestMAPEZeroActual(t *testing.T) {
	res, err := MAPE([]float64{1}, []float64{0})
	require.Nil(t, err)
	assert.False(t, math.IsInf(res, 0))
	assert.InDelta(t, 1/Epsilon, res, 1)
}

func TestScoreErrors(t *testing.T) {
	_, err := MAE([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrLenMismatch)
	_, err = MAPE([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrLenMismatch)
	_, err = MedianAE(nil, nil)
	assert.ErrorIs(t, err, ErrNoValues)
	_, err = NewScores([]float64{math.NaN()}, []float64{1})
	assert.ErrorIs(t, err, ErrNoValues)
}
