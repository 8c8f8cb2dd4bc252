// Package stats computes pointwise error statistics between predicted and actual series.
package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrLenMismatch = errors.New("predicted and actual have different lengths")
	ErrNoValues    = errors.New("no values to score")
)

// Epsilon bounds the percentage error denominator away from zero
const Epsilon = 2.220446049250313e-16

// absErrors returns |actual - predicted| for every pair where neither value is NaN
func absErrors(predicted, actual []float64) ([]float64, error) {
	if len(predicted) != len(actual) {
		return nil, fmt.Errorf("got %d predicted and %d actual values, %w", len(predicted), len(actual), ErrLenMismatch)
	}
	res := make([]float64, 0, len(actual))
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		res = append(res, math.Abs(actual[i]-predicted[i]))
	}
	if len(res) == 0 {
		return nil, ErrNoValues
	}
	return res, nil
}

// MAE is the mean absolute error
func MAE(predicted, actual []float64) (float64, error) {
	res, err := absErrors(predicted, actual)
	if err != nil {
		return 0, err
	}
	return stat.Mean(res, nil), nil
}

// MSE is the mean squared error
func MSE(predicted, actual []float64) (float64, error) {
	res, err := absErrors(predicted, actual)
	if err != nil {
		return 0, err
	}
	return floats.Dot(res, res) / float64(len(res)), nil
}

// MAPE is the mean absolute percentage error as a fraction. Actual values smaller in magnitude
// than Epsilon are divided by Epsilon.
func MAPE(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("got %d predicted and %d actual values, %w", len(predicted), len(actual), ErrLenMismatch)
	}
	var sum float64
	var n int
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		sum += math.Abs(actual[i]-predicted[i]) / math.Max(math.Abs(actual[i]), Epsilon)
		n++
	}
	if n == 0 {
		return 0, ErrNoValues
	}
	return sum / float64(n), nil
}

// MedianAE is the median absolute error. An even number of values averages the middle two.
func MedianAE(predicted, actual []float64) (float64, error) {
	res, err := absErrors(predicted, actual)
	if err != nil {
		return 0, err
	}
	slices.Sort(res)
	mid := len(res) / 2
	if len(res)%2 == 1 {
		return res[mid], nil
	}
	return (res[mid-1] + res[mid]) / 2, nil
}

// Scores summarizes the fit of one predicted series
type Scores struct {
	MAE      float64 `json:"mae"`
	MAPE     float64 `json:"mape"`
	MedianAE float64 `json:"median_ae"`
	MSE      float64 `json:"mse"`
}

func NewScores(predicted, actual []float64) (*Scores, error) {
	mae, err := MAE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	mape, err := MAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute percentage error, %w", err)
	}
	medae, err := MedianAE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute median absolute error, %w", err)
	}
	mse, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	return &Scores{
		MAE:      mae,
		MAPE:     mape,
		MedianAE: medae,
		MSE:      mse,
	}, nil
}
