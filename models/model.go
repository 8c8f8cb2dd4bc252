// Package models holds the regression models used to map an input window to a forecast window.
package models

import (
	"gonum.org/v1/gonum/mat"
)

// Model is a multi output linear regression of a [samples, features] design matrix onto a
// [samples, targets] target matrix.
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) (*mat.Dense, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() []float64
	Coef() *mat.Dense
}
