// Package scale standardizes features to zero mean and unit variance. A scaler is fit once on
// a training partition and then reused, unchanged, for forward and inverse transforms of any
// array whose last axis is the feature axis.
package scale

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aouyang1/go-seqcast/tensor"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoTrainingData  = errors.New("no training rows to fit scaler")
	ErrFeatureMismatch = errors.New("feature axis does not match fitted scaler")
	ErrUnfitScaler     = errors.New("scaler has not been fit")
	ErrInvalidModel    = errors.New("invalid scaler model")
	ErrNoFiniteValues  = errors.New("feature has no finite training values")
)

// MinStdDev is the smallest standard deviation used as a divisor. Columns with a smaller
// spread are treated as constant and get a scale of 1 so they map to zero and invert back to
// their mean exactly.
const MinStdDev = 1e-12

// Standard is a fitted per feature standardization. It has no mutators so it cannot be refit.
type Standard struct {
	mean  []float64
	scale []float64
}

// Fit computes the population mean and standard deviation of every column of a
// [rows, features] training table. NaN and infinite values are left out of the statistics and
// a column without any finite value is an error. Transforms keep NaN only where the input has
// one.
func Fit(train *tensor.Dense) (*Standard, error) {
	if train == nil {
		return nil, ErrNoTrainingData
	}
	if train.Rank() != 2 {
		return nil, fmt.Errorf("training data must be [rows, features], got %v, %w", train.Shape(), tensor.ErrRank)
	}
	m, n := train.Dim(0), train.Dim(1)
	if m == 0 {
		return nil, ErrNoTrainingData
	}

	s := &Standard{
		mean:  make([]float64, n),
		scale: make([]float64, n),
	}
	for j := 0; j < n; j++ {
		values := finite(train.Col(j))
		if len(values) == 0 {
			slog.Warn("feature has no finite values", "feature", j, "rows", m)
			return nil, fmt.Errorf("feature %d of %d rows, %w", j, m, ErrNoFiniteValues)
		}
		if missing := m - len(values); missing > 0 {
			slog.Warn("ignoring missing values when fitting scaler", "feature", j, "missing", missing, "rows", m)
		}
		mean, std := stat.PopMeanStdDev(values, nil)
		s.mean[j] = mean
		if std < MinStdDev {
			slog.Warn("constant feature, using unit scale", "feature", j, "std", std)
			std = 1.0
		}
		s.scale[j] = std
	}
	return s, nil
}

// finite returns the values that are neither NaN nor infinite
func finite(col []float64) []float64 {
	res := make([]float64, 0, len(col))
	for _, v := range col {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		res = append(res, v)
	}
	return res
}

// FitMatrix fits a scaler on the rows of a gonum matrix
func FitMatrix(train mat.Matrix) (*Standard, error) {
	if train == nil {
		return nil, ErrNoTrainingData
	}
	return Fit(tensor.FromMatrix(train))
}

// Features is the number of fitted features
func (s *Standard) Features() int {
	return len(s.mean)
}

// Mean returns a copy of the fitted feature means
func (s *Standard) Mean() []float64 {
	return append([]float64(nil), s.mean...)
}

// Scale returns a copy of the fitted feature divisors
func (s *Standard) Scale() []float64 {
	return append([]float64(nil), s.scale...)
}

// Transform standardizes x. The leading axes are flattened into rows, each feature is shifted
// by its mean and divided by its scale, and the original shape is restored.
func (s *Standard) Transform(x *tensor.Dense) (*tensor.Dense, error) {
	return s.apply(x, func(v float64, j int) float64 {
		return (v - s.mean[j]) / s.scale[j]
	})
}

// InverseTransform maps standardized values back to original units
func (s *Standard) InverseTransform(x *tensor.Dense) (*tensor.Dense, error) {
	return s.apply(x, func(v float64, j int) float64 {
		return v*s.scale[j] + s.mean[j]
	})
}

func (s *Standard) apply(x *tensor.Dense, fn func(v float64, j int) float64) (*tensor.Dense, error) {
	if s == nil || len(s.mean) == 0 {
		return nil, ErrUnfitScaler
	}
	if x == nil {
		return nil, fmt.Errorf("nil tensor, %w", tensor.ErrUnsupportedType)
	}
	rows, err := x.Rows()
	if err != nil {
		return nil, err
	}
	n := rows.Dim(1)
	if n != len(s.mean) {
		return nil, fmt.Errorf("got %d features, expected %d, %w", n, len(s.mean), ErrFeatureMismatch)
	}

	data := rows.Data()
	for i, v := range data {
		data[i] = fn(v, i%n)
	}

	res, err := tensor.New(x.Shape(), data)
	if err != nil {
		return nil, err
	}
	return res.WithPrecision(x.Precision())
}

// TransformAll standardizes every tensor of a sequence, keeping length and order
func (s *Standard) TransformAll(xs []*tensor.Dense) ([]*tensor.Dense, error) {
	return s.applyAll(xs, s.Transform)
}

// InverseTransformAll inverts every tensor of a sequence, keeping length and order
func (s *Standard) InverseTransformAll(xs []*tensor.Dense) ([]*tensor.Dense, error) {
	return s.applyAll(xs, s.InverseTransform)
}

func (s *Standard) applyAll(xs []*tensor.Dense, fn func(*tensor.Dense) (*tensor.Dense, error)) ([]*tensor.Dense, error) {
	res := make([]*tensor.Dense, 0, len(xs))
	for i, x := range xs {
		r, err := fn(x)
		if err != nil {
			return nil, fmt.Errorf("element %d, %w", i, err)
		}
		res = append(res, r)
	}
	return res, nil
}

// TransformAny accepts either a *tensor.Dense or a []*tensor.Dense and returns the same kind.
// Any other input fails with tensor.ErrUnsupportedType.
func (s *Standard) TransformAny(v any) (any, error) {
	return s.applyAny(v, s.Transform)
}

// InverseTransformAny is the inverse of TransformAny
func (s *Standard) InverseTransformAny(v any) (any, error) {
	return s.applyAny(v, s.InverseTransform)
}

func (s *Standard) applyAny(v any, fn func(*tensor.Dense) (*tensor.Dense, error)) (any, error) {
	members, single, err := tensor.Unpack(v)
	if err != nil {
		return nil, err
	}
	res, err := s.applyAll(members, fn)
	if err != nil {
		return nil, err
	}
	if single {
		return res[0], nil
	}
	return res, nil
}

// TransformMatrix standardizes the rows of a gonum matrix
func (s *Standard) TransformMatrix(m mat.Matrix) (*mat.Dense, error) {
	res, err := s.Transform(tensor.FromMatrix(m))
	if err != nil {
		return nil, err
	}
	return res.Matrix()
}
