package models

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type OLSOptions struct {
	FitIntercept bool `json:"fit_intercept"`

	// Regularization is an L2 (ridge) penalty on the coefficients. The intercept is not
	// penalized.
	Regularization float64 `json:"regularization"`
}

func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept: true,
	}
}

func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		return NewDefaultOLSOptions(), nil
	}
	if o.Regularization < 0 {
		return nil, fmt.Errorf("got %g, %w", o.Regularization, ErrNegativePenalty)
	}
	return o, nil
}

// OLSRegression computes multi output least squares using QR factorization
type OLSRegression struct {
	opt       *OLSOptions
	coef      *mat.Dense
	intercept []float64
}

func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{
		opt: opt,
	}, nil
}

// NewOLSRegressionFromWeights restores a trained regression from its intercept and its
// [features, targets] coefficients
func NewOLSRegressionFromWeights(opt *OLSOptions, intercept []float64, coef *mat.Dense) (*OLSRegression, error) {
	o, err := NewOLSRegression(opt)
	if err != nil {
		return nil, err
	}
	if coef == nil {
		return nil, fmt.Errorf("no coefficients, %w", ErrInvalidModel)
	}
	if _, k := coef.Dims(); k != len(intercept) {
		return nil, fmt.Errorf("%d targets and %d intercepts, %w", k, len(intercept), ErrInvalidModel)
	}
	o.coef = mat.DenseCopyOf(coef)
	o.intercept = slices.Clone(intercept)
	return o, nil
}

// designMatrix prepends a column of ones when fitting an intercept
func (o *OLSRegression) designMatrix(x mat.Matrix) mat.Matrix {
	if !o.opt.FitIntercept {
		return x
	}
	m, _ := x.Dims()
	ones := make([]float64, m)
	floats.AddConst(1.0, ones)

	var xWithOnes mat.Dense
	xWithOnes.Augment(mat.NewDense(m, 1, ones), x)
	return &xWithOnes
}

func (o *OLSRegression) Fit(x, y mat.Matrix) error {
	if o.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, n := x.Dims()
	ym, k := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	design := o.designMatrix(x)
	_, dn := design.Dims()
	target := mat.DenseCopyOf(y)

	// ridge penalty as extra rows sqrt(lambda) * I under the feature columns
	if o.opt.Regularization > 0 {
		offset := dn - n
		penalty := mat.NewDense(n, dn, nil)
		root := math.Sqrt(o.opt.Regularization)
		for i := 0; i < n; i++ {
			penalty.Set(i, i+offset, root)
		}
		var stacked mat.Dense
		stacked.Stack(design, penalty)
		design = &stacked

		var stackedY mat.Dense
		stackedY.Stack(target, mat.NewDense(n, k, nil))
		target = &stackedY
	}

	if rows, _ := design.Dims(); rows < dn {
		return fmt.Errorf("%d samples for %d coefficients, %w", m, dn, ErrUnderdetermined)
	}

	qr := new(mat.QR)
	qr.Factorize(design)

	var c mat.Dense
	if err := qr.SolveTo(&c, false, target); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("unable to solve least squares, %w", err)
		}
		slog.Warn("ill conditioned least squares fit", "condition", float64(cond))
	}

	if o.opt.FitIntercept {
		o.intercept = mat.Row(nil, 0, &c)
		o.coef = mat.DenseCopyOf(c.Slice(1, dn, 0, k))
	} else {
		o.intercept = make([]float64, k)
		o.coef = &c
	}
	return nil
}

func (o *OLSRegression) Predict(x mat.Matrix) (*mat.Dense, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if o.coef == nil {
		return nil, ErrUntrained
	}

	m, n := x.Dims()
	cn, _ := o.coef.Dims()
	if n != cn {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, cn, ErrFeatureLenMismatch)
	}

	var res mat.Dense
	res.Mul(x, o.coef)
	for i := 0; i < m; i++ {
		floats.Add(res.RawRowView(i), o.intercept)
	}
	return &res, nil
}

// Score returns the r-squared of the predictions over every target value
func (o *OLSRegression) Score(x, y mat.Matrix) (float64, error) {
	if o.opt == nil {
		return 0.0, ErrNoOptions
	}
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}

	m, _ := x.Dims()
	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := o.Predict(x)
	if err != nil {
		return 0.0, err
	}

	predicted := mat.DenseCopyOf(res).RawMatrix().Data
	actual := mat.DenseCopyOf(y).RawMatrix().Data
	return stat.RSquaredFrom(predicted, actual, nil), nil
}

func (o *OLSRegression) Intercept() []float64 {
	return append([]float64(nil), o.intercept...)
}

func (o *OLSRegression) Coef() *mat.Dense {
	if o.coef == nil {
		return nil
	}
	return mat.DenseCopyOf(o.coef)
}
