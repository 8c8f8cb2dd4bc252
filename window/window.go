// Package window turns a time ordered table into overlapping supervised (X, y) samples for
// single step and multi step sequence models.
package window

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-seqcast/tensor"
)

var (
	ErrInvalidLength = errors.New("window length must be positive")
	ErrNoData        = errors.New("no input table")
)

// Options configures the layout and precision of generated windows
type Options struct {
	// Flatten collapses the time and feature axes of every sample into one axis
	Flatten bool `json:"flatten"`

	// Precision of the returned tensors. Half precision is lossy.
	Precision tensor.Precision `json:"precision"`
}

func NewDefaultOptions() *Options {
	return &Options{
		Precision: tensor.PrecisionFull,
	}
}

// Pairs holds the model inputs X and their targets Y. Sample i of X is followed in time by
// sample i of Y.
type Pairs struct {
	X *tensor.Dense
	Y *tensor.Dense

	InputLength  int
	OutputLength int
	Features     int
}

// Len returns the number of samples
func (p *Pairs) Len() int {
	if p == nil || p.X == nil {
		return 0
	}
	return p.X.Dim(0)
}

// Sequences builds single horizon windows. For each start i in [0, N-seqLen) the input is
// rows [i, i+seqLen) and the target is row i+seqLen. X is [samples, seqLen, features] and Y
// is [samples, features]. A table with N <= seqLen gives zero samples.
func Sequences(data *tensor.Dense, seqLen int, opt *Options) (*Pairs, error) {
	if seqLen <= 0 {
		return nil, fmt.Errorf("sequence length %d, %w", seqLen, ErrInvalidLength)
	}
	return build(data, seqLen, 1, true, opt)
}

// SequencesMany builds multi horizon windows. For each start i in [0, N-inLen-outLen+1) the
// input is rows [i, i+inLen) and the target is rows [i+inLen, i+inLen+outLen). X is
// [samples, inLen, features] and Y is [samples, outLen, features].
func SequencesMany(data *tensor.Dense, inLen, outLen int, opt *Options) (*Pairs, error) {
	if inLen <= 0 {
		return nil, fmt.Errorf("input length %d, %w", inLen, ErrInvalidLength)
	}
	if outLen <= 0 {
		return nil, fmt.Errorf("output length %d, %w", outLen, ErrInvalidLength)
	}
	return build(data, inLen, outLen, false, opt)
}

func build(data *tensor.Dense, inLen, outLen int, single bool, opt *Options) (*Pairs, error) {
	if data == nil {
		return nil, ErrNoData
	}
	if data.Rank() != 2 {
		return nil, fmt.Errorf("table must be [rows, features], got shape %v, %w", data.Shape(), tensor.ErrRank)
	}
	if opt == nil {
		opt = NewDefaultOptions()
	}

	n, f := data.Dim(0), data.Dim(1)
	count := n - inLen - outLen + 1
	if count < 0 {
		count = 0
	}

	rows := data.Data()
	x := make([]float64, 0, count*inLen*f)
	y := make([]float64, 0, count*outLen*f)
	for i := 0; i < count; i++ {
		x = append(x, rows[i*f:(i+inLen)*f]...)
		y = append(y, rows[(i+inLen)*f:(i+inLen+outLen)*f]...)
	}

	xShape := []int{count, inLen, f}
	yShape := []int{count, outLen, f}
	if single {
		yShape = []int{count, f}
	}
	if opt.Flatten {
		xShape = []int{count, inLen * f}
		yShape = []int{count, outLen * f}
	}

	X, err := tensor.New(xShape, x)
	if err != nil {
		return nil, err
	}
	Y, err := tensor.New(yShape, y)
	if err != nil {
		return nil, err
	}
	if X, err = X.WithPrecision(opt.Precision); err != nil {
		return nil, err
	}
	if Y, err = Y.WithPrecision(opt.Precision); err != nil {
		return nil, err
	}

	return &Pairs{
		X:            X,
		Y:            Y,
		InputLength:  inLen,
		OutputLength: outLen,
		Features:     f,
	}, nil
}

// Finite keeps the samples whose inputs and targets hold no NaN or infinite value and reports
// how many were dropped. Order and precision are preserved.
func (p *Pairs) Finite() (*Pairs, int, error) {
	n := p.Len()
	if n == 0 {
		return p, 0, nil
	}
	xs, ys := p.X.Data(), p.Y.Data()
	xSize, ySize := len(xs)/n, len(ys)/n

	x := make([]float64, 0, len(xs))
	y := make([]float64, 0, len(ys))
	var kept int
	for i := 0; i < n; i++ {
		xi := xs[i*xSize : (i+1)*xSize]
		yi := ys[i*ySize : (i+1)*ySize]
		if !allFinite(xi) || !allFinite(yi) {
			continue
		}
		x = append(x, xi...)
		y = append(y, yi...)
		kept++
	}
	if kept == n {
		return p, 0, nil
	}

	xShape := append([]int{kept}, p.X.Shape()[1:]...)
	yShape := append([]int{kept}, p.Y.Shape()[1:]...)
	X, err := tensor.New(xShape, x)
	if err != nil {
		return nil, 0, err
	}
	Y, err := tensor.New(yShape, y)
	if err != nil {
		return nil, 0, err
	}
	if X, err = X.WithPrecision(p.X.Precision()); err != nil {
		return nil, 0, err
	}
	if Y, err = Y.WithPrecision(p.Y.Precision()); err != nil {
		return nil, 0, err
	}
	return &Pairs{
		X:            X,
		Y:            Y,
		InputLength:  p.InputLength,
		OutputLength: p.OutputLength,
		Features:     p.Features,
	}, n - kept, nil
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
