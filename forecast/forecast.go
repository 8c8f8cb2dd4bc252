// Package forecast produces multi period forecasts by feeding a window model its own
// predictions, optionally repeating the trajectory to sample a stochastic model.
package forecast

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-seqcast/scale"
	"github.com/aouyang1/go-seqcast/tensor"
)

var (
	ErrNoModel          = errors.New("no forecast model")
	ErrNoInput          = errors.New("no last known window")
	ErrInvalidOptions   = errors.New("invalid forecast options")
	ErrShapeMismatch    = errors.New("model output shape does not match its input shape")
	ErrEnsembleOutRange = errors.New("ensemble member out of range")
)

// Model maps a [1, steps, features] window onto the window that follows it
type Model interface {
	Predict(x *tensor.Dense) (*tensor.Dense, error)
}

// ModelFunc adapts a function to a Model
type ModelFunc func(x *tensor.Dense) (*tensor.Dense, error)

func (f ModelFunc) Predict(x *tensor.Dense) (*tensor.Dense, error) {
	return f(x)
}

// Options configures a recursive forecast
type Options struct {
	// FuturePeriod is the number of recursive model calls
	FuturePeriod int `json:"future_period"`

	// InputLength is the number of time steps in the window fed to the model
	InputLength int `json:"input_length"`

	// Ensemble is the number of trajectories generated from the same starting window. One is a
	// plain forecast.
	Ensemble int `json:"ensemble"`

	// Scaler inverse transforms every step output when set
	Scaler *scale.Standard `json:"-"`

	Anchor Anchor `json:"-"`
}

func NewDefaultOptions() *Options {
	return &Options{
		FuturePeriod: 12,
		InputLength:  28,
		Ensemble:     1,
	}
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	if o.FuturePeriod <= 0 {
		return nil, fmt.Errorf("future period %d, %w", o.FuturePeriod, ErrInvalidOptions)
	}
	if o.InputLength <= 0 {
		return nil, fmt.Errorf("input length %d, %w", o.InputLength, ErrInvalidOptions)
	}
	if o.Ensemble <= 0 {
		return nil, fmt.Errorf("ensemble size %d, %w", o.Ensemble, ErrInvalidOptions)
	}
	return o, nil
}

// Recursive forecasts FuturePeriod steps from the last known window. The first model input is
// last reshaped to [1, InputLength, features]; every later input is the previous raw output,
// which must have the same shape as the input that produced it. The whole trajectory is
// generated Ensemble times in sequence.
func Recursive(m Model, last *tensor.Dense, opt *Options) (*Result, error) {
	if m == nil {
		return nil, ErrNoModel
	}
	if last == nil {
		return nil, ErrNoInput
	}
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	start, err := last.Reshape(1, opt.InputLength, -1)
	if err != nil {
		return nil, fmt.Errorf("unable to shape last window %v into %d steps, %w", last.Shape(), opt.InputLength, err)
	}

	res := &Result{
		Trajectories: make([][]*tensor.Dense, 0, opt.Ensemble),
		Dates:        opt.Anchor.Labels(opt.FuturePeriod, opt.InputLength),
	}
	for e := 0; e < opt.Ensemble; e++ {
		trajectory, err := rollout(m, start, opt.FuturePeriod)
		if err != nil {
			return nil, fmt.Errorf("ensemble member %d, %w", e, err)
		}
		if opt.Scaler != nil {
			trajectory, err = opt.Scaler.InverseTransformAll(trajectory)
			if err != nil {
				return nil, fmt.Errorf("unable to inverse scale ensemble member %d, %w", e, err)
			}
		}
		res.Trajectories = append(res.Trajectories, trajectory)
	}
	return res, nil
}

func rollout(m Model, start *tensor.Dense, steps int) ([]*tensor.Dense, error) {
	trajectory := make([]*tensor.Dense, 0, steps)
	x := start
	for k := 0; k < steps; k++ {
		y, err := m.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("step %d, %w", k, err)
		}
		if !tensor.SameShape(x, y) {
			var got []int
			if y != nil {
				got = y.Shape()
			}
			return nil, fmt.Errorf("step %d returned %v for input %v, %w", k, got, x.Shape(), ErrShapeMismatch)
		}
		trajectory = append(trajectory, y)
		x = y
	}
	return trajectory, nil
}
