package seqcast

import (
	"fmt"

	"github.com/aouyang1/go-seqcast/models"
	"github.com/aouyang1/go-seqcast/prepare"
	"github.com/aouyang1/go-seqcast/report"
)

const DefaultName = "window_regression"

// Options configures an Experiment
type Options struct {
	// Name prefixes every metrics record key
	Name string `json:"name"`

	Prepare *prepare.Options      `json:"prepare"`
	Model   *models.WindowOptions `json:"model"`
	Bands   *report.BandOptions   `json:"bands"`

	// InputLength is the number of time steps of every model input and output window
	InputLength int `json:"input_length"`

	// FuturePeriod is the number of recursive steps of a forecast
	FuturePeriod int `json:"future_period"`

	// Ensemble is the number of forecast trajectories. More than one only differ when the model
	// has a dropout rate.
	Ensemble int `json:"ensemble"`
}

func NewDefaultOptions() *Options {
	prep := prepare.NewDefaultOptions()
	prep.SequenceLength = 28
	return &Options{
		Name:         DefaultName,
		Prepare:      prep,
		Model:        models.NewDefaultWindowOptions(),
		Bands:        report.NewDefaultBandOptions(),
		InputLength:  28,
		FuturePeriod: 12,
		Ensemble:     1,
	}
}

// Validate fills missing sections with defaults and checks the window lengths
func (o *Options) Validate() (*Options, error) {
	def := NewDefaultOptions()
	if o == nil {
		return def, nil
	}
	opt := *o
	if opt.Name == "" {
		opt.Name = def.Name
	}
	if opt.Prepare == nil {
		opt.Prepare = def.Prepare
	}
	if opt.Model == nil {
		opt.Model = def.Model
	}
	if opt.Bands == nil {
		opt.Bands = def.Bands
	}
	if opt.InputLength <= 0 {
		return nil, fmt.Errorf("input length %d, %w", opt.InputLength, ErrInvalidOptions)
	}
	if opt.FuturePeriod <= 0 {
		return nil, fmt.Errorf("future period %d, %w", opt.FuturePeriod, ErrInvalidOptions)
	}
	if opt.Ensemble <= 0 {
		return nil, fmt.Errorf("ensemble size %d, %w", opt.Ensemble, ErrInvalidOptions)
	}
	if _, err := opt.Model.Validate(); err != nil {
		return nil, err
	}
	return &opt, nil
}
