package models

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/aouyang1/go-seqcast/floatsunrolled"
	"github.com/aouyang1/go-seqcast/tensor"
	"github.com/aouyang1/go-seqcast/window"
	"gonum.org/v1/gonum/mat"
)

// WindowOptions configures a WindowRegression
type WindowOptions struct {
	// Regularization is the ridge penalty of the underlying least squares fit
	Regularization float64 `json:"regularization"`

	// DropoutRate is the probability of zeroing an input value at inference. Values that are
	// kept are scaled by 1/(1-rate). A positive rate makes repeated predictions differ, which
	// is what a dropout ensemble samples.
	DropoutRate float64 `json:"dropout_rate"`

	Seed uint64 `json:"seed"`
}

func NewDefaultWindowOptions() *WindowOptions {
	return &WindowOptions{
		Regularization: 1e-3,
		Seed:           1,
	}
}

func (o *WindowOptions) Validate() (*WindowOptions, error) {
	if o == nil {
		return NewDefaultWindowOptions(), nil
	}
	if o.DropoutRate < 0 || o.DropoutRate >= 1 {
		return nil, fmt.Errorf("got %g, %w", o.DropoutRate, ErrInvalidDropout)
	}
	if o.Regularization < 0 {
		return nil, fmt.Errorf("got %g, %w", o.Regularization, ErrNegativePenalty)
	}
	return o, nil
}

// WindowRegression maps a flattened input window onto a flattened output window with a linear
// least squares fit. Trained on pairs whose targets have the same layout as the inputs it can
// be applied recursively.
type WindowRegression struct {
	opt *WindowOptions
	reg Model
	rng *rand.Rand

	inShape  []int
	outShape []int
}

func NewWindowRegression(opt *WindowOptions) (*WindowRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	ols, err := NewOLSRegression(olsOptions(opt))
	if err != nil {
		return nil, err
	}
	return &WindowRegression{
		opt: opt,
		reg: ols,
		rng: rand.New(rand.NewPCG(opt.Seed, opt.Seed)),
	}, nil
}

func olsOptions(opt *WindowOptions) *OLSOptions {
	return &OLSOptions{
		FitIntercept:   true,
		Regularization: opt.Regularization,
	}
}

func sampleShape(d *tensor.Dense) []int {
	return d.Shape()[1:]
}

func flatSize(shape []int) int {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return size
}

// Fit trains on window pairs. Both X and Y may be flattened or not; the sample shapes are
// remembered so predictions come back in the target layout.
func (w *WindowRegression) Fit(p *window.Pairs) error {
	if p == nil || p.X == nil {
		return ErrNoTrainingMatrix
	}
	if p.Y == nil {
		return ErrNoTargetMatrix
	}
	if p.X.Rank() < 2 || p.Y.Rank() < 2 {
		return fmt.Errorf("pairs must be batched, got %v and %v, %w", p.X.Shape(), p.Y.Shape(), tensor.ErrRank)
	}
	if p.Len() == 0 {
		return fmt.Errorf("no samples, %w", ErrNoTrainingMatrix)
	}

	x, err := p.X.Flatten().Matrix()
	if err != nil {
		return fmt.Errorf("unable to build design matrix, %w", err)
	}
	y, err := p.Y.Flatten().Matrix()
	if err != nil {
		return fmt.Errorf("unable to build target matrix, %w", err)
	}
	if err := w.reg.Fit(x, y); err != nil {
		return err
	}
	w.inShape = sampleShape(p.X)
	w.outShape = sampleShape(p.Y)
	return nil
}

// InputShape is the shape of one input sample seen during training
func (w *WindowRegression) InputShape() []int {
	return slices.Clone(w.inShape)
}

// OutputShape is the shape of one predicted sample
func (w *WindowRegression) OutputShape() []int {
	return slices.Clone(w.outShape)
}

// Predict forecasts the output window of each sample of the [batch, ...] input. The result is
// [batch, OutputShape...]. Dropout is applied to the inputs when configured.
func (w *WindowRegression) Predict(x *tensor.Dense) (*tensor.Dense, error) {
	return w.predict(x, w.opt.DropoutRate > 0)
}

func (w *WindowRegression) predict(x *tensor.Dense, dropout bool) (*tensor.Dense, error) {
	if w.inShape == nil {
		return nil, ErrUntrained
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if x.Rank() < 1 {
		return nil, fmt.Errorf("scalar input, %w", tensor.ErrRank)
	}

	batch := x.Dim(0)
	inSize := flatSize(w.inShape)
	if batch == 0 || x.Size() != batch*inSize {
		return nil, fmt.Errorf("input shape %v does not hold batches of %v, %w", x.Shape(), w.inShape, ErrFeatureLenMismatch)
	}

	data := x.Data()
	if dropout {
		mask := make([]float64, len(data))
		for i := range mask {
			if w.rng.Float64() >= w.opt.DropoutRate {
				mask[i] = 1
			}
		}
		// inverted dropout keeps the expected input unchanged
		floatsunrolled.ScaleTo(mask, 1/(1-w.opt.DropoutRate), mask)
		floatsunrolled.MulTo(data, data, mask)
	}

	res, err := w.reg.Predict(mat.NewDense(batch, inSize, data))
	if err != nil {
		return nil, err
	}
	out := append([]int{batch}, w.outShape...)
	return tensor.New(out, res.RawMatrix().Data)
}

// Score is the r-squared of dropout free predictions against the targets of the pairs
func (w *WindowRegression) Score(p *window.Pairs) (float64, error) {
	if p == nil || p.X == nil || p.Y == nil {
		return 0, ErrNoDesignMatrix
	}
	x, err := p.X.Flatten().Matrix()
	if err != nil {
		return 0, err
	}
	y, err := p.Y.Flatten().Matrix()
	if err != nil {
		return 0, err
	}
	return w.reg.Score(x, y)
}

// PredictDeterministic predicts without dropout regardless of the configured rate
func (w *WindowRegression) PredictDeterministic(x *tensor.Dense) (*tensor.Dense, error) {
	return w.predict(x, false)
}

// WindowModel is a serializeable form of a trained WindowRegression
type WindowModel struct {
	Options     *WindowOptions `json:"options"`
	InputShape  []int          `json:"input_shape"`
	OutputShape []int          `json:"output_shape"`
	Intercept   []float64      `json:"intercept"`
	Coef        [][]float64    `json:"coefficients"`
}

// Model exports the trained weights
func (w *WindowRegression) Model() (WindowModel, error) {
	if w.inShape == nil {
		return WindowModel{}, ErrUntrained
	}
	coef := w.reg.Coef()
	r, _ := coef.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = mat.Row(nil, i, coef)
	}
	return WindowModel{
		Options:     w.opt,
		InputShape:  w.InputShape(),
		OutputShape: w.OutputShape(),
		Intercept:   w.reg.Intercept(),
		Coef:        rows,
	}, nil
}

// NewWindowRegressionFromModel restores a trained WindowRegression ready for inference
func NewWindowRegressionFromModel(m WindowModel) (*WindowRegression, error) {
	w, err := NewWindowRegression(m.Options)
	if err != nil {
		return nil, err
	}
	inSize := flatSize(m.InputShape)
	outSize := flatSize(m.OutputShape)
	if len(m.InputShape) == 0 || len(m.OutputShape) == 0 || len(m.Coef) != inSize || len(m.Intercept) != outSize {
		return nil, fmt.Errorf("weights do not match shapes %v -> %v, %w", m.InputShape, m.OutputShape, ErrInvalidModel)
	}
	data := make([]float64, 0, inSize*outSize)
	for i, row := range m.Coef {
		if len(row) != outSize {
			return nil, fmt.Errorf("coefficient row %d has %d values, expected %d, %w", i, len(row), outSize, ErrInvalidModel)
		}
		data = append(data, row...)
	}

	w.reg, err = NewOLSRegressionFromWeights(olsOptions(w.opt), m.Intercept, mat.NewDense(inSize, outSize, data))
	if err != nil {
		return nil, err
	}
	w.inShape = slices.Clone(m.InputShape)
	w.outShape = slices.Clone(m.OutputShape)
	return w, nil
}
