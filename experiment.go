// Package seqcast trains window to window forecasting models on date indexed market tables,
// forecasts recursively and reports the fit.
package seqcast

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/aouyang1/go-seqcast/forecast"
	"github.com/aouyang1/go-seqcast/models"
	"github.com/aouyang1/go-seqcast/prepare"
	"github.com/aouyang1/go-seqcast/report"
	"github.com/aouyang1/go-seqcast/scale"
	"github.com/aouyang1/go-seqcast/table"
	"github.com/aouyang1/go-seqcast/tensor"
	"github.com/aouyang1/go-seqcast/window"
	"gonum.org/v1/plot"
)

var (
	ErrInvalidOptions = errors.New("invalid experiment options")
	ErrNotFit         = errors.New("experiment has not been fit yet")
	ErrNoTable        = errors.New("no input table")
	ErrShortHistory   = errors.New("not enough history before the test date for one input window")
	ErrNoWindows      = errors.New("no training windows")
)

// Experiment splits a table at a test date, trains a window regression on the standardized train
// partition and forecasts the test period recursively
type Experiment struct {
	opt    *Options
	scaler *scale.Standard
	model  *models.WindowRegression

	// set by Fit
	tbl     *table.Table
	dataset *prepare.Dataset
	train   *window.Pairs
	test    *window.Pairs
}

// New creates an experiment with the given options. If none are provided a default is used.
func New(opt *Options) (*Experiment, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Experiment{opt: opt}, nil
}

// Options returns the validated options of the experiment
func (e *Experiment) Options() *Options {
	return e.opt
}

// Scaler returns the scaler fit on the train partition
func (e *Experiment) Scaler() *scale.Standard {
	return e.scaler
}

// Regression returns the trained window model
func (e *Experiment) Regression() *models.WindowRegression {
	return e.model
}

// Dataset returns the partitions and scaler produced by Fit. It holds no single horizon
// windows since the experiment trains on multi horizon windows built from the partitions.
func (e *Experiment) Dataset() *prepare.Dataset {
	return e.dataset
}

// windows standardizes the predictors of tbl and builds input and output windows of equal length
func (e *Experiment) windows(scaler *scale.Standard, tbl *table.Table) (*window.Pairs, error) {
	data, err := tbl.Select(e.opt.Prepare.Predictors...)
	if err != nil {
		return nil, err
	}
	scaled, err := scaler.Transform(data)
	if err != nil {
		return nil, err
	}
	return window.SequencesMany(scaled, e.opt.InputLength, e.opt.InputLength, &window.Options{
		Precision: e.opt.Prepare.Precision,
	})
}

// fillMissing replaces NaN and infinite inputs with 0, the standardized mean, so a single
// missing value does not turn a whole prediction into NaN
func fillMissing(x *tensor.Dense) (*tensor.Dense, error) {
	data := x.Data()
	var missing int
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data[i] = 0
			missing++
		}
	}
	if missing == 0 {
		return x, nil
	}
	slog.Debug("filled missing inputs with the mean", "missing", missing, "shape", x.Shape())
	res, err := tensor.New(x.Shape(), data)
	if err != nil {
		return nil, err
	}
	return res.WithPrecision(x.Precision())
}

// Fit splits tbl at the test date and trains the window regression on the train partition.
// Training windows holding a missing value are left out of the fit. A failed Fit leaves the
// experiment as it was.
func (e *Experiment) Fit(tbl *table.Table) error {
	ds, err := prepare.Partition(tbl, e.opt.Prepare)
	if err != nil {
		return fmt.Errorf("unable to split table, %w", err)
	}

	train, err := e.windows(ds.Scaler, ds.TrainTable)
	if err != nil {
		return fmt.Errorf("unable to window train partition, %w", err)
	}
	fitPairs, dropped, err := train.Finite()
	if err != nil {
		return fmt.Errorf("unable to drop incomplete train windows, %w", err)
	}
	if dropped > 0 {
		slog.Warn("left incomplete train windows out of the fit", "dropped", dropped, "windows", train.Len())
	}
	if fitPairs.Len() == 0 {
		return fmt.Errorf("%d train rows for windows of %d, %w", ds.TrainTable.Len(), e.opt.InputLength, ErrNoWindows)
	}
	test, err := e.windows(ds.Scaler, ds.TestTable)
	if err != nil {
		return fmt.Errorf("unable to window test partition, %w", err)
	}
	if test.Len() == 0 {
		slog.Warn("no test windows", "test_rows", ds.TestTable.Len(), "input_length", e.opt.InputLength)
	}

	model, err := models.NewWindowRegression(e.opt.Model)
	if err != nil {
		return err
	}
	if err := model.Fit(fitPairs); err != nil {
		return fmt.Errorf("unable to fit window regression, %w", err)
	}
	score, err := model.Score(fitPairs)
	if err != nil {
		return fmt.Errorf("unable to score window regression, %w", err)
	}

	e.scaler = ds.Scaler
	e.model = model
	e.tbl = tbl
	e.dataset = ds
	e.train = train
	e.test = test

	slog.Info("fit window regression",
		"name", e.opt.Name,
		"train_windows", fitPairs.Len(),
		"test_windows", test.Len(),
		"r2", score,
	)
	return nil
}

// Trajectories forecasts FuturePeriod windows after the test date from the last InputLength rows
// of tbl before it. Outputs are in original units and dated from the test date.
func (e *Experiment) Trajectories(tbl *table.Table) (*forecast.Result, error) {
	if e.model == nil || e.scaler == nil {
		return nil, ErrNotFit
	}
	if tbl == nil {
		return nil, ErrNoTable
	}
	testDate := e.opt.Prepare.TestDate
	history := tbl.Before(testDate)
	if history.Len() < e.opt.InputLength {
		return nil, fmt.Errorf("%d rows before %s, %w", history.Len(), testDate.Format(time.DateOnly), ErrShortHistory)
	}
	data, err := history.Tail(e.opt.InputLength).Select(e.opt.Prepare.Predictors...)
	if err != nil {
		return nil, err
	}
	last, err := e.scaler.Transform(data)
	if err != nil {
		return nil, err
	}
	if last, err = fillMissing(last); err != nil {
		return nil, err
	}
	return forecast.Recursive(e.model, last, &forecast.Options{
		FuturePeriod: e.opt.FuturePeriod,
		InputLength:  e.opt.InputLength,
		Ensemble:     e.opt.Ensemble,
		Scaler:       e.scaler,
		Anchor:       forecast.DatesFrom(testDate, tbl),
	})
}

// columnIndex is the predictor position of the plotted column
func (e *Experiment) columnIndex() (int, error) {
	idx := slices.Index(e.opt.Prepare.Predictors, e.opt.Bands.Column)
	if idx < 0 {
		return 0, fmt.Errorf("%s is not a predictor, %w", e.opt.Bands.Column, table.ErrUnknownColumn)
	}
	return idx, nil
}

// Forecast summarizes Trajectories for the plotted column
func (e *Experiment) Forecast(tbl *table.Table) (*Results, error) {
	traj, err := e.Trajectories(tbl)
	if err != nil {
		return nil, err
	}
	idx, err := e.columnIndex()
	if err != nil {
		return nil, err
	}
	members, err := traj.Members()
	if err != nil {
		return nil, err
	}

	n := members[0].Dim(0)
	res := &Results{
		T:        traj.FlatDates(),
		Forecast: make([]float64, n),
		Upper:    members[0].Col(idx),
		Lower:    members[0].Col(idx),
	}
	for _, m := range members {
		col := m.Col(idx)
		for i, v := range col {
			res.Forecast[i] += v / float64(len(members))
			res.Upper[i] = max(res.Upper[i], v)
			res.Lower[i] = min(res.Lower[i], v)
		}
	}
	return res, nil
}

// predictWindows predicts every sample of x. Zero samples give an empty prediction shaped like
// the model output.
func (e *Experiment) predictWindows(x *tensor.Dense, stochastic bool) (*tensor.Dense, error) {
	if x.Dim(0) == 0 {
		return tensor.Zeros(append([]int{0}, e.model.OutputShape()...)...), nil
	}
	x, err := fillMissing(x)
	if err != nil {
		return nil, err
	}
	if stochastic {
		return e.model.Predict(x)
	}
	return e.model.PredictDeterministic(x)
}

// testPredictions returns one tensor, or the ensemble members when the model samples dropout
func (e *Experiment) testPredictions() (any, error) {
	if e.opt.Ensemble == 1 || e.opt.Model.DropoutRate == 0 {
		return e.predictWindows(e.test.X, false)
	}
	members := make([]*tensor.Dense, 0, e.opt.Ensemble)
	for i := 0; i < e.opt.Ensemble; i++ {
		m, err := e.predictWindows(e.test.X, true)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// predictionSet holds in sample predictions and true targets in original units
type predictionSet struct {
	trainTrue *tensor.Dense
	trainPred *tensor.Dense
	testTrue  *tensor.Dense
	testPred  any
}

func (e *Experiment) fitPredictions() (*predictionSet, error) {
	if e.model == nil || e.train == nil {
		return nil, ErrNotFit
	}
	res := &predictionSet{}

	var err error
	if res.trainTrue, err = e.scaler.InverseTransform(e.train.Y); err != nil {
		return nil, err
	}
	pred, err := e.predictWindows(e.train.X, false)
	if err != nil {
		return nil, err
	}
	if res.trainPred, err = e.scaler.InverseTransform(pred); err != nil {
		return nil, err
	}
	if res.testTrue, err = e.scaler.InverseTransform(e.test.Y); err != nil {
		return nil, err
	}
	scaled, err := e.testPredictions()
	if err != nil {
		return nil, err
	}
	if res.testPred, err = e.scaler.InverseTransformAny(scaled); err != nil {
		return nil, err
	}
	return res, nil
}

// Evaluate scores the train and test window predictions and appends the records to store
func (e *Experiment) Evaluate(store *report.Store) error {
	p, err := e.fitPredictions()
	if err != nil {
		return err
	}
	if err := report.Save(store, e.opt.Name, p.trainTrue, p.trainPred, p.testTrue, p.testPred); err != nil {
		return fmt.Errorf("unable to save metrics, %w", err)
	}
	slog.Info("saved metrics", "name", e.opt.Name, "path", store.Path())
	return nil
}

func (e *Experiment) bandData() (*report.BandData, error) {
	p, err := e.fitPredictions()
	if err != nil {
		return nil, err
	}
	return &report.BandData{
		TrainPred:  p.trainPred,
		TrainStart: e.dataset.TrainTable.T[e.opt.InputLength],
		TestPred:   p.testPred,
		Split:      e.opt.Prepare.TestDate,
		Table:      e.tbl,
	}, nil
}

// Figure draws the train and test prediction bands over the fit table
func (e *Experiment) Figure() (*plot.Plot, error) {
	data, err := e.bandData()
	if err != nil {
		return nil, err
	}
	return report.PlotBands(data, e.opt.Bands)
}

// PlotFit uses the Apache Echarts library to write an html page showing the prediction bands and
// the recursive forecast against the fit table
func (e *Experiment) PlotFit(w io.Writer) error {
	data, err := e.bandData()
	if err != nil {
		return err
	}
	bands, err := report.LineBands(data, e.opt.Bands)
	if err != nil {
		return fmt.Errorf("unable to chart prediction bands, %w", err)
	}
	res, err := e.Forecast(e.tbl)
	if err != nil {
		return fmt.Errorf("unable to forecast, %w", err)
	}
	line, err := LineForecast(e.tbl, e.opt.Bands.Column, res)
	if err != nil {
		return err
	}
	return report.RenderHTML(w, bands, line)
}

// Model generates a serializeable representation of the options, scaler and window regression.
// It can be used to initialize a new Experiment that forecasts without training.
func (e *Experiment) Model() (Model, error) {
	if e.model == nil || e.scaler == nil {
		return Model{}, ErrNotFit
	}
	regression, err := e.model.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch regression model, %w", err)
	}
	return Model{
		Options:    e.opt,
		Scaler:     e.scaler.Model(),
		Regression: regression,
	}, nil
}

// NewFromModel creates an experiment from a previous call to Model(). It can forecast
// immediately but has no fit table to evaluate or plot.
func NewFromModel(m Model) (*Experiment, error) {
	if m.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	e, err := New(m.Options)
	if err != nil {
		return nil, err
	}
	e.scaler, err = scale.NewFromModel(m.Scaler)
	if err != nil {
		return nil, fmt.Errorf("unable to load scaler, %w", err)
	}
	e.model, err = models.NewWindowRegressionFromModel(m.Regression)
	if err != nil {
		return nil, fmt.Errorf("unable to load regression, %w", err)
	}
	return e, nil
}
