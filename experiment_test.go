package seqcast

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/go-seqcast/models"
	"github.com/aouyang1/go-seqcast/prepare"
	"github.com/aouyang1/go-seqcast/report"
	"github.com/aouyang1/go-seqcast/table"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func simulateTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.Simulate(&table.SimulateOptions{
		Start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Rows:    200,
		Seed:    3,
		Columns: []string{"EUA", "Oil"},
	})
	require.Nil(t, err)
	return tbl
}

func testOptions() *Options {
	opt := NewDefaultOptions()
	opt.Prepare = &prepare.Options{
		DateColumn:     table.DefaultDateColumn,
		TestDate:       testDate,
		SequenceLength: 5,
		Predictors:     []string{"EUA", "Oil"},
	}
	opt.InputLength = 5
	opt.FuturePeriod = 3
	return opt
}

func fitExperiment(t *testing.T, opt *Options) (*Experiment, *table.Table) {
	t.Helper()
	tbl := simulateTable(t)
	e, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, e.Fit(tbl))
	return e, tbl
}

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt *Options
		err error
	}{
		"nil": {
			opt: nil,
		},
		"missing sections": {
			opt: &Options{InputLength: 2, FuturePeriod: 2, Ensemble: 1},
		},
		"input length": {
			opt: &Options{InputLength: 0, FuturePeriod: 2, Ensemble: 1},
			err: ErrInvalidOptions,
		},
		"future period": {
			opt: &Options{InputLength: 2, FuturePeriod: 0, Ensemble: 1},
			err: ErrInvalidOptions,
		},
		"ensemble": {
			opt: &Options{InputLength: 2, FuturePeriod: 2, Ensemble: 0},
			err: ErrInvalidOptions,
		},
		"dropout": {
			opt: &Options{InputLength: 2, FuturePeriod: 2, Ensemble: 1, Model: &models.WindowOptions{DropoutRate: 2}},
			err: models.ErrInvalidDropout,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.NotNil(t, opt.Prepare)
			assert.NotNil(t, opt.Model)
			assert.NotNil(t, opt.Bands)
			assert.NotEmpty(t, opt.Name)
		})
	}
}

func TestExperimentFit(t *testing.T) {
	e, _ := fitExperiment(t, testOptions())

	assert.Equal(t, []int{5, 2}, e.Regression().InputShape())
	assert.Equal(t, []int{5, 2}, e.Regression().OutputShape())
	assert.Equal(t, 2, e.Scaler().Features())
	assert.True(t, e.Dataset().TrainTable.EndTime().Before(testDate))
}

func TestExperimentForecast(t *testing.T) {
	e, tbl := fitExperiment(t, testOptions())

	res, err := e.Forecast(tbl)
	require.Nil(t, err)
	require.Len(t, res.T, 15)
	assert.Equal(t, testDate, res.T[0])
	assert.Equal(t, testDate.AddDate(0, 0, 14), res.T[14])

	// a single deterministic trajectory has no spread
	assert.Equal(t, res.Forecast, res.Upper)
	assert.Equal(t, res.Forecast, res.Lower)

	// forecasts stay in the range of the original units
	eua, err := tbl.Column("EUA")
	require.Nil(t, err)
	assert.InDelta(t, eua[len(eua)/2], res.Forecast[0], 50)
}

func TestExperimentEnsemble(t *testing.T) {
	opt := testOptions()
	opt.Ensemble = 4
	opt.Model = &models.WindowOptions{Regularization: 1e-3, DropoutRate: 0.3, Seed: 9}
	e, tbl := fitExperiment(t, opt)

	traj, err := e.Trajectories(tbl)
	require.Nil(t, err)
	assert.Equal(t, 4, traj.Ensemble())

	res, err := e.Forecast(tbl)
	require.Nil(t, err)
	spread := false
	for i := range res.Forecast {
		assert.LessOrEqual(t, res.Lower[i], res.Forecast[i]+1e-9)
		assert.GreaterOrEqual(t, res.Upper[i], res.Forecast[i]-1e-9)
		if res.Upper[i] > res.Lower[i] {
			spread = true
		}
	}
	assert.True(t, spread)
}

func TestExperimentEvaluate(t *testing.T) {
	e, _ := fitExperiment(t, testOptions())
	store := report.NewStore(filepath.Join(t.TempDir(), report.DefaultStorePath))

	require.Nil(t, e.Evaluate(store))
	records, err := store.Records()
	require.Nil(t, err)
	require.Len(t, records, 6)

	key, values, err := records[0].Entry()
	require.Nil(t, err)
	assert.Equal(t, "window_regression_mae_train", key)
	assert.Len(t, values, e.train.Len())

	key, values, err = records[5].Entry()
	require.Nil(t, err)
	assert.Equal(t, "window_regression_p50ae_test", key)
	assert.Len(t, values, e.test.Len())
}

func TestExperimentPlots(t *testing.T) {
	e, _ := fitExperiment(t, testOptions())

	var buf bytes.Buffer
	require.Nil(t, e.PlotFit(&buf))
	assert.Contains(t, buf.String(), "Forecast")

	p, err := e.Figure()
	require.Nil(t, err)
	assert.NotNil(t, p)
}

func TestExperimentModel(t *testing.T) {
	e, tbl := fitExperiment(t, testOptions())

	m, err := e.Model()
	require.Nil(t, err)
	out, err := json.Marshal(m)
	require.Nil(t, err)

	var decoded Model
	require.Nil(t, json.Unmarshal(out, &decoded))

	restored, err := NewFromModel(decoded)
	require.Nil(t, err)

	expected, err := e.Forecast(tbl)
	require.Nil(t, err)
	actual, err := restored.Forecast(tbl)
	require.Nil(t, err)
	assert.Equal(t, expected.T, actual.T)
	assert.InDeltaSlice(t, expected.Forecast, actual.Forecast, 1e-9)

	// a restored experiment has no fit table
	err = restored.Evaluate(report.NewStore(filepath.Join(t.TempDir(), "metrics.plk")))
	assert.ErrorIs(t, err, ErrNotFit)

	var buf bytes.Buffer
	require.Nil(t, decoded.TablePrint(&buf, "", "  "))
	assert.Contains(t, buf.String(), "Experiment: window_regression")
	assert.Contains(t, buf.String(), "EUA")

	_, err = NewFromModel(Model{})
	assert.ErrorIs(t, err, ErrNoOptionsInModel)
}

func TestExperimentErrors(t *testing.T) {
	tbl := simulateTable(t)

	e, err := New(testOptions())
	require.Nil(t, err)
	_, err = e.Forecast(tbl)
	assert.ErrorIs(t, err, ErrNotFit)
	_, err = e.Model()
	assert.ErrorIs(t, err, ErrNotFit)
	assert.ErrorIs(t, e.Evaluate(report.NewStore("")), ErrNotFit)

	// too little history before the test date for one pair of windows
	opt := testOptions()
	opt.Prepare.TestDate = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	e, err = New(opt)
	require.Nil(t, err)
	assert.ErrorIs(t, e.Fit(tbl), ErrNoWindows)

	// test date before the table starts
	opt.Prepare.TestDate = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	e, err = New(opt)
	require.Nil(t, err)
	assert.ErrorIs(t, e.Fit(tbl), prepare.ErrEmptyTrain)

	e, _ = fitExperiment(t, testOptions())
	_, err = e.Forecast(nil)
	assert.ErrorIs(t, err, ErrNoTable)
	_, err = e.Forecast(tbl.Tail(3))
	assert.ErrorIs(t, err, ErrShortHistory)
}

func TestExperimentMissingValue(t *testing.T) {
	tbl := simulateTable(t)
	columns := tbl.Columns()
	values := make([][]float64, len(columns))
	for i, c := range columns {
		col, err := tbl.Column(c)
		require.Nil(t, err)
		values[i] = col
	}
	// one blank field in the train partition and one in the test partition
	values[0][40] = math.NaN()
	values[0][160] = math.NaN()
	withGap, err := table.New(tbl.DateColumn, tbl.T, columns, values)
	require.Nil(t, err)

	e, err := New(testOptions())
	require.Nil(t, err)
	require.Nil(t, e.Fit(withGap))

	for _, v := range e.Scaler().Mean() {
		assert.False(t, math.IsNaN(v))
	}
	for _, v := range e.Scaler().Scale() {
		assert.False(t, math.IsNaN(v))
	}

	res, err := e.Forecast(withGap)
	require.Nil(t, err)
	for _, v := range res.Forecast {
		assert.False(t, math.IsNaN(v))
	}

	store := report.NewStore(filepath.Join(t.TempDir(), report.DefaultStorePath))
	require.Nil(t, e.Evaluate(store))
	records, err := store.Records()
	require.Nil(t, err)
	require.Len(t, records, 6)
	for _, r := range records {
		_, values, err := r.Entry()
		require.Nil(t, err)
		for _, v := range values {
			assert.False(t, math.IsNaN(v))
		}
	}

	_, err = e.Figure()
	assert.Nil(t, err)
}

func TestExperimentFailedRefit(t *testing.T) {
	e, tbl := fitExperiment(t, testOptions())
	scaler := e.Scaler()
	model := e.Regression()
	expected, err := e.Forecast(tbl)
	require.Nil(t, err)

	// a week of history before the test date holds no pair of 5 day windows
	short := tbl.Filter(func(d time.Time) bool {
		return !d.Before(testDate.AddDate(0, 0, -7))
	})
	assert.ErrorIs(t, e.Fit(short), ErrNoWindows)

	assert.Same(t, scaler, e.Scaler())
	assert.Same(t, model, e.Regression())
	actual, err := e.Forecast(tbl)
	require.Nil(t, err)
	assert.InDeltaSlice(t, expected.Forecast, actual.Forecast, 1e-12)
}
