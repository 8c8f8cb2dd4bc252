// Package prepare splits a date indexed table into train and test partitions around a cutoff
// date, standardizes both with a scaler fit on train only and windows each partition.
package prepare

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-seqcast/scale"
	"github.com/aouyang1/go-seqcast/table"
	"github.com/aouyang1/go-seqcast/tensor"
	"github.com/aouyang1/go-seqcast/window"
)

var (
	ErrNoTable     = errors.New("no input table")
	ErrEmptyTrain  = errors.New("no training rows before the test date")
	ErrNoTestDate  = errors.New("no test date")
	ErrNoPredictor = errors.New("no predictor columns")
)

// Options configures the split
type Options struct {
	DateColumn     string           `json:"date_column"`
	TestDate       time.Time        `json:"test_date"`
	SequenceLength int              `json:"sequence_length"`
	Flatten        bool             `json:"flatten"`
	Precision      tensor.Precision `json:"precision"`
	Predictors     []string         `json:"predictors"`
}

// NewDefaultOptions mirrors the carbon price experiments: weekly windows over the daily market
// variables split at the start of July 2024.
func NewDefaultOptions() *Options {
	return &Options{
		DateColumn:     table.DefaultDateColumn,
		TestDate:       time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		SequenceLength: 7,
		Predictors:     append([]string(nil), table.DefaultPredictors...),
	}
}

// Dataset is the result of a split. Train and Test are single horizon windows of the
// standardized partitions and are nil when produced by Partition.
type Dataset struct {
	Train *window.Pairs
	Test  *window.Pairs

	Scaler *scale.Standard

	// raw, unscaled partitions
	TrainTable *table.Table
	TestTable  *table.Table
}

// TestOverlap is the lookback margin kept before the test date so the first test window has a
// full history
func TestOverlap(seqLen int) time.Duration {
	return time.Duration(seqLen+1) * table.Day
}

// Partition splits tbl into train rows strictly before the test date and test rows strictly
// after TestDate - (SequenceLength+1) days, and fits the scaler on the train rows only. The
// returned Dataset has no windows. Callers that window the partitions their own way, such as
// multi horizon training, start from here.
func Partition(tbl *table.Table, opt *Options) (*Dataset, error) {
	if tbl == nil {
		return nil, ErrNoTable
	}
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if opt.TestDate.IsZero() {
		return nil, ErrNoTestDate
	}
	if len(opt.Predictors) == 0 {
		return nil, ErrNoPredictor
	}
	dateColumn := opt.DateColumn
	if dateColumn == "" {
		dateColumn = table.DefaultDateColumn
	}
	if _, err := tbl.Dates(dateColumn); err != nil {
		return nil, err
	}
	// overlaps and date labels count calendar days
	if freq, err := table.TimeSlice(tbl.T).EstimateFreq(); err == nil && freq != table.Day {
		slog.Warn("rows are not daily, day offsets will not match row offsets", "frequency", freq)
	}

	trainTbl := tbl.Before(opt.TestDate)
	testTbl := tbl.After(opt.TestDate.Add(-TestOverlap(opt.SequenceLength)))
	if testTbl.Len() == 0 {
		slog.Warn("empty test partition", "test_date", opt.TestDate, "last_date", tbl.EndTime())
	}

	trainData, err := trainTbl.Select(opt.Predictors...)
	if err != nil {
		return nil, fmt.Errorf("unable to select training predictors, %w", err)
	}
	if _, err := testTbl.Select(opt.Predictors...); err != nil {
		return nil, fmt.Errorf("unable to select test predictors, %w", err)
	}
	if trainTbl.Len() == 0 {
		return nil, fmt.Errorf("test date %s is on or before the first date %s, %w",
			opt.TestDate.Format(time.DateOnly), tbl.StartTime().Format(time.DateOnly), ErrEmptyTrain)
	}

	scaler, err := scale.Fit(trainData)
	if err != nil {
		return nil, fmt.Errorf("unable to fit scaler, %w", err)
	}

	return &Dataset{
		Scaler:     scaler,
		TrainTable: trainTbl,
		TestTable:  testTbl,
	}, nil
}

// Split partitions tbl as Partition does and builds single horizon windows of SequenceLength
// rows from each standardized partition.
func Split(tbl *table.Table, opt *Options) (*Dataset, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	ds, err := Partition(tbl, opt)
	if err != nil {
		return nil, err
	}

	winOpt := &window.Options{
		Flatten:   opt.Flatten,
		Precision: opt.Precision,
	}
	if ds.Train, err = scaleAndWindow(ds.Scaler, ds.TrainTable, opt, winOpt); err != nil {
		return nil, fmt.Errorf("unable to window training partition, %w", err)
	}
	if ds.Test, err = scaleAndWindow(ds.Scaler, ds.TestTable, opt, winOpt); err != nil {
		return nil, fmt.Errorf("unable to window test partition, %w", err)
	}
	return ds, nil
}

func scaleAndWindow(scaler *scale.Standard, tbl *table.Table, opt *Options, winOpt *window.Options) (*window.Pairs, error) {
	data, err := tbl.Select(opt.Predictors...)
	if err != nil {
		return nil, err
	}
	scaled, err := scaler.Transform(data)
	if err != nil {
		return nil, err
	}
	return window.Sequences(scaled, opt.SequenceLength, winOpt)
}
