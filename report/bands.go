package report

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/aouyang1/go-seqcast/table"
	"github.com/aouyang1/go-seqcast/tensor"
)

var ErrFeatureIndex = errors.New("feature index out of range")

// Decoration holds optional figure labels
type Decoration struct {
	XLabel string `json:"xlabel"`
	YLabel string `json:"ylabel"`
	Title  string `json:"title"`
	Grid   bool   `json:"grid"`
}

// BandOptions configures a prediction band figure
type BandOptions struct {
	// Column is the table column drawn as ground truth
	Column string `json:"column"`

	// Index is the feature of every predicted sample to draw
	Index int `json:"index"`

	// Alpha is the opacity of each prediction line
	Alpha float64 `json:"alpha"`

	TrainColor color.Color `json:"-"`
	TestColor  color.Color `json:"-"`

	Decoration Decoration `json:"decoration"`
}

func NewDefaultBandOptions() *BandOptions {
	return &BandOptions{
		Column:     "EUA",
		Index:      0,
		Alpha:      0.3,
		TrainColor: color.Gray{Y: 128},
		TestColor:  color.Gray{Y: 128},
	}
}

// BandData is the input of a prediction band figure
type BandData struct {
	// TrainPred is [samples, time, features]. Sample i starts at TrainStart + i days.
	TrainPred  *tensor.Dense
	TrainStart time.Time

	// TestPred is a tensor or ensemble members of [samples, time, features]. Sample i starts at
	// Split + i days.
	TestPred any
	Split    time.Time

	// Table provides the ground truth history before and future after Split. It may be nil.
	Table *table.Table
}

// series is a dated line
type series struct {
	T []time.Time
	Y []float64
}

type bandSeries struct {
	train   []series
	test    []series
	history series
	future  series
}

func (o *BandOptions) withDefaults() *BandOptions {
	def := NewDefaultBandOptions()
	if o == nil {
		return def
	}
	opt := *o
	if opt.TrainColor == nil {
		opt.TrainColor = def.TrainColor
	}
	if opt.TestColor == nil {
		opt.TestColor = def.TestColor
	}
	if opt.Alpha <= 0 || opt.Alpha > 1 {
		opt.Alpha = def.Alpha
	}
	return &opt
}

// sampleLines turns each sample of pred into a line of feature index starting at start + i days
func sampleLines(pred *tensor.Dense, start time.Time, index int) ([]series, error) {
	if pred.Rank() < 2 {
		return nil, fmt.Errorf("expected batched samples, got %v, %w", pred.Shape(), tensor.ErrRank)
	}
	if index < 0 || index >= pred.Dim(-1) {
		return nil, fmt.Errorf("index %d with %d features, %w", index, pred.Dim(-1), ErrFeatureIndex)
	}
	lines := make([]series, 0, pred.Dim(0))
	for i := 0; i < pred.Dim(0); i++ {
		sample := pred.Sample(i)
		var y []float64
		if sample.Rank() == 1 {
			y = []float64{sample.At(index)}
		} else {
			rows, err := sample.Rows()
			if err != nil {
				return nil, err
			}
			y = rows.Col(index)
		}
		s := series{T: make([]time.Time, len(y)), Y: y}
		for j := range y {
			s.T[j] = table.AddDays(start, i+j)
		}
		lines = append(lines, s)
	}
	return lines, nil
}

func tableSeries(tbl *table.Table, column string) (series, error) {
	if tbl == nil || tbl.Len() == 0 {
		return series{}, nil
	}
	y, err := tbl.Column(column)
	if err != nil {
		return series{}, err
	}
	return series{T: tbl.T, Y: y}, nil
}

func buildBands(data *BandData, opt *BandOptions) (*bandSeries, error) {
	if data == nil || data.TrainPred == nil {
		return nil, ErrNoPredictions
	}
	res := &bandSeries{}

	var err error
	res.train, err = sampleLines(data.TrainPred, data.TrainStart, opt.Index)
	if err != nil {
		return nil, fmt.Errorf("train predictions, %w", err)
	}

	members, _, err := tensor.Unpack(data.TestPred)
	if err != nil {
		return nil, fmt.Errorf("test predictions, %w", err)
	}
	for e, m := range members {
		lines, err := sampleLines(m, data.Split, opt.Index)
		if err != nil {
			return nil, fmt.Errorf("test predictions of member %d, %w", e, err)
		}
		res.test = append(res.test, lines...)
	}

	if data.Table != nil {
		res.history, err = tableSeries(data.Table.Before(data.Split), opt.Column)
		if err != nil {
			return nil, err
		}
		res.future, err = tableSeries(data.Table.After(data.Split), opt.Column)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
