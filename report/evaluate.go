// Package report scores window predictions against ground truth, persists the per sample scores
// in an append only store and draws prediction bands.
package report

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-seqcast/stats"
	"github.com/aouyang1/go-seqcast/tensor"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrNoPredictions   = errors.New("no predictions")
	ErrSampleMismatch  = errors.New("predicted and true samples differ in shape")
	ErrNoEnsemble      = errors.New("no ensemble members")
	ErrMalformedRecord = errors.New("record must hold exactly one key")
	ErrNoFeatures      = errors.New("sample has no features")
)

// Metric names used in record keys
const (
	MetricMAE   = "mae"
	MetricMAPE  = "mape"
	MetricP50AE = "p50ae"
)

// Split names used in record keys
const (
	SplitTrain = "train"
	SplitTest  = "test"
)

// Record is one persisted entry mapping a key of the form <model>_<metric>_<split> to one score
// per sample
type Record map[string][]float64

func NewRecord(name, metric, split string, values []float64) Record {
	return Record{Key(name, metric, split): values}
}

func Key(name, metric, split string) string {
	return name + "_" + metric + "_" + split
}

// Entry returns the single key and values of the record
func (r Record) Entry() (string, []float64, error) {
	if len(r) != 1 {
		return "", nil, fmt.Errorf("got %d keys, %w", len(r), ErrMalformedRecord)
	}
	for k, v := range r {
		return k, v, nil
	}
	return "", nil, ErrMalformedRecord
}

// SampleScores holds one value per sample for each metric
type SampleScores struct {
	MAE   []float64
	MAPE  []float64
	P50AE []float64
	MSE   []float64
}

// firstFeature returns feature 0 of every time step of a sample. A rank 1 sample is a single
// time step.
func firstFeature(sample *tensor.Dense) ([]float64, error) {
	if sample.Size() == 0 {
		return nil, fmt.Errorf("sample of shape %v, %w", sample.Shape(), ErrNoFeatures)
	}
	if sample.Rank() <= 1 {
		return []float64{sample.Data()[0]}, nil
	}
	rows, err := sample.Rows()
	if err != nil {
		return nil, err
	}
	return rows.Col(0), nil
}

// Score computes per sample errors on feature 0. Both tensors are [samples, time, features], or
// [samples, features] for a single time step per sample.
func Score(trueVals, predVals *tensor.Dense) (*SampleScores, error) {
	if trueVals == nil || predVals == nil {
		return nil, ErrNoPredictions
	}
	if !tensor.SameShape(trueVals, predVals) {
		return nil, fmt.Errorf("true %v and predicted %v, %w", trueVals.Shape(), predVals.Shape(), ErrSampleMismatch)
	}
	if trueVals.Rank() < 2 {
		return nil, fmt.Errorf("expected batched samples, got %v, %w", trueVals.Shape(), tensor.ErrRank)
	}

	n := trueVals.Dim(0)
	res := &SampleScores{
		MAE:   make([]float64, 0, n),
		MAPE:  make([]float64, 0, n),
		P50AE: make([]float64, 0, n),
		MSE:   make([]float64, 0, n),
	}
	for i := 0; i < n; i++ {
		actual, err := firstFeature(trueVals.Sample(i))
		if err != nil {
			return nil, fmt.Errorf("true sample %d, %w", i, err)
		}
		predicted, err := firstFeature(predVals.Sample(i))
		if err != nil {
			return nil, fmt.Errorf("predicted sample %d, %w", i, err)
		}

		scores, err := stats.NewScores(predicted, actual)
		if err != nil {
			return nil, fmt.Errorf("sample %d, %w", i, err)
		}
		res.MAE = append(res.MAE, scores.MAE)
		res.MAPE = append(res.MAPE, scores.MAPE)
		res.P50AE = append(res.P50AE, scores.MedianAE)
		res.MSE = append(res.MSE, scores.MSE)
	}
	return res, nil
}

// Evaluate scores the train and test predictions and returns six records in the order mae,
// mape, p50ae with train before test for each metric
func Evaluate(name string, trainTrue, trainPred, testTrue, testPred *tensor.Dense) ([]Record, error) {
	train, err := Score(trainTrue, trainPred)
	if err != nil {
		return nil, fmt.Errorf("unable to score %s split, %w", SplitTrain, err)
	}
	test, err := Score(testTrue, testPred)
	if err != nil {
		return nil, fmt.Errorf("unable to score %s split, %w", SplitTest, err)
	}
	return []Record{
		NewRecord(name, MetricMAE, SplitTrain, train.MAE),
		NewRecord(name, MetricMAE, SplitTest, test.MAE),
		NewRecord(name, MetricMAPE, SplitTrain, train.MAPE),
		NewRecord(name, MetricMAPE, SplitTest, test.MAPE),
		NewRecord(name, MetricP50AE, SplitTrain, train.P50AE),
		NewRecord(name, MetricP50AE, SplitTest, test.P50AE),
	}, nil
}

// EvaluateAny is Evaluate for predictions given either as a tensor or as ensemble members, in
// which case the member mean is scored. Any other prediction type is rejected with
// tensor.ErrUnsupportedType.
func EvaluateAny(name string, trainTrue *tensor.Dense, trainPred any, testTrue *tensor.Dense, testPred any) ([]Record, error) {
	train, err := collapse(trainPred)
	if err != nil {
		return nil, fmt.Errorf("%s predictions, %w", SplitTrain, err)
	}
	test, err := collapse(testPred)
	if err != nil {
		return nil, fmt.Errorf("%s predictions, %w", SplitTest, err)
	}
	return Evaluate(name, trainTrue, train, testTrue, test)
}

// collapse reduces a tensor or ensemble of tensors to one tensor
func collapse(v any) (*tensor.Dense, error) {
	members, single, err := tensor.Unpack(v)
	if err != nil {
		return nil, err
	}
	if single {
		return members[0], nil
	}
	return EnsembleMean(members)
}

// EnsembleMean is the elementwise mean of equally shaped members
func EnsembleMean(members []*tensor.Dense) (*tensor.Dense, error) {
	if len(members) == 0 {
		return nil, ErrNoEnsemble
	}
	stacked, err := tensor.Stack(members)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrSampleMismatch, err)
	}
	data := stacked.Data()
	size := members[0].Size()
	sum := data[:size]
	for i := 1; i < len(members); i++ {
		floats.Add(sum, data[i*size:(i+1)*size])
	}
	floats.Scale(1/float64(len(members)), sum)
	return tensor.New(members[0].Shape(), sum)
}
