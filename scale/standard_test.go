package scale

import (
	"math"
	"testing"

	"github.com/aouyang1/go-seqcast/tensor"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func fitTestScaler(t *testing.T) *Standard {
	t.Helper()
	train, err := tensor.FromRows([][]float64{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
		{4, 40, 5},
	})
	require.Nil(t, err)
	s, err := Fit(train)
	require.Nil(t, err)
	return s
}

func TestFit(t *testing.T) {
	s := fitTestScaler(t)

	assert.InDeltaSlice(t, []float64{2.5, 25, 5}, s.Mean(), 1e-12)
	// population standard deviation, constant column clamped to a unit scale
	assert.InDeltaSlice(t, []float64{math.Sqrt(1.25), math.Sqrt(125), 1}, s.Scale(), 1e-12)
	assert.Equal(t, 3, s.Features())
}

func mustRows(t *testing.T, rows [][]float64) *tensor.Dense {
	t.Helper()
	d, err := tensor.FromRows(rows)
	require.Nil(t, err)
	return d
}

func TestFitMissingValues(t *testing.T) {
	train := mustRows(t, [][]float64{
		{1, 10},
		{math.NaN(), 20},
		{3, 30},
		{math.Inf(1), 40},
	})
	s, err := Fit(train)
	require.Nil(t, err)

	// statistics of the finite values only
	assert.InDeltaSlice(t, []float64{2, 25}, s.Mean(), 1e-12)
	assert.InDeltaSlice(t, []float64{1, math.Sqrt(125)}, s.Scale(), 1e-12)

	res, err := s.Transform(train)
	require.Nil(t, err)
	data := res.Data()
	for i, v := range data {
		if i == 2 {
			assert.True(t, math.IsNaN(v))
			continue
		}
		assert.False(t, math.IsNaN(v), "value %d", i)
	}
	assert.InDelta(t, -1, data[0], 1e-12)
	assert.InDelta(t, 1, data[4], 1e-12)
}

func TestFitErrors(t *testing.T) {
	testData := map[string]struct {
		train *tensor.Dense
		err   error
	}{
		"nil": {
			train: nil,
			err:   ErrNoTrainingData,
		},
		"no rows": {
			train: tensor.Zeros(0, 3),
			err:   ErrNoTrainingData,
		},
		"wrong rank": {
			train: tensor.Zeros(2, 2, 2),
			err:   tensor.ErrRank,
		},
		"all missing": {
			train: mustRows(t, [][]float64{{1, math.NaN()}, {2, math.NaN()}}),
			err:   ErrNoFiniteValues,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Fit(td.train)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestTransform(t *testing.T) {
	s := fitTestScaler(t)

	x, err := tensor.New([]int{1, 2, 3}, []float64{2.5, 25, 5, 4, 40, 7})
	require.Nil(t, err)

	res, err := s.Transform(x)
	require.Nil(t, err)
	assert.Equal(t, []int{1, 2, 3}, res.Shape())
	assert.InDeltaSlice(t, []float64{0, 0, 0, 1.5 / math.Sqrt(1.25), 15 / math.Sqrt(125), 2}, res.Data(), 1e-12)

	// transform does not mutate the scaler or the input
	again, err := s.Transform(x)
	require.Nil(t, err)
	assert.Equal(t, res, again)
	assert.Equal(t, []float64{2.5, 25, 5, 4, 40, 7}, x.Data())
}

func TestRoundTrip(t *testing.T) {
	s := fitTestScaler(t)

	testData := map[string][]int{
		"rank 1":         {3},
		"rank 2":         {4, 3},
		"rank 3":         {2, 5, 3},
		"rank 4":         {2, 1, 2, 3},
		"no samples":     {0, 7, 3},
		"single feature": {1, 1, 3},
	}

	for name, shape := range testData {
		t.Run(name, func(t *testing.T) {
			x := tensor.Zeros(shape...)
			data := x.Data()
			for i := range data {
				data[i] = math.Sin(float64(i)) * 50
			}
			x, err := tensor.New(shape, data)
			require.Nil(t, err)

			fwd, err := s.Transform(x)
			require.Nil(t, err)
			back, err := s.InverseTransform(fwd)
			require.Nil(t, err)

			assert.Equal(t, shape, back.Shape())
			assert.InDeltaSlice(t, x.Data(), back.Data(), 1e-9)
		})
	}
}

func TestFeatureMismatch(t *testing.T) {
	s := fitTestScaler(t)
	_, err := s.Transform(tensor.Zeros(2, 4))
	assert.ErrorIs(t, err, ErrFeatureMismatch)

	var unfit *Standard
	_, err = unfit.Transform(tensor.Zeros(2, 3))
	assert.ErrorIs(t, err, ErrUnfitScaler)
}

func TestTransformAll(t *testing.T) {
	s := fitTestScaler(t)

	members := []*tensor.Dense{
		tensor.Zeros(1, 2, 3),
		tensor.Zeros(4, 3),
		tensor.Zeros(3),
	}
	res, err := s.InverseTransformAll(members)
	require.Nil(t, err)
	require.Len(t, res, 3)
	for i, r := range res {
		assert.Equal(t, members[i].Shape(), r.Shape())
	}
	assert.Equal(t, []float64{2.5, 25, 5}, res[2].Data())

	_, err = s.TransformAll([]*tensor.Dense{tensor.Zeros(1, 3), tensor.Zeros(1, 2)})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestTransformAny(t *testing.T) {
	s := fitTestScaler(t)

	single, err := s.InverseTransformAny(tensor.Zeros(2, 3))
	require.Nil(t, err)
	assert.IsType(t, &tensor.Dense{}, single)

	many, err := s.TransformAny([]*tensor.Dense{tensor.Zeros(2, 3), tensor.Zeros(1, 3)})
	require.Nil(t, err)
	assert.IsType(t, []*tensor.Dense{}, many)
	assert.Len(t, many, 2)

	_, err = s.TransformAny([][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, tensor.ErrUnsupportedType)

	_, err = s.InverseTransformAny(nil)
	assert.ErrorIs(t, err, tensor.ErrUnsupportedType)
}

func TestHalfPrecisionPreserved(t *testing.T) {
	s := fitTestScaler(t)
	x := tensor.Zeros(2, 3).ToHalf()

	res, err := s.InverseTransform(x)
	require.Nil(t, err)
	assert.Equal(t, tensor.PrecisionHalf, res.Precision())
	assert.InDeltaSlice(t, []float64{2.5, 25, 5, 2.5, 25, 5}, res.Data(), 1e-2)
}

func TestMatrix(t *testing.T) {
	train := mat.NewDense(3, 2, []float64{
		1, 0,
		2, 0,
		3, 3,
	})
	s, err := FitMatrix(train)
	require.Nil(t, err)

	res, err := s.TransformMatrix(train)
	require.Nil(t, err)
	r, c := res.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.InDelta(t, 0.0, mat.Sum(res.ColView(0)), 1e-12)
	assert.InDelta(t, 0.0, mat.Sum(res.ColView(1)), 1e-12)
}

func TestModel(t *testing.T) {
	s := fitTestScaler(t)

	out, err := json.Marshal(s.Model())
	require.Nil(t, err)

	var m Model
	require.Nil(t, json.Unmarshal(out, &m))

	restored, err := NewFromModel(m)
	require.Nil(t, err)
	assert.Equal(t, s, restored)

	_, err = NewFromModel(Model{Mean: []float64{1}, Scale: []float64{0}})
	assert.ErrorIs(t, err, ErrInvalidModel)
	_, err = NewFromModel(Model{})
	assert.ErrorIs(t, err, ErrInvalidModel)
	_, err = NewFromModel(Model{Mean: []float64{1}, Scale: []float64{math.NaN()}})
	assert.ErrorIs(t, err, ErrInvalidModel)
	_, err = NewFromModel(Model{Mean: []float64{math.Inf(-1)}, Scale: []float64{1}})
	assert.ErrorIs(t, err, ErrInvalidModel)
}
