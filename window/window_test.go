package window

import (
	"math"
	"testing"

	"github.com/aouyang1/go-seqcast/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTable returns an n x f table where row i holds 10*i + j in column j
func generateTable(t *testing.T, n, f int) *tensor.Dense {
	t.Helper()
	data := make([]float64, 0, n*f)
	for i := 0; i < n; i++ {
		for j := 0; j < f; j++ {
			data = append(data, float64(10*i+j))
		}
	}
	d, err := tensor.New([]int{n, f}, data)
	require.Nil(t, err)
	return d
}

func rows(t *testing.T, table *tensor.Dense, start, end int) []float64 {
	t.Helper()
	f := table.Dim(1)
	return table.Data()[start*f : end*f]
}

func TestSequences(t *testing.T) {
	testData := map[string]struct {
		n       int
		seqLen  int
		samples int
	}{
		"ten rows window three": {
			n:       10,
			seqLen:  3,
			samples: 7,
		},
		"window one": {
			n:       4,
			seqLen:  1,
			samples: 3,
		},
		"one sample": {
			n:       4,
			seqLen:  3,
			samples: 1,
		},
		"table equals window": {
			n:       3,
			seqLen:  3,
			samples: 0,
		},
		"table shorter than window": {
			n:       2,
			seqLen:  5,
			samples: 0,
		},
		"empty table": {
			n:       0,
			seqLen:  2,
			samples: 0,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			table := generateTable(t, td.n, 2)
			p, err := Sequences(table, td.seqLen, nil)
			require.Nil(t, err)

			assert.Equal(t, td.samples, p.Len())
			assert.Equal(t, []int{td.samples, td.seqLen, 2}, p.X.Shape())
			assert.Equal(t, []int{td.samples, 2}, p.Y.Shape())

			if td.samples > 0 {
				// targets are exactly rows [L, N) in order
				assert.Equal(t, rows(t, table, td.seqLen, td.n), p.Y.Data())
			}
			for i := 0; i < td.samples; i++ {
				assert.Equal(t, rows(t, table, i, i+td.seqLen), p.X.Sample(i).Data())
			}
		})
	}
}

func TestSequencesExample(t *testing.T) {
	table := generateTable(t, 10, 1)
	p, err := Sequences(table, 3, nil)
	require.Nil(t, err)
	require.Equal(t, 7, p.Len())

	assert.Equal(t, []float64{0, 10, 20}, p.X.Sample(0).Data())
	assert.Equal(t, []float64{30}, p.Y.Sample(0).Data())
	assert.Equal(t, []float64{60, 70, 80}, p.X.Sample(6).Data())
	assert.Equal(t, []float64{90}, p.Y.Sample(6).Data())
}

func TestSequencesMany(t *testing.T) {
	testData := map[string]struct {
		n       int
		inLen   int
		outLen  int
		samples int
	}{
		"ten rows": {
			n:       10,
			inLen:   3,
			outLen:  2,
			samples: 6,
		},
		"exact fit": {
			n:       5,
			inLen:   3,
			outLen:  2,
			samples: 1,
		},
		"too short": {
			n:       4,
			inLen:   3,
			outLen:  2,
			samples: 0,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			table := generateTable(t, td.n, 3)
			p, err := SequencesMany(table, td.inLen, td.outLen, nil)
			require.Nil(t, err)

			assert.Equal(t, td.samples, p.Len())
			assert.Equal(t, []int{td.samples, td.inLen, 3}, p.X.Shape())
			assert.Equal(t, []int{td.samples, td.outLen, 3}, p.Y.Shape())
			for i := 0; i < td.samples; i++ {
				assert.Equal(t, rows(t, table, i, i+td.inLen), p.X.Sample(i).Data())
				assert.Equal(t, rows(t, table, i+td.inLen, i+td.inLen+td.outLen), p.Y.Sample(i).Data())
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	table := generateTable(t, 12, 3)

	p, err := Sequences(table, 4, nil)
	require.Nil(t, err)
	flat, err := Sequences(table, 4, &Options{Flatten: true})
	require.Nil(t, err)

	assert.Equal(t, []int{8, 12}, flat.X.Shape())
	assert.Equal(t, []int{8, 3}, flat.Y.Shape())

	unflat, err := flat.X.Reshape(8, 4, 3)
	require.Nil(t, err)
	assert.Equal(t, p.X, unflat)

	many, err := SequencesMany(table, 4, 2, &Options{Flatten: true})
	require.Nil(t, err)
	assert.Equal(t, []int{7, 12}, many.X.Shape())
	assert.Equal(t, []int{7, 6}, many.Y.Shape())

	empty, err := Sequences(generateTable(t, 2, 3), 4, &Options{Flatten: true})
	require.Nil(t, err)
	assert.Equal(t, []int{0, 12}, empty.X.Shape())
}

func TestHalfPrecision(t *testing.T) {
	table := generateTable(t, 6, 2)
	p, err := Sequences(table, 2, &Options{Precision: tensor.PrecisionHalf})
	require.Nil(t, err)

	assert.Equal(t, tensor.PrecisionHalf, p.X.Precision())
	assert.Equal(t, tensor.PrecisionHalf, p.Y.Precision())

	// small integers are exact in half precision
	full, err := Sequences(table, 2, nil)
	require.Nil(t, err)
	assert.Equal(t, full.X.Data(), p.X.Data())
	assert.Equal(t, full.Y.Data(), p.Y.Data())
}

func TestInvalidInput(t *testing.T) {
	table := generateTable(t, 5, 1)

	_, err := Sequences(table, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = SequencesMany(table, 2, -1, nil)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = Sequences(nil, 2, nil)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = Sequences(tensor.Zeros(5), 2, nil)
	assert.ErrorIs(t, err, tensor.ErrRank)
}

func TestInputUnchanged(t *testing.T) {
	table := generateTable(t, 5, 2)
	before := table.Data()

	p, err := Sequences(table, 2, nil)
	require.Nil(t, err)
	p.X.Set(-1, 0, 0, 0)

	assert.Equal(t, before, table.Data())
}

func TestFinite(t *testing.T) {
	testData := map[string]struct {
		missing []int
		kept    int
	}{
		"all finite": {
			kept: 4,
		},
		"missing input": {
			// row 0 is only in the first input
			missing: []int{0},
			kept:    3,
		},
		"missing target and inputs": {
			// row 2 is the target of sample 0 and an input of samples 1 and 2
			missing: []int{2},
			kept:    1,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			table := generateTable(t, 6, 2)
			for _, r := range td.missing {
				table.Set(math.NaN(), r, 1)
			}
			p, err := Sequences(table, 2, nil)
			require.Nil(t, err)

			finite, dropped, err := p.Finite()
			require.Nil(t, err)
			assert.Equal(t, td.kept, finite.Len())
			assert.Equal(t, 4-td.kept, dropped)
			assert.Equal(t, []int{td.kept, 2, 2}, finite.X.Shape())
			assert.Equal(t, []int{td.kept, 2}, finite.Y.Shape())
			for _, v := range finite.X.Data() {
				assert.False(t, math.IsNaN(v))
			}
		})
	}
}
