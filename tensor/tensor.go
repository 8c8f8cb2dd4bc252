// Package tensor is a small n-dimensional dense array stored in row major order. Values are
// held either at full float64 precision or, when explicitly requested, as half precision
// float16 to reduce memory.
package tensor

import (
	"errors"
	"fmt"

	"github.com/x448/float16"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNegativeDim      = errors.New("negative dimensions not allowed")
	ErrShapeMismatch    = errors.New("data length does not match shape")
	ErrReshape          = errors.New("cannot reshape to requested shape")
	ErrRank             = errors.New("unexpected tensor rank")
	ErrIndexOutOfBounds = errors.New("index is out of bounds")
	ErrUnsupportedType  = errors.New("expected a tensor or a slice of tensors")
	ErrEmptyStack       = errors.New("no tensors to stack")
)

// Dense is an n-dimensional array. The zero value is an empty rank 0 tensor.
type Dense struct {
	shape []int
	prec  Precision

	f64 []float64
	f16 []float16.Float16
}

// New creates a full precision tensor of the given shape copying the input data. A nil data
// slice creates a tensor of zeros.
func New(shape []int, data []float64) (*Dense, error) {
	size, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if data != nil && len(data) != size {
		return nil, fmt.Errorf("shape %v needs %d values, but got %d, %w", shape, size, len(data), ErrShapeMismatch)
	}

	d := &Dense{
		shape: append([]int(nil), shape...),
		f64:   make([]float64, size),
	}
	copy(d.f64, data)
	return d, nil
}

// Zeros returns a full precision tensor of zeros. Panics on negative dimensions.
func Zeros(shape ...int) *Dense {
	d, err := New(shape, nil)
	if err != nil {
		panic(err)
	}
	return d
}

// FromRows builds a rank 2 tensor from a slice of equal length rows.
func FromRows(rows [][]float64) (*Dense, error) {
	m := len(rows)
	n := -1
	for i, row := range rows {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrShapeMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if n < 0 {
		n = 0
	}

	data := make([]float64, 0, m*n)
	for _, row := range rows {
		data = append(data, row...)
	}
	return New([]int{m, n}, data)
}

// FromMatrix copies a gonum matrix into a rank 2 tensor.
func FromMatrix(m mat.Matrix) *Dense {
	r, c := m.Dims()
	d := Zeros(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d.f64[i*c+j] = m.At(i, j)
		}
	}
	return d
}

func numElements(shape []int) (int, error) {
	size := 1
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("shape %v, %w", shape, ErrNegativeDim)
		}
		size *= dim
	}
	return size, nil
}

// Shape returns a copy of the tensor dimensions
func (d *Dense) Shape() []int {
	return append([]int(nil), d.shape...)
}

// Rank is the number of dimensions
func (d *Dense) Rank() int {
	return len(d.shape)
}

// Dim returns the size of axis i. Negative values index from the last axis.
func (d *Dense) Dim(i int) int {
	if i < 0 {
		i += len(d.shape)
	}
	return d.shape[i]
}

// Size is the total number of elements
func (d *Dense) Size() int {
	if d.prec == PrecisionHalf {
		return len(d.f16)
	}
	return len(d.f64)
}

// Precision reports the storage precision
func (d *Dense) Precision() Precision {
	return d.prec
}

func (d *Dense) get(i int) float64 {
	if d.prec == PrecisionHalf {
		return float64(d.f16[i].Float32())
	}
	return d.f64[i]
}

func (d *Dense) set(i int, v float64) {
	if d.prec == PrecisionHalf {
		d.f16[i] = float16.Fromfloat32(float32(v))
		return
	}
	d.f64[i] = v
}

func (d *Dense) offset(idx []int) (int, error) {
	if len(idx) != len(d.shape) {
		return 0, fmt.Errorf("got %d indices for rank %d, %w", len(idx), len(d.shape), ErrRank)
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= d.shape[i] {
			return 0, fmt.Errorf("index %d on axis %d of size %d, %w", v, i, d.shape[i], ErrIndexOutOfBounds)
		}
		off = off*d.shape[i] + v
	}
	return off, nil
}

// At returns the element at the given index. Panics when the index is invalid.
func (d *Dense) At(idx ...int) float64 {
	off, err := d.offset(idx)
	if err != nil {
		panic(err)
	}
	return d.get(off)
}

// Set stores v at the given index, rounding to the tensor precision. Panics when the index
// is invalid.
func (d *Dense) Set(v float64, idx ...int) {
	off, err := d.offset(idx)
	if err != nil {
		panic(err)
	}
	d.set(off, v)
}

// Data returns a full precision copy of the values in row major order
func (d *Dense) Data() []float64 {
	out := make([]float64, d.Size())
	if d.prec == PrecisionHalf {
		for i, v := range d.f16 {
			out[i] = float64(v.Float32())
		}
		return out
	}
	copy(out, d.f64)
	return out
}

// Copy returns a deep copy with the same precision
func (d *Dense) Copy() *Dense {
	c := &Dense{
		shape: d.Shape(),
		prec:  d.prec,
	}
	if d.prec == PrecisionHalf {
		c.f16 = append([]float16.Float16(nil), d.f16...)
	} else {
		c.f64 = append([]float64(nil), d.f64...)
	}
	return c
}

// Reshape returns a copy of the tensor with a new shape holding the same number of elements.
// A single dimension may be -1 in which case it is inferred.
func (d *Dense) Reshape(shape ...int) (*Dense, error) {
	newShape := append([]int(nil), shape...)
	infer := -1
	known := 1
	for i, dim := range newShape {
		switch {
		case dim == -1 && infer < 0:
			infer = i
		case dim < 0:
			return nil, fmt.Errorf("shape %v, %w", shape, ErrReshape)
		default:
			known *= dim
		}
	}
	if infer >= 0 {
		if known == 0 || d.Size()%known != 0 {
			return nil, fmt.Errorf("cannot infer dimension of %v for %d elements, %w", shape, d.Size(), ErrReshape)
		}
		newShape[infer] = d.Size() / known
		known *= newShape[infer]
	}
	if known != d.Size() {
		return nil, fmt.Errorf("shape %v does not hold %d elements, %w", shape, d.Size(), ErrReshape)
	}

	c := d.Copy()
	c.shape = newShape
	return c, nil
}

// Flatten collapses every axis after the first into one, keeping the sample order.
func (d *Dense) Flatten() *Dense {
	if len(d.shape) == 0 {
		c := d.Copy()
		c.shape = []int{d.Size()}
		return c
	}
	c := d.Copy()
	c.shape = []int{d.shape[0], 0}
	if d.shape[0] > 0 {
		c.shape[1] = d.Size() / d.shape[0]
	} else {
		c.shape[1] = 1
		for _, dim := range d.shape[1:] {
			c.shape[1] *= dim
		}
	}
	return c
}

// Rows collapses every axis but the last into one giving a rank 2 view of the data as
// [rows, features].
func (d *Dense) Rows() (*Dense, error) {
	if len(d.shape) == 0 {
		return nil, fmt.Errorf("scalar tensor has no feature axis, %w", ErrRank)
	}
	return d.Reshape(-1, d.shape[len(d.shape)-1])
}

// Sample returns a copy of the sub-tensor at index i of the first axis.
func (d *Dense) Sample(i int) *Dense {
	if len(d.shape) == 0 {
		panic(fmt.Errorf("sample of scalar tensor, %w", ErrRank))
	}
	if i < 0 || i >= d.shape[0] {
		panic(fmt.Errorf("sample %d of %d, %w", i, d.shape[0], ErrIndexOutOfBounds))
	}
	stride := 1
	for _, dim := range d.shape[1:] {
		stride *= dim
	}
	c := &Dense{
		shape: append([]int(nil), d.shape[1:]...),
		prec:  d.prec,
	}
	if d.prec == PrecisionHalf {
		c.f16 = append([]float16.Float16(nil), d.f16[i*stride:(i+1)*stride]...)
	} else {
		c.f64 = append([]float64(nil), d.f64[i*stride:(i+1)*stride]...)
	}
	return c
}

// Col returns a full precision copy of column c of a rank 2 tensor.
func (d *Dense) Col(c int) []float64 {
	if len(d.shape) != 2 {
		panic(fmt.Errorf("column of rank %d tensor, %w", len(d.shape), ErrRank))
	}
	m, n := d.shape[0], d.shape[1]
	if c < 0 || c >= n {
		panic(fmt.Errorf("column %d of %d, %w", c, n, ErrIndexOutOfBounds))
	}
	out := make([]float64, m)
	for i := 0; i < m; i++ {
		out[i] = d.get(i*n + c)
	}
	return out
}

// Matrix copies a rank 2 tensor with at least one row and column into a gonum matrix.
func (d *Dense) Matrix() (*mat.Dense, error) {
	if len(d.shape) != 2 {
		return nil, fmt.Errorf("matrix from rank %d tensor, %w", len(d.shape), ErrRank)
	}
	if d.shape[0] == 0 || d.shape[1] == 0 {
		return nil, mat.ErrZeroLength
	}
	return mat.NewDense(d.shape[0], d.shape[1], d.Data()), nil
}

// SameShape reports whether a and b have identical dimensions
func SameShape(a, b *Dense) bool {
	if a == nil || b == nil || len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	return true
}

// Stack joins equally shaped tensors along a new leading axis. The result is full precision.
func Stack(ts []*Dense) (*Dense, error) {
	if len(ts) == 0 {
		return nil, ErrEmptyStack
	}
	shape := append([]int{len(ts)}, ts[0].shape...)
	data := make([]float64, 0, len(ts)*ts[0].Size())
	for i, t := range ts {
		if !SameShape(ts[0], t) {
			return nil, fmt.Errorf("tensor %d has shape %v, expected %v, %w", i, t.shape, ts[0].shape, ErrShapeMismatch)
		}
		data = append(data, t.Data()...)
	}
	return New(shape, data)
}

// Concat joins tensors along their existing first axis. All other axes must match.
func Concat(ts []*Dense) (*Dense, error) {
	if len(ts) == 0 {
		return nil, ErrEmptyStack
	}
	first := ts[0]
	if len(first.shape) == 0 {
		return nil, fmt.Errorf("concat of scalar tensors, %w", ErrRank)
	}
	rows := 0
	var data []float64
	for i, t := range ts {
		if len(t.shape) != len(first.shape) {
			return nil, fmt.Errorf("tensor %d has rank %d, expected %d, %w", i, len(t.shape), len(first.shape), ErrRank)
		}
		for j := 1; j < len(first.shape); j++ {
			if t.shape[j] != first.shape[j] {
				return nil, fmt.Errorf("tensor %d has shape %v, expected trailing %v, %w", i, t.shape, first.shape[1:], ErrShapeMismatch)
			}
		}
		rows += t.shape[0]
		data = append(data, t.Data()...)
	}
	shape := append([]int{rows}, first.shape[1:]...)
	return New(shape, data)
}

// Unpack normalizes a value that is either a single tensor or a slice of tensors (such as
// ensemble members) into a slice. The single flag reports which form was given.
func Unpack(v any) (members []*Dense, single bool, err error) {
	switch x := v.(type) {
	case *Dense:
		if x == nil {
			return nil, false, fmt.Errorf("nil tensor, %w", ErrUnsupportedType)
		}
		return []*Dense{x}, true, nil
	case []*Dense:
		for i, m := range x {
			if m == nil {
				return nil, false, fmt.Errorf("nil tensor at %d, %w", i, ErrUnsupportedType)
			}
		}
		return x, false, nil
	default:
		return nil, false, fmt.Errorf("got %T, %w", v, ErrUnsupportedType)
	}
}
