package tensor

import (
	"errors"
	"fmt"

	"github.com/x448/float16"
)

var ErrUnknownPrecision = errors.New("unknown precision")

// Precision selects the storage type of tensor values. Half precision is lossy and only
// used when asked for.
type Precision int

const (
	PrecisionFull Precision = iota
	PrecisionHalf
)

func (p Precision) String() string {
	switch p {
	case PrecisionFull:
		return "full"
	case PrecisionHalf:
		return "half"
	default:
		return fmt.Sprintf("precision(%d)", int(p))
	}
}

func (p Precision) MarshalText() ([]byte, error) {
	switch p {
	case PrecisionFull, PrecisionHalf:
		return []byte(p.String()), nil
	}
	return nil, fmt.Errorf("%d, %w", int(p), ErrUnknownPrecision)
}

func (p *Precision) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "full", "float64":
		*p = PrecisionFull
	case "half", "float16":
		*p = PrecisionHalf
	default:
		return fmt.Errorf("%q, %w", string(text), ErrUnknownPrecision)
	}
	return nil
}

// ToHalf returns a copy of the tensor stored as float16. Values are rounded to the nearest
// representable half precision value.
func (d *Dense) ToHalf() *Dense {
	if d.prec == PrecisionHalf {
		return d.Copy()
	}
	c := &Dense{
		shape: d.Shape(),
		prec:  PrecisionHalf,
		f16:   make([]float16.Float16, len(d.f64)),
	}
	for i, v := range d.f64 {
		c.f16[i] = float16.Fromfloat32(float32(v))
	}
	return c
}

// ToFull returns a float64 copy of the tensor.
func (d *Dense) ToFull() *Dense {
	return &Dense{
		shape: d.Shape(),
		f64:   d.Data(),
	}
}

// WithPrecision converts the tensor to the requested precision.
func (d *Dense) WithPrecision(p Precision) (*Dense, error) {
	switch p {
	case PrecisionFull:
		return d.ToFull(), nil
	case PrecisionHalf:
		return d.ToHalf(), nil
	}
	return nil, fmt.Errorf("%d, %w", int(p), ErrUnknownPrecision)
}
