package scale

import (
	"fmt"
	"math"
)

// Model is a serializeable representation of a fitted scaler
type Model struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Model returns the fitted state of the scaler
func (s *Standard) Model() Model {
	return Model{
		Mean:  s.Mean(),
		Scale: s.Scale(),
	}
}

// NewFromModel restores a scaler from a previously exported Model
func NewFromModel(m Model) (*Standard, error) {
	if len(m.Mean) == 0 {
		return nil, fmt.Errorf("no features, %w", ErrInvalidModel)
	}
	if len(m.Mean) != len(m.Scale) {
		return nil, fmt.Errorf("%d means and %d scales, %w", len(m.Mean), len(m.Scale), ErrInvalidModel)
	}
	for j, mu := range m.Mean {
		if math.IsNaN(mu) || math.IsInf(mu, 0) {
			return nil, fmt.Errorf("feature %d has mean %g, %w", j, mu, ErrInvalidModel)
		}
	}
	for j, sc := range m.Scale {
		if math.IsNaN(sc) || math.IsInf(sc, 0) || sc < MinStdDev {
			return nil, fmt.Errorf("feature %d has scale %g, %w", j, sc, ErrInvalidModel)
		}
	}
	return &Standard{
		mean:  append([]float64(nil), m.Mean...),
		scale: append([]float64(nil), m.Scale...),
	}, nil
}
