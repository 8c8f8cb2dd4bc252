package forecast

import (
	"fmt"
	"time"

	"github.com/aouyang1/go-seqcast/tensor"
	"gonum.org/v1/gonum/floats"
)

// Result holds the trajectories of a recursive forecast. Trajectories[e][k] is the output of
// step k of ensemble member e. Dates is nil unless the forecast was anchored, otherwise
// Dates[k] labels the time steps of step k.
type Result struct {
	Trajectories [][]*tensor.Dense
	Dates        [][]time.Time
}

// Ensemble returns the number of trajectories
func (r *Result) Ensemble() int {
	if r == nil {
		return 0
	}
	return len(r.Trajectories)
}

// Trajectory returns the step outputs of ensemble member e
func (r *Result) Trajectory(e int) ([]*tensor.Dense, error) {
	if e < 0 || e >= r.Ensemble() {
		return nil, fmt.Errorf("member %d of %d, %w", e, r.Ensemble(), ErrEnsembleOutRange)
	}
	return r.Trajectories[e], nil
}

// Stack concatenates the steps of ensemble member e along time into a [steps*time, features]
// tensor
func (r *Result) Stack(e int) (*tensor.Dense, error) {
	trajectory, err := r.Trajectory(e)
	if err != nil {
		return nil, err
	}
	rows := make([]*tensor.Dense, 0, len(trajectory))
	for _, step := range trajectory {
		rr, err := step.Rows()
		if err != nil {
			return nil, err
		}
		rows = append(rows, rr)
	}
	return tensor.Concat(rows)
}

// Members stacks every ensemble member, one [steps*time, features] tensor each
func (r *Result) Members() ([]*tensor.Dense, error) {
	members := make([]*tensor.Dense, 0, r.Ensemble())
	for e := 0; e < r.Ensemble(); e++ {
		m, err := r.Stack(e)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// Mean is the elementwise ensemble mean of the stacked trajectories
func (r *Result) Mean() (*tensor.Dense, error) {
	members, err := r.Members()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("no trajectories, %w", ErrEnsembleOutRange)
	}
	sum := members[0].Data()
	for _, m := range members[1:] {
		floats.Add(sum, m.Data())
	}
	floats.Scale(1/float64(len(members)), sum)
	return tensor.New(members[0].Shape(), sum)
}

// FlatDates returns the date labels in the row order of Stack, or nil when unanchored
func (r *Result) FlatDates() []time.Time {
	if r == nil || r.Dates == nil {
		return nil
	}
	var out []time.Time
	for _, step := range r.Dates {
		out = append(out, step...)
	}
	return out
}
