package seqcast

import "time"

// Results is a forecast of one column in original units. Forecast is the ensemble mean and
// Upper and Lower bound every member.
type Results struct {
	T        []time.Time `json:"time"`
	Forecast []float64   `json:"forecast"`
	Upper    []float64   `json:"upper"`
	Lower    []float64   `json:"lower"`
}
