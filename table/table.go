// Package table holds a date indexed table of named numeric columns, the raw input of a
// windowed forecasting experiment.
package table

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aouyang1/go-seqcast/tensor"
)

var (
	ErrNoColumns          = errors.New("no value columns")
	ErrNonMonotonic       = errors.New("date column is not monotonic")
	ErrDatasetLenMismatch = errors.New("column has a different length than the date column")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrDuplicateColumn    = errors.New("duplicate column")
)

// DefaultDateColumn is the name of the date column when none is given
const DefaultDateColumn = "Date"

// Table represents rows of numeric values aligned to strictly increasing dates. Values are
// stored one slice per column.
type Table struct {
	DateColumn string
	T          []time.Time

	columns []string
	index   map[string]int
	values  [][]float64
}

// New returns a Table given the date column name, the row dates and one value slice per
// named column. All inputs are copied.
func New(dateColumn string, t []time.Time, columns []string, values [][]float64) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%d column names for %d columns, %w", len(columns), len(values), ErrDatasetLenMismatch)
	}
	if dateColumn == "" {
		dateColumn = DefaultDateColumn
	}

	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, exists := index[name]; exists || name == dateColumn {
			return nil, fmt.Errorf("%q, %w", name, ErrDuplicateColumn)
		}
		index[name] = i
	}

	for i, col := range values {
		if len(col) != len(t) {
			return nil, fmt.Errorf(
				"date column has length of %d, but %q has a length of %d, %w",
				len(t), columns[i], len(col), ErrDatasetLenMismatch,
			)
		}
	}

	for i := 1; i < len(t); i++ {
		if !t[i].After(t[i-1]) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMonotonic)
		}
	}

	tb := &Table{
		DateColumn: dateColumn,
		T:          slices.Clone(t),
		columns:    slices.Clone(columns),
		index:      index,
		values:     make([][]float64, len(values)),
	}
	for i, col := range values {
		tb.values[i] = slices.Clone(col)
	}
	if tb.T == nil {
		tb.T = []time.Time{}
	}
	for i := range tb.values {
		if tb.values[i] == nil {
			tb.values[i] = []float64{}
		}
	}
	return tb, nil
}

// Len is the number of rows
func (tb *Table) Len() int {
	return len(tb.T)
}

// Columns returns the value column names in storage order
func (tb *Table) Columns() []string {
	return slices.Clone(tb.columns)
}

// Dates returns the row dates if name refers to the date column of the table.
func (tb *Table) Dates(name string) ([]time.Time, error) {
	if name != tb.DateColumn {
		return nil, fmt.Errorf("date column %q, %w", name, ErrUnknownColumn)
	}
	return slices.Clone(tb.T), nil
}

// Column returns a copy of the named value column
func (tb *Table) Column(name string) ([]float64, error) {
	idx, exists := tb.index[name]
	if !exists {
		return nil, fmt.Errorf("%q, %w", name, ErrUnknownColumn)
	}
	return slices.Clone(tb.values[idx]), nil
}

// Select returns the named columns as a [rows, len(names)] tensor. No names selects every
// column.
func (tb *Table) Select(names ...string) (*tensor.Dense, error) {
	if len(names) == 0 {
		names = tb.columns
	}
	cols := make([][]float64, len(names))
	for j, name := range names {
		idx, exists := tb.index[name]
		if !exists {
			return nil, fmt.Errorf("%q, %w", name, ErrUnknownColumn)
		}
		cols[j] = tb.values[idx]
	}

	n := tb.Len()
	data := make([]float64, n*len(names))
	for i := 0; i < n; i++ {
		for j, col := range cols {
			data[i*len(names)+j] = col[i]
		}
	}
	return tensor.New([]int{n, len(names)}, data)
}

// Filter returns a new table with only the rows whose date satisfies keep
func (tb *Table) Filter(keep func(time.Time) bool) *Table {
	res := &Table{
		DateColumn: tb.DateColumn,
		T:          make([]time.Time, 0, len(tb.T)),
		columns:    slices.Clone(tb.columns),
		index:      make(map[string]int, len(tb.index)),
		values:     make([][]float64, len(tb.values)),
	}
	for name, idx := range tb.index {
		res.index[name] = idx
	}
	for j := range res.values {
		res.values[j] = make([]float64, 0, len(tb.T))
	}

	for i, t := range tb.T {
		if !keep(t) {
			continue
		}
		res.T = append(res.T, t)
		for j := range tb.values {
			res.values[j] = append(res.values[j], tb.values[j][i])
		}
	}
	return res
}

// Before returns the rows strictly before t
func (tb *Table) Before(t time.Time) *Table {
	return tb.Filter(func(d time.Time) bool { return d.Before(t) })
}

// After returns the rows strictly after t
func (tb *Table) After(t time.Time) *Table {
	return tb.Filter(func(d time.Time) bool { return d.After(t) })
}

// Tail returns the last n rows, or the whole table when it is shorter
func (tb *Table) Tail(n int) *Table {
	start := tb.Len() - n
	if start < 0 {
		start = 0
	}
	i := 0
	return tb.Filter(func(time.Time) bool {
		keep := i >= start
		i++
		return keep
	})
}

// Copy returns a deep copy of the table
func (tb *Table) Copy() *Table {
	return tb.Filter(func(time.Time) bool { return true })
}

// StartTime is the first date of the table or the zero time if empty
func (tb *Table) StartTime() time.Time {
	return TimeSlice(tb.T).StartTime()
}

// EndTime is the last date of the table or the zero time if empty
func (tb *Table) EndTime() time.Time {
	return TimeSlice(tb.T).EndTime()
}
