package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyHeader    = errors.New("empty csv header")
	ErrNoDateColumn   = errors.New("date column not in csv header")
	ErrRowFieldLength = errors.New("csv row has wrong number of fields")
)

// DefaultDateLayout parses ISO dates such as 2024-07-01
const DefaultDateLayout = time.DateOnly

// CSVOptions configures how a table is read from csv
type CSVOptions struct {
	DateColumn string `json:"date_column"`
	DateLayout string `json:"date_layout"`

	// Columns restricts the value columns read. Empty reads every non date column.
	Columns []string `json:"columns"`
}

func NewDefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateColumn: DefaultDateColumn,
		DateLayout: DefaultDateLayout,
	}
}

// ReadCSV loads a table from csv with a header row. Empty numeric fields are read as NaN.
// Rows must already be sorted by date.
func ReadCSV(r io.Reader, opt *CSVOptions) (*Table, error) {
	if opt == nil {
		opt = NewDefaultCSVOptions()
	}
	dateColumn := opt.DateColumn
	if dateColumn == "" {
		dateColumn = DefaultDateColumn
	}
	layout := opt.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyHeader
		}
		return nil, fmt.Errorf("unable to read header, %w", err)
	}

	dateIdx := slices.Index(header, dateColumn)
	if dateIdx < 0 {
		return nil, fmt.Errorf("%q, %w", dateColumn, ErrNoDateColumn)
	}

	columns := opt.Columns
	if len(columns) == 0 {
		for i, name := range header {
			if i != dateIdx {
				columns = append(columns, name)
			}
		}
	}
	colIdx := make([]int, len(columns))
	for j, name := range columns {
		idx := slices.Index(header, name)
		if idx < 0 {
			return nil, fmt.Errorf("%q, %w", name, ErrUnknownColumn)
		}
		colIdx[j] = idx
	}

	var t []time.Time
	values := make([][]float64, len(columns))
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("unable to read line %d, %w", line, err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("line %d has %d fields, expected %d, %w", line, len(record), len(header), ErrRowFieldLength)
		}

		d, err := time.Parse(layout, strings.TrimSpace(record[dateIdx]))
		if err != nil {
			return nil, fmt.Errorf("unable to parse date on line %d, %w", line, err)
		}
		t = append(t, d)

		for j, idx := range colIdx {
			field := strings.TrimSpace(record[idx])
			if field == "" {
				values[j] = append(values[j], math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("unable to parse %q on line %d, %w", columns[j], line, err)
			}
			values[j] = append(values[j], v)
		}
	}

	return New(dateColumn, t, columns, values)
}

// WriteCSV writes the table with the date column first using the given date layout
func WriteCSV(w io.Writer, tb *Table, layout string) error {
	if layout == "" {
		layout = DefaultDateLayout
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{tb.DateColumn}, tb.columns...)); err != nil {
		return err
	}

	record := make([]string, len(tb.columns)+1)
	for i, d := range tb.T {
		record[0] = d.Format(layout)
		for j, col := range tb.values {
			record[j+1] = strconv.FormatFloat(col[i], 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
