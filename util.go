package seqcast

import (
	"math"
	"time"

	"github.com/aouyang1/go-seqcast/table"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineTSeries generates an echart multi-line chart on a time axis. Every series must have the
// same length as the input time slice. NaN values are left out.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithXAxisOpts(
			opts.XAxis{
				Type: "time",
			},
		),
	)

	for i, series := range seriesName {
		lineData := make([]opts.LineData, 0, len(y[i]))
		for j := 0; j < len(y[i]); j++ {
			if math.IsNaN(y[i][j]) {
				continue
			}
			lineData = append(lineData, opts.LineData{Value: []interface{}{t[j].Format(time.DateOnly), y[i][j]}})
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

// LineForecast generates an echart line chart of a forecast result plotting the actual values of
// the column on the forecast dates along with the forecasted, upper and lower values.
func LineForecast(tbl *table.Table, column string, res *Results) (*charts.Line, error) {
	actual := make([]float64, len(res.T))
	for i := range actual {
		actual[i] = math.NaN()
	}
	if tbl != nil {
		values, err := tbl.Column(column)
		if err != nil {
			return nil, err
		}
		byDate := make(map[time.Time]float64, len(values))
		for i, d := range tbl.T {
			byDate[d] = values[i]
		}
		for i, d := range res.T {
			if v, exists := byDate[d]; exists {
				actual[i] = v
			}
		}
	}

	return LineTSeries(
		"Forecast",
		[]string{"Actual", "Forecast", "Upper", "Lower"},
		res.T,
		[][]float64{actual, res.Forecast, res.Upper, res.Lower},
	), nil
}
