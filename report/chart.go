package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func rgba(c color.Color, alpha float64) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("rgba(%d,%d,%d,%.2f)", n.R, n.G, n.B, alpha)
}

func lineData(s series) []opts.LineData {
	data := make([]opts.LineData, 0, len(s.T))
	for i := range s.T {
		if math.IsNaN(s.Y[i]) {
			continue
		}
		data = append(data, opts.LineData{Value: []interface{}{s.T[i].Format(time.DateOnly), s.Y[i]}})
	}
	return data
}

// LineBands generates an echart line chart of the same view as PlotBands on a time axis
func LineBands(data *BandData, opt *BandOptions) (*charts.Line, error) {
	opt = opt.withDefaults()
	bands, err := buildBands(data, opt)
	if err != nil {
		return nil, err
	}

	title := opt.Decoration.Title
	if title == "" {
		title = "Prediction Bands"
	}
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
				Name: opt.Decoration.XLabel,
			},
		),
		charts.WithYAxisOpts(
			opts.YAxis{
				Name: opt.Decoration.YLabel,
			},
		),
	)

	trainStyle := charts.WithLineStyleOpts(opts.LineStyle{Color: rgba(opt.TrainColor, opt.Alpha)})
	for _, s := range bands.train {
		line.AddSeries("prediction", lineData(s), trainStyle)
	}
	testStyle := charts.WithLineStyleOpts(opts.LineStyle{Color: rgba(opt.TestColor, opt.Alpha)})
	for _, s := range bands.test {
		line.AddSeries("validation", lineData(s), testStyle)
	}

	historyOpts := []charts.SeriesOpts{
		charts.WithLineStyleOpts(opts.LineStyle{Color: rgba(historyColor, 1)}),
	}
	if !data.Split.IsZero() {
		historyOpts = append(historyOpts, charts.WithMarkLineNameXAxisItemOpts(
			opts.MarkLineNameXAxisItem{
				Name:  "train/valid split",
				XAxis: data.Split.Format(time.DateOnly),
			},
		))
	}
	line.AddSeries("history", lineData(bands.history), historyOpts...)
	line.AddSeries("future", lineData(bands.future),
		charts.WithLineStyleOpts(opts.LineStyle{Color: rgba(futureColor, 1)}),
	)
	return line, nil
}

// RenderHTML writes a page holding every chart
func RenderHTML(w io.Writer, c ...components.Charter) error {
	page := components.NewPage()
	page.AddCharts(c...)
	return page.Render(w)
}
