package report

import (
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	historyColor = color.RGBA{R: 220, A: 255}
	futureColor  = color.RGBA{B: 220, A: 255}
	splitColor   = color.RGBA{R: 128, B: 128, A: 255}
)

// Default figure size when saving a band plot
const (
	FigureWidth  = 15 * vg.Inch
	FigureHeight = 5 * vg.Inch
)

func fade(c color.Color, alpha float64) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(alpha * 255)
	return n
}

// toXYs converts a series to plot points leaving out missing values
func toXYs(s series) plotter.XYs {
	xys := make(plotter.XYs, 0, len(s.T))
	for i := range s.T {
		if math.IsNaN(s.Y[i]) || math.IsInf(s.Y[i], 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(s.T[i].Unix()), Y: s.Y[i]})
	}
	return xys
}

func addLine(p *plot.Plot, s series, c color.Color, width vg.Length, legend string) error {
	xys := toXYs(s)
	if len(xys) == 0 {
		return nil
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	l.Color = c
	l.Width = width
	p.Add(l)
	if legend != "" {
		p.Legend.Add(legend, l)
	}
	return nil
}

// PlotBands draws one faint line per predicted train and test window over the true history and
// future of the chosen column with a marker at the split date. Nothing is written; the caller
// decides where to save the figure.
func PlotBands(data *BandData, opt *BandOptions) (*plot.Plot, error) {
	opt = opt.withDefaults()
	bands, err := buildBands(data, opt)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.X.Tick.Marker = plot.TimeTicks{Format: time.DateOnly}

	trainColor := fade(opt.TrainColor, opt.Alpha)
	for i, s := range bands.train {
		legend := ""
		if i == 0 {
			legend = "prediction"
		}
		if err := addLine(p, s, trainColor, vg.Points(1), legend); err != nil {
			return nil, err
		}
	}
	testColor := fade(opt.TestColor, opt.Alpha)
	for _, s := range bands.test {
		if err := addLine(p, s, testColor, vg.Points(1), ""); err != nil {
			return nil, err
		}
	}
	if err := addLine(p, bands.history, historyColor, vg.Points(1.5), "history"); err != nil {
		return nil, err
	}
	if err := addLine(p, bands.future, futureColor, vg.Points(1.5), "future"); err != nil {
		return nil, err
	}

	if !data.Split.IsZero() && p.Y.Min <= p.Y.Max {
		marker := series{
			T: []time.Time{data.Split, data.Split},
			Y: []float64{p.Y.Min, p.Y.Max},
		}
		if err := addLine(p, marker, splitColor, vg.Points(1.5), "train/valid split"); err != nil {
			return nil, err
		}
	}

	p.Title.Text = opt.Decoration.Title
	p.X.Label.Text = opt.Decoration.XLabel
	p.Y.Label.Text = opt.Decoration.YLabel
	if opt.Decoration.Grid {
		p.Add(plotter.NewGrid())
	}
	return p, nil
}
