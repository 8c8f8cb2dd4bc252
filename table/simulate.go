package table

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"gonum.org/v1/gonum/floats"
)

var ErrNoSimulatedRows = errors.New("number of simulated rows must be positive")

// DefaultPredictors are the market variables of the carbon price experiments
var DefaultPredictors = []string{"EUA", "Oil", "Coal", "NG", "USEU", "S&P_clean", "DAX"}

// NewMarketCalendar returns a business calendar closed on weekends and the main US market
// holidays.
func NewMarketCalendar() *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.AddHoliday(
		us.NewYear,
		us.IndependenceDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return c
}

// GenerateDays returns n consecutive daily dates starting at start
func GenerateDays(start time.Time, n int) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, AddDays(start, i))
	}
	return t
}

// GenerateTradingDays returns the first n workdays of the calendar on or after start. A nil
// calendar generates consecutive days.
func GenerateTradingDays(start time.Time, n int, c *cal.BusinessCalendar) []time.Time {
	if c == nil {
		return GenerateDays(start, n)
	}
	t := make([]time.Time, 0, n)
	for d := start; len(t) < n; d = AddDays(d, 1) {
		if c.IsWorkday(d) {
			t = append(t, d)
		}
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func (s Series) Scale(c float64) Series {
	floats.Scale(c, s)
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateWaveY is a sine wave over the dates with the given period and phase offset
func GenerateWaveY(t []time.Time, amp float64, period time.Duration, offset time.Duration) Series {
	y := make([]float64, 0, len(t))
	for i := 0; i < len(t); i++ {
		phase := float64(t[i].Add(offset).Unix()) / period.Seconds()
		y = append(y, amp*math.Sin(2.0*math.Pi*phase))
	}
	return Series(y)
}

// GenerateTrendY grows linearly by slope per day since the first date
func GenerateTrendY(t []time.Time, slope float64) Series {
	y := make([]float64, len(t))
	if len(t) == 0 {
		return Series(y)
	}
	for i := 0; i < len(t); i++ {
		y[i] = slope * t[i].Sub(t[0]).Hours() / 24.0
	}
	return Series(y)
}

// GenerateRandomWalk accumulates normally distributed steps of the given scale
func GenerateRandomWalk(rng *rand.Rand, n int, scale float64) Series {
	y := make([]float64, n)
	var level float64
	for i := 0; i < n; i++ {
		level += rng.NormFloat64() * scale
		y[i] = level
	}
	return Series(y)
}

func GenerateNoise(rng *rand.Rand, n int, scale float64) Series {
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = rng.NormFloat64() * scale
	}
	return Series(y)
}

// SimulateOptions configures a synthetic market table
type SimulateOptions struct {
	Start    time.Time
	Rows     int
	Seed     uint64
	Calendar *cal.BusinessCalendar
	Columns  []string
}

func NewDefaultSimulateOptions() *SimulateOptions {
	return &SimulateOptions{
		Start:   time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Rows:    1200,
		Seed:    1,
		Columns: DefaultPredictors,
	}
}

// Simulate generates a table of correlated market like series: a shared random walk factor,
// a yearly cycle, a small trend and idiosyncratic noise per column.
func Simulate(opt *SimulateOptions) (*Table, error) {
	if opt == nil {
		opt = NewDefaultSimulateOptions()
	}
	if opt.Rows <= 0 {
		return nil, ErrNoSimulatedRows
	}
	columns := opt.Columns
	if len(columns) == 0 {
		columns = DefaultPredictors
	}

	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed^0x9e3779b97f4a7c15))
	t := GenerateTradingDays(opt.Start, opt.Rows, opt.Calendar)
	factor := GenerateRandomWalk(rng, opt.Rows, 1.0)

	values := make([][]float64, len(columns))
	for j := range columns {
		base := 50.0 + 25.0*float64(j)
		loading := 0.5 + rng.Float64()
		y := GenerateConstY(opt.Rows, base).
			Add(make(Series, opt.Rows).Add(factor).Scale(loading)).
			Add(GenerateWaveY(t, 3.0+float64(j%3), 365*Day, time.Duration(j)*30*Day)).
			Add(GenerateTrendY(t, 0.01*float64(j%2))).
			Add(GenerateNoise(rng, opt.Rows, 0.5))
		values[j] = y
	}
	return New(DefaultDateColumn, t, columns, values)
}
