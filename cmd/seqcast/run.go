package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	seqcast "github.com/aouyang1/go-seqcast"
	"github.com/aouyang1/go-seqcast/models"
	"github.com/aouyang1/go-seqcast/report"
	"github.com/aouyang1/go-seqcast/table"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	runData         string
	runTestDate     string
	runName         string
	runPredictors   string
	runColumn       string
	runInputLength  int
	runFuturePeriod int
	runEnsemble     int
	runDropout      float64
	runPenalty      float64
	runSeed         uint64
	runStore        string
	runHTML         string
	runPNG          string
	runModel        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fit a window regression, forecast the test period and record its metrics",
	Example: `  seqcast run --data market.csv --test-date 2024-07-01
  seqcast run --data market.csv --ensemble 20 --dropout 0.2 --png bands.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := runOptions()
		if err != nil {
			return err
		}

		f, err := os.Open(runData)
		if err != nil {
			return err
		}
		defer f.Close()
		csvOpt := table.NewDefaultCSVOptions()
		csvOpt.Columns = opt.Prepare.Predictors
		tbl, err := table.ReadCSV(f, csvOpt)
		if err != nil {
			return fmt.Errorf("unable to read %s, %w", runData, err)
		}

		e, err := seqcast.New(opt)
		if err != nil {
			return err
		}
		if err := e.Fit(tbl); err != nil {
			return err
		}
		if err := e.Evaluate(report.NewStore(runStore)); err != nil {
			return err
		}

		if err := writeOutputs(e); err != nil {
			return err
		}

		m, err := e.Model()
		if err != nil {
			return err
		}
		return m.TablePrint(cmd.ErrOrStderr(), "", "  ")
	},
}

func runOptions() (*seqcast.Options, error) {
	testDate, err := time.Parse(time.DateOnly, runTestDate)
	if err != nil {
		return nil, fmt.Errorf("invalid test date, %w", err)
	}

	opt := seqcast.NewDefaultOptions()
	opt.Name = runName
	opt.InputLength = runInputLength
	opt.FuturePeriod = runFuturePeriod
	opt.Ensemble = runEnsemble
	opt.Prepare.TestDate = testDate
	opt.Prepare.SequenceLength = runInputLength
	if runPredictors != "" {
		opt.Prepare.Predictors = strings.Split(runPredictors, ",")
	}
	opt.Model = &models.WindowOptions{
		Regularization: runPenalty,
		DropoutRate:    runDropout,
		Seed:           runSeed,
	}
	opt.Bands.Column = runColumn
	opt.Bands.Decoration = report.Decoration{
		XLabel: "date",
		YLabel: runColumn,
		Title:  fmt.Sprintf("%s prediction bands", runColumn),
		Grid:   true,
	}
	return opt.Validate()
}

func writeOutputs(e *seqcast.Experiment) error {
	if runHTML != "" {
		f, err := os.Create(runHTML)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := e.PlotFit(f); err != nil {
			return err
		}
		slog.Info("wrote chart", "path", runHTML)
	}

	if runPNG != "" {
		p, err := e.Figure()
		if err != nil {
			return err
		}
		if err := p.Save(report.FigureWidth, report.FigureHeight, runPNG); err != nil {
			return fmt.Errorf("unable to save figure, %w", err)
		}
		slog.Info("wrote figure", "path", runPNG)
	}

	if runModel != "" {
		m, err := e.Model()
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(runModel, out, 0o644); err != nil {
			return err
		}
		slog.Info("wrote model", "path", runModel)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runData, "data", "market.csv", "input csv with a Date column")
	runCmd.Flags().StringVar(&runTestDate, "test-date", "2024-07-01", "first date of the test partition YYYY-MM-DD")
	runCmd.Flags().StringVar(&runName, "name", seqcast.DefaultName, "metrics key prefix")
	runCmd.Flags().StringVar(&runPredictors, "predictors", "", "comma separated predictor columns, defaults to the market variables")
	runCmd.Flags().StringVar(&runColumn, "column", "EUA", "column drawn in the charts")
	runCmd.Flags().IntVar(&runInputLength, "input-length", 28, "time steps per window")
	runCmd.Flags().IntVar(&runFuturePeriod, "future-period", 12, "recursive forecast steps")
	runCmd.Flags().IntVar(&runEnsemble, "ensemble", 1, "number of forecast trajectories")
	runCmd.Flags().Float64Var(&runDropout, "dropout", 0, "inference dropout rate in [0, 1)")
	runCmd.Flags().Float64Var(&runPenalty, "penalty", 1e-3, "ridge penalty")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 1, "dropout seed")
	runCmd.Flags().StringVar(&runStore, "store", report.DefaultStorePath, "metrics store path")
	runCmd.Flags().StringVar(&runHTML, "html", "forecast.html", "chart output path, empty to skip")
	runCmd.Flags().StringVar(&runPNG, "png", "", "figure output path, empty to skip")
	runCmd.Flags().StringVar(&runModel, "model", "", "model json output path, empty to skip")
}
