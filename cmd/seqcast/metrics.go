package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/aouyang1/go-seqcast/report"
	"github.com/aouyang1/go-seqcast/stats"
	"github.com/spf13/cobra"
)

var metricsStore string

var metricsCmd = &cobra.Command{
	Use:     "metrics",
	Short:   "Summarize the records of a metrics store",
	Example: `  seqcast metrics --store performance_metric.plk`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 1, ' ', tabwriter.AlignRight)
		if _, err := fmt.Fprintf(w, "Key\tSamples\tMean\tMedian\t\n"); err != nil {
			return err
		}

		err := report.NewStore(metricsStore).Each(func(r report.Record) error {
			key, values, err := r.Entry()
			if err != nil {
				return err
			}
			mean, median := 0.0, 0.0
			if len(values) > 0 {
				zeros := make([]float64, len(values))
				// errors against zero are the values themselves
				if mean, err = stats.MAE(values, zeros); err != nil {
					return err
				}
				if median, err = stats.MedianAE(values, zeros); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t\n", key, len(values), mean, median)
			return err
		})
		if err != nil {
			return err
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().StringVar(&metricsStore, "store", report.DefaultStorePath, "metrics store path")
}
