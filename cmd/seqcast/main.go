// Command seqcast simulates market tables, fits recursive window forecasts and reports their
// error metrics.
package main

import (
	"log/slog"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	cpuProfile string
	stopper    interface{ Stop() }
)

var rootCmd = &cobra.Command{
	Use:           "seqcast",
	Short:         "Recursive window forecasting of daily market variables",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if cpuProfile != "" {
			stopper = profile.Start(profile.CPUProfile, profile.ProfilePath(cpuProfile), profile.Quiet)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopper != nil {
			stopper.Stop()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&cpuProfile, "cpuprofile", "", "write a cpu profile into this directory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("seqcast failed", "error", err)
		os.Exit(1)
	}
}
