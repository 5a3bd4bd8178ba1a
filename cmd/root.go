package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "cowboy-strava",
	Short: "Sync Cowboy bike trips to Strava",
	Long: `cowboy-strava is a batch job that syncs recent Cowboy bike trips to
Strava. Trips with dashboard telemetry are uploaded as TCX tracks with
GPS and power data; trips without it become summary-only activities.
Each trip is uploaded at most once across runs.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
