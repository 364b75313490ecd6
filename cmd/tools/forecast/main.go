package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/seasoncast/internal/config"
	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/utils"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	logLevel   string
	jsonOutput bool

	// Run flags shared by demo and run
	horizon       int
	trials        int
	seed          uint64
	confidence    float64
	workers       int
	shockDetector string
	publish       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seasoncast-forecast",
		Short: "Quarterly Holt-Winters forecasts with Monte Carlo intervals",
		Long: `Fits a Holt-Winters smoother per (metric, group) series, forecasts the
next quarters and derives confidence bands by resampling fit residuals.
Defaults come from the service configuration file and SEASONCAST_* variables.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")

	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(resilienceCmd())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// addRunFlags registers the overrides applied on top of the configured defaults
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&horizon, "horizon", 0, "Quarters to forecast (default from config)")
	cmd.Flags().IntVar(&trials, "trials", 0, "Monte Carlo trials per series (default from config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Simulation seed (default from config)")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "Interval confidence level (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Series processed in parallel (default from config)")
	cmd.Flags().StringVar(&shockDetector, "shocks", "", "Residual shock detector: zscore, iqr or none (default from config)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish results through the configured publisher")
}

// loadEnv loads configuration and builds a logger writing to stderr
func loadEnv() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Logging.Level = logLevel
	cfg.Logging.OutputPath = "stderr"
	cfg.Logging.Format = "console"

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.SetGlobal(logger)
	return cfg, logger, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), utils.Version)
		},
	}
}
