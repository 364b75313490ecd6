package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/soltixdb/seasoncast/internal/config"
	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/models"
	"github.com/soltixdb/seasoncast/internal/queue"
	"github.com/soltixdb/seasoncast/internal/services"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Forecast every series of a CSV table or JSON request",
		Long: `Reads a wide CSV table (Year, Quarter, {Group}_{Metric}...) or a JSON body
in the POST /v1/forecast format, forecasts each series and prints the
forecast table with intervals and fit metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}

			data, err := loadInput(input)
			if err != nil {
				return fmt.Errorf("failed to load input: %w", err)
			}
			logger.Info("Input loaded", "path", input, "series", len(data.series))

			result, rc, err := execute(cmd, cfg, logger, data)
			if err != nil {
				return err
			}

			if output != "" {
				if err := writeTableFile(output, result, rc); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
			}
			return report(cmd.OutOrStdout(), result, rc)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file (.csv or .json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the forecast table as CSV")
	_ = cmd.MarkFlagRequired("input")
	addRunFlags(cmd)
	return cmd
}

// runConfig applies changed flags to the configured defaults
func runConfig(cmd *cobra.Command, cfg *config.Config, data *dataset) (services.RunConfig, error) {
	rc, err := services.RunConfigFromConfig(cfg.Forecast)
	if err != nil {
		return rc, err
	}
	flags := cmd.Flags()
	if flags.Changed("horizon") {
		rc.Horizon = horizon
	}
	if flags.Changed("trials") {
		rc.Trials = trials
	}
	if flags.Changed("seed") {
		rc.Seed = seed
	}
	if flags.Changed("confidence") {
		rc.Confidence = confidence
	}
	if flags.Changed("workers") {
		rc.Workers = workers
	}
	if flags.Changed("shocks") {
		rc.ShockDetector = shockDetector
	}
	rc.StartQuarter = data.start
	return rc, rc.Validate()
}

func execute(cmd *cobra.Command, cfg *config.Config, logger *logging.Logger, data *dataset) (*services.RunResult, services.RunConfig, error) {
	rc, err := runConfig(cmd, cfg, data)
	if err != nil {
		return nil, rc, err
	}

	opts := []services.ServiceOption{services.WithModelCache(cfg.Forecast.CacheSize)}
	if publish {
		pub, err := queue.NewPublisher(cfg.Publisher)
		if err != nil {
			return nil, rc, fmt.Errorf("failed to create publisher: %w", err)
		}
		defer func() { _ = pub.Close() }()
		opts = append(opts, services.WithPublisher(pub, cfg.Publisher.Subject))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := services.NewForecastService(logger, opts...).Run(ctx, data.series, rc)
	return result, rc, err
}

// report prints the result as JSON or as text tables
func report(w io.Writer, result *services.RunResult, rc services.RunConfig) error {
	resp := models.NewForecastResponse(result, rc.Confidence)
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	defer func() { _ = tw.Flush() }()

	fmt.Fprintf(tw, "Run %s: %d series, %d failed, %dms\n\n", resp.RunID, len(result.Outcomes), len(resp.Failures), resp.DurationMS)

	for _, r := range resp.Results {
		fmt.Fprintf(tw, "%s (%s trend, %s seasonal)\n", r.TableKey, r.Model.Trend, r.Model.Seasonal)
		fmt.Fprintf(tw, "  MAE %.2f\tRMSE %.2f\tMAPE %.2f%%\tp %.3f\talpha %.3f\tbeta %.3f\tgamma %.3f\t\n",
			r.Metrics.MAE, r.Metrics.RMSE, r.Metrics.MAPE, r.Metrics.PValue, r.Model.Alpha, r.Model.Beta, r.Model.Gamma)
		fmt.Fprintf(tw, "  quarter\tforecast\tlower %.0f%%\tupper\t\n", r.Confidence*100)
		for _, p := range r.Forecast {
			fmt.Fprintf(tw, "  %s\t%.2f\t%.2f\t%.2f\t\n", pointLabel(p), p.Value, p.Lower, p.Upper)
		}
		for _, sh := range r.Shocks {
			label := sh.Label
			if label == "" {
				label = fmt.Sprintf("t=%d", sh.Period)
			}
			fmt.Fprintf(tw, "  shock %s\t%s\tresidual %.2f\tscore %.2f\t\n", label, sh.Kind, sh.Residual, sh.Score)
		}
		fmt.Fprintln(tw)
	}

	for _, f := range resp.Failures {
		fmt.Fprintf(tw, "FAILED %s_%s: %s (%s)\n", f.Group, f.Metric, f.Code, f.Message)
	}
	return nil
}

func pointLabel(p models.ForecastPoint) string {
	if p.Label != "" {
		return p.Label
	}
	return strconv.Itoa(p.Period)
}

func writeTableFile(path string, result *services.RunResult, rc services.RunConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeTable(f, result, rc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeTable writes one row per forecast quarter and one column per table key
func writeTable(w io.Writer, result *services.RunResult, rc services.RunConfig) error {
	columns := make([]string, 0, len(result.Table))
	for key := range result.Table {
		columns = append(columns, key)
	}
	slices.Sort(columns)

	// rows are labelled with the periods of the first successful key
	var periods []int
	for _, k := range result.Keys() {
		if o := result.Outcomes[k]; o.OK() {
			periods = o.Bundle.Forecast.Periods()
			break
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Quarter"}, columns...)); err != nil {
		return err
	}
	for i := 0; i < rc.Horizon; i++ {
		label := strconv.Itoa(i + 1)
		if i < len(periods) {
			label = strconv.Itoa(periods[i])
			if rc.StartQuarter != nil {
				label = rc.StartQuarter.Label(periods[i])
			}
		}
		row := []string{label}
		for _, col := range columns {
			row = append(row, strconv.FormatFloat(result.Table[col][i], 'f', 4, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
