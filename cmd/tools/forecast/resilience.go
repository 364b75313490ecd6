package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/soltixdb/seasoncast/internal/analytics"
	"github.com/soltixdb/seasoncast/internal/services"
	"github.com/spf13/cobra"
)

// recoveryWindow compares the mean of one year against an earlier baseline year
type recoveryWindow struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

func (w recoveryWindow) String() string {
	return fmt.Sprintf("%d-%d", w.Before, w.After)
}

func parseWindow(s string) (recoveryWindow, error) {
	before, after, ok := strings.Cut(s, ":")
	if !ok {
		return recoveryWindow{}, fmt.Errorf("window %q: expected BEFORE:AFTER", s)
	}
	b, err := strconv.Atoi(strings.TrimSpace(before))
	if err != nil {
		return recoveryWindow{}, fmt.Errorf("window %q: %w", s, err)
	}
	a, err := strconv.Atoi(strings.TrimSpace(after))
	if err != nil {
		return recoveryWindow{}, fmt.Errorf("window %q: %w", s, err)
	}
	if a <= b {
		return recoveryWindow{}, fmt.Errorf("window %q: recovery year must follow the baseline year", s)
	}
	return recoveryWindow{Before: b, After: a}, nil
}

// recoveryRow holds the recovery rates of one group; nil marks a window
// without data.
type recoveryRow struct {
	Group string     `json:"group"`
	Rates []*float64 `json:"rates"`
}

func recoveryTable(data *dataset, metric string, windows []recoveryWindow) ([]recoveryRow, error) {
	if data.start == nil {
		return nil, fmt.Errorf("input has no calendar start quarter")
	}

	var keys []services.SeriesKey
	for key := range data.series {
		if strings.EqualFold(key.Metric, metric) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no series for metric %q", metric)
	}
	slices.SortFunc(keys, func(a, b services.SeriesKey) int { return strings.Compare(a.Group, b.Group) })

	rows := make([]recoveryRow, 0, len(keys))
	for _, key := range keys {
		row := recoveryRow{Group: key.Group, Rates: make([]*float64, len(windows))}
		for i, w := range windows {
			rate, err := analytics.RecoveryRate(data.series[key], *data.start, w.Before, w.After)
			if err == nil {
				row.Rates[i] = &rate
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func resilienceCmd() *cobra.Command {
	var input, metric string
	var windowArgs []string

	cmd := &cobra.Command{
		Use:   "resilience",
		Short: "Compare group recovery after downturns",
		Long: `Prints, per group, the percentage change of the yearly mean of a metric
between a baseline year and a recovery year. Without --input the synthetic
demo groups are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			windows := make([]recoveryWindow, 0, len(windowArgs))
			for _, s := range windowArgs {
				w, err := parseWindow(s)
				if err != nil {
					return err
				}
				windows = append(windows, w)
			}

			if _, _, err := loadEnv(); err != nil {
				return err
			}
			data := demoDataset(52, 7)
			if input != "" {
				var err error
				if data, err = loadInput(input); err != nil {
					return fmt.Errorf("failed to load input: %w", err)
				}
			}

			rows, err := recoveryTable(data, metric, windows)
			if err != nil {
				return err
			}
			return printRecovery(cmd.OutOrStdout(), metric, windows, rows)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file (.csv or .json)")
	cmd.Flags().StringVar(&metric, "metric", "Net Income", "Metric to compare")
	cmd.Flags().StringSliceVar(&windowArgs, "window", []string{"2007:2010", "2019:2022"}, "Baseline and recovery year, BEFORE:AFTER")
	return cmd
}

func printRecovery(w io.Writer, metric string, windows []recoveryWindow, rows []recoveryRow) error {
	if jsonOutput {
		return json.NewEncoder(w).Encode(map[string]interface{}{
			"metric":  metric,
			"windows": windows,
			"rows":    rows,
		})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s recovery (%%)", metric)
	for _, win := range windows {
		fmt.Fprintf(tw, "\t%s", win)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		fmt.Fprint(tw, row.Group)
		for _, r := range row.Rates {
			if r == nil {
				fmt.Fprint(tw, "\tn/a")
				continue
			}
			fmt.Fprintf(tw, "\t%.1f", *r)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
