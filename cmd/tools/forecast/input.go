package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soltixdb/seasoncast/internal/analytics"
	"github.com/soltixdb/seasoncast/internal/models"
	"github.com/soltixdb/seasoncast/internal/services"
)

// dataset is a loaded input: series by key plus the calendar quarter of period 0
type dataset struct {
	series map[services.SeriesKey]analytics.TimeSeries
	start  *analytics.Quarter
}

// loadInput reads a wide CSV table or a JSON forecast request, chosen by extension
func loadInput(path string) (*dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readWideCSV(f)
	case ".json":
		return readRequestJSON(f)
	default:
		return nil, fmt.Errorf("unsupported input %q: expected .csv or .json", path)
	}
}

// readWideCSV reads one row per quarter. Year and Quarter columns locate the
// row; every other column is a series named "{Group}_{Metric}", with
// underscores in the metric part read as spaces. Empty and NA cells are gaps.
func readWideCSV(r io.Reader) (*dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	yearCol, quarterCol := -1, -1
	keys := make(map[int]services.SeriesKey)
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "year":
			yearCol = i
		case "quarter":
			quarterCol = i
		default:
			key, err := parseColumn(name)
			if err != nil {
				return nil, err
			}
			keys[i] = key
		}
	}
	if yearCol < 0 || quarterCol < 0 {
		return nil, fmt.Errorf("header needs Year and Quarter columns, got %v", header)
	}

	points := make(map[services.SeriesKey][]analytics.Observation, len(keys))
	var start *analytics.Quarter
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		q, err := rowQuarter(row[yearCol], row[quarterCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if start == nil {
			start = &q
		}
		period := quarterIndex(q) - quarterIndex(*start)

		for col, key := range keys {
			cell := strings.TrimSpace(row[col])
			if cell == "" || strings.EqualFold(cell, "na") || strings.EqualFold(cell, "nan") {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, header[col], err)
			}
			points[key] = append(points[key], analytics.Observation{Period: period, Value: v})
		}
	}
	if start == nil {
		return nil, fmt.Errorf("no data rows")
	}

	ds := &dataset{series: make(map[services.SeriesKey]analytics.TimeSeries, len(points)), start: start}
	for key, obs := range points {
		ts, err := analytics.NewTimeSeries(obs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key.TableKey(), err)
		}
		ds.series[key] = ts
	}
	return ds, nil
}

func readRequestJSON(r io.Reader) (*dataset, error) {
	var req models.ForecastRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	ds := &dataset{series: make(map[services.SeriesKey]analytics.TimeSeries, len(req.Series))}
	if req.StartQuarter != "" {
		q, err := analytics.ParseQuarter(req.StartQuarter)
		if err != nil {
			return nil, err
		}
		ds.start = &q
	}
	for _, in := range req.Series {
		ts, err := in.TimeSeries()
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", in.Metric, in.Group, err)
		}
		ds.series[services.SeriesKey{Metric: in.Metric, Group: in.Group}] = ts
	}
	return ds, nil
}

// parseColumn splits "Legacy_Net_Income" into group Legacy and metric "Net Income"
func parseColumn(name string) (services.SeriesKey, error) {
	group, metric, ok := strings.Cut(strings.TrimSpace(name), "_")
	if !ok || group == "" || metric == "" {
		return services.SeriesKey{}, fmt.Errorf("column %q is not named {Group}_{Metric}", name)
	}
	return services.SeriesKey{Group: group, Metric: strings.ReplaceAll(metric, "_", " ")}, nil
}

func rowQuarter(year, quarter string) (analytics.Quarter, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return analytics.Quarter{}, fmt.Errorf("invalid year %q", year)
	}
	q := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(quarter)), "Q")
	n, err := strconv.Atoi(q)
	if err != nil || n < 1 || n > analytics.QuartersPerYear {
		return analytics.Quarter{}, fmt.Errorf("invalid quarter %q", quarter)
	}
	return analytics.Quarter{Year: y, Q: n}, nil
}

func quarterIndex(q analytics.Quarter) int {
	return q.Year*analytics.QuartersPerYear + q.Q - 1
}
