package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"recycle-watch/internal/storage"
)

// Export renders reading history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	readings, err := store.ListReadingsBetween(ctx, a.Config.Subnet.NetUID, from, to)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		a.Logger.Info().Msg("no readings found for export window")
		return nil
	}

	downsampled := downsampleReadings(readings, opts.MaxPoints)
	a.Logger.Info().Int("total", len(readings)).Int("exported", len(downsampled)).Msg("exporting readings")

	if opts.CSVPath != "" {
		if err := writeReadingsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := a.writeReadingsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleReadings(readings []storage.Reading, max int) []storage.Reading {
	if max <= 0 || len(readings) <= max {
		return readings
	}
	if max == 1 {
		return readings[len(readings)-1:]
	}

	result := make([]storage.Reading, 0, max)
	step := float64(len(readings)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(readings) {
			idx = len(readings) - 1
		}
		result = append(result, readings[idx])
	}
	return result
}

func writeReadingsCSV(path string, readings []storage.Reading) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"observed_at", "netuid", "cost_tao", "band", "low", "super_low", "notifications"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range readings {
		record := []string{
			r.ObservedAt.UTC().Format(time.RFC3339),
			r.NetUID,
			r.Cost.String(),
			r.Band,
			strconv.Itoa(flag(r.Low)),
			strconv.Itoa(flag(r.SuperLow)),
			strings.Join(r.Notifications, ";"),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func (a *App) writeReadingsPNG(path string, readings []storage.Reading) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(readings))
	cost := make([]float64, len(readings))
	superLow := make([]float64, len(readings))
	low := make([]float64, len(readings))

	for i, r := range readings {
		x[i] = r.ObservedAt
		cost[i] = r.Cost.InexactFloat64()
		superLow[i] = a.Config.Thresholds.SuperLow
		low[i] = a.Config.Thresholds.Low
	}

	costFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.3f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Recycle cost (TAO)",
			ValueFormatter: costFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "SN" + a.Config.Subnet.NetUID + " recycle",
				XValues: x,
				YValues: cost,
			},
			chart.TimeSeries{
				Name:    "Low threshold",
				XValues: x,
				YValues: low,
			},
			chart.TimeSeries{
				Name:    "Super low threshold",
				XValues: x,
				YValues: superLow,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
