package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/atlas-quant/daylevels/internal/annotate"
	"github.com/atlas-quant/daylevels/internal/config"
	"github.com/atlas-quant/daylevels/internal/datasource"
	"github.com/atlas-quant/daylevels/internal/extrema"
	"github.com/atlas-quant/daylevels/internal/logger"
	"github.com/atlas-quant/daylevels/internal/prep"
	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/internal/writer"
)

func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	if cmd.Bool("verbose") {
		return logger.NewDebugLogger()
	}

	return logger.NewLogger()
}

func resolveLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, nil
	}

	return time.LoadLocation(name)
}

// wicksAction stamps upper/lower/total wick columns onto a bar CSV.
func wicksAction(ctx context.Context, cmd *cli.Command) error {
	input := cmd.String("input")
	output := cmd.String("output")

	if output == "" {
		output = input
	}

	lg, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer lg.Sync()

	rows, err := prep.ReadRows(input)
	if err != nil {
		return err
	}

	stamped := prep.AddWickColumns(rows)
	if err := prep.WriteRows(output, rows); err != nil {
		return err
	}

	lg.Info("wick columns added",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("rows", len(rows)),
		zap.Int("stamped", stamped))

	return nil
}

// stampAction stamps pdh/pdl columns for one date, or for every date in the
// file with --all.
func stampAction(ctx context.Context, cmd *cli.Command) error {
	input := cmd.String("input")
	output := cmd.String("output")
	targetDate := cmd.String("date")
	all := cmd.Bool("all")

	if output == "" {
		output = input
	}

	if !all && targetDate == "" {
		return fmt.Errorf("either --date or --all is required")
	}

	lg, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer lg.Sync()

	loc, err := resolveLocation(cmd.String("timezone"))
	if err != nil {
		return err
	}

	rows, err := prep.ReadRows(input)
	if err != nil {
		return err
	}

	days := 1

	if all {
		// One aggregation pass over the file, then one stamping pass,
		// instead of rescanning every row per date.
		levels, err := extrema.Extract(prep.Bars(rows, loc), loc)
		if err != nil {
			return err
		}

		days = len(levels)
		bar := progressbar.Default(int64(len(rows)), "stamping daily levels")

		for _, row := range rows {
			prep.StampFromLevels(row, levels, loc)

			if err := bar.Add(1); err != nil {
				return err
			}
		}
	} else {
		extremum, err := prep.StampDailyLevels(rows, targetDate, loc)
		if err != nil {
			return err
		}

		lg.Debug("stamped daily levels",
			zap.String("date", targetDate),
			zap.Float64("pdh", extremum.High),
			zap.Float64("pdl", extremum.Low))
	}

	if err := prep.WriteRows(output, rows); err != nil {
		return err
	}

	lg.Info("pdh/pdl columns stamped",
		zap.String("output", output),
		zap.Int("dates", days))

	return nil
}

// levelsAction runs the full pipeline: load bars, extract per-day extrema,
// build reference segments and write the run artifacts.
func levelsAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	lg, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer lg.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	window, err := cfg.VisibleRange()
	if err != nil {
		return err
	}

	levels, err := loadExtrema(cfg, loc, lg)
	if err != nil {
		return err
	}

	pdhPoints, pdlPoints := annotate.PointsFromExtrema(levels)
	for i := range pdhPoints {
		pdhPoints[i].Color = cfg.PDHColor()
	}

	for i := range pdlPoints {
		pdlPoints[i].Color = cfg.PDLColor()
	}

	segments, err := annotate.Build(append(pdhPoints, pdlPoints...), window)
	if err != nil {
		return err
	}

	output := cfg.Output
	if output == "" {
		output = "out"
	}

	w, err := writer.NewCSVWriter(output)
	if err != nil {
		return err
	}

	extremaList := make([]types.DailyExtremum, 0, len(levels))
	for _, level := range levels {
		extremaList = append(extremaList, level)
	}

	if err := w.WriteLevels(extremaList); err != nil {
		return err
	}

	if err := w.WriteSegments(segments); err != nil {
		return err
	}

	summary := writer.RunSummary{
		Input:       cfg.Input,
		Timezone:    cfg.Timezone,
		GeneratedAt: time.Now(),
		Days:        len(levels),
		Segments:    len(segments),
	}
	if err := w.WriteSummary(summary); err != nil {
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	lg.Info("level feed written",
		zap.String("run_dir", w.RunDir()),
		zap.Int("days", len(levels)),
		zap.Int("segments", len(segments)))

	return nil
}

// loadExtrema picks the engine by file extension: Parquet goes through
// DuckDB with SQL-side aggregation, CSV is loaded in memory.
func loadExtrema(cfg *config.PipelineConfig, loc *time.Location, lg *logger.Logger) (map[time.Time]types.DailyExtremum, error) {
	if strings.EqualFold(filepath.Ext(cfg.Input), ".parquet") {
		ds, err := datasource.NewDuckDBDataSource("", loc, lg)
		if err != nil {
			return nil, err
		}
		defer ds.Close()

		if err := ds.Initialize(cfg.Input); err != nil {
			return nil, err
		}

		list, err := ds.DailyExtrema(optional.None[time.Time](), optional.None[time.Time]())
		if err != nil {
			return nil, err
		}

		levels := make(map[time.Time]types.DailyExtremum, len(list))
		for _, level := range list {
			levels[level.Date] = level
		}

		return levels, nil
	}

	ds := datasource.NewCSVDataSource(lg, loc)
	if err := ds.Initialize(cfg.Input); err != nil {
		return nil, err
	}
	defer ds.Close()

	return extrema.Extract(ds.Bars(), loc)
}

// schemaAction prints the JSON schema of the pipeline config.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	schema, err := config.ToJSONSchema(config.PipelineConfig{})
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func verboseFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "daylevels",
		Usage: "Prepare bar CSVs and derive previous-day high/low reference levels",
		Commands: []*cli.Command{
			{
				Name:  "wicks",
				Usage: "Add upper/lower/total wick columns to a bar CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to the bar CSV",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (defaults to rewriting the input)",
					},
					verboseFlag(),
				},
				Action: wicksAction,
			},
			{
				Name:  "stamp",
				Usage: "Stamp pdh/pdl columns for one date or every date",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to the bar CSV",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (defaults to rewriting the input)",
					},
					&cli.StringFlag{
						Name:    "date",
						Aliases: []string{"d"},
						Usage:   "Target date in `YYYY-MM-DD` format",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Stamp every calendar date present in the file",
					},
					&cli.StringFlag{
						Name:  "timezone",
						Usage: "IANA timezone for day truncation (e.g. America/Bogota)",
					},
					verboseFlag(),
				},
				Action: stampAction,
			},
			{
				Name:  "levels",
				Usage: "Derive the per-day level feed and reference segments",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the pipeline YAML config",
						Required: true,
					},
					verboseFlag(),
				},
				Action: levelsAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the pipeline config",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
