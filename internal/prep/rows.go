// Package prep holds the CSV row transformations that enrich downloaded bar
// files with derived columns (wick sizes, previous-day high/low) before they
// reach a backtest feed or a chart.
package prep

import (
	"math"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/pkg/errors"
)

// Row is the enriched persisted layout. The optional columns stay nil until
// the corresponding transformation stamps them, and nil marshals back to an
// empty cell.
type Row struct {
	Date      types.CSVTime `csv:"date"`
	Open      *float64      `csv:"open"`
	High      *float64      `csv:"high"`
	Low       *float64      `csv:"low"`
	Close     *float64      `csv:"close"`
	Volume    *float64      `csv:"volume"`
	PDH       *float64      `csv:"pdh"`
	PDL       *float64      `csv:"pdl"`
	UpperWick *float64      `csv:"upper_wick"`
	LowerWick *float64      `csv:"lower_wick"`
	TotalWick *float64      `csv:"total_wick"`
}

// ReadRows decodes an enriched bar CSV. Optional columns may be absent.
func ReadRows(path string) ([]*Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open %s", path)
	}
	defer file.Close()

	var rows []*Row

	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeReadFailed, err, "failed to decode %s", path)
	}

	if len(rows) == 0 {
		return nil, errors.Newf(errors.ErrCodeEmptyInput, "no rows in %s", path)
	}

	return rows, nil
}

// WriteRows writes the enriched layout back, replacing the file.
func WriteRows(path string, rows []*Row) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to encode %s", path)
	}

	return nil
}

// Bars converts rows to the in-memory bar form consumed by the extractor,
// normalizing timestamps into loc when set.
func Bars(rows []*Row, loc *time.Location) []types.MarketData {
	bars := make([]types.MarketData, 0, len(rows))

	for _, row := range rows {
		bars = append(bars, types.MarketData{
			Time:   row.Date.Normalize(loc),
			Open:   deref(row.Open),
			High:   deref(row.High),
			Low:    deref(row.Low),
			Close:  deref(row.Close),
			Volume: deref(row.Volume),
		})
	}

	return bars
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}

	return *v
}

func ptr(v float64) *float64 {
	return &v
}
