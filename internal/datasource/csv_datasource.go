package datasource

import (
	"math"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/atlas-quant/daylevels/internal/logger"
	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/pkg/errors"
)

// csvBarRow is the persisted bar layout. Pointer fields let empty cells and
// absent optional columns decode to nil, which becomes NaN on the bar.
type csvBarRow struct {
	Date   types.CSVTime `csv:"date"`
	Open   *float64      `csv:"open"`
	High   *float64      `csv:"high"`
	Low    *float64      `csv:"low"`
	Close  *float64      `csv:"close"`
	Volume *float64      `csv:"volume"`
}

// CSVDataSource loads a bar CSV into memory and serves range queries over
// the cached, chronologically sorted series.
type CSVDataSource struct {
	logger *logger.Logger

	// loc, when set, normalizes every timestamp into one named timezone:
	// offset-bearing strings are converted, offset-less ones interpreted.
	// When nil, mixed files are refused with ErrCodeAmbiguousTimezone.
	loc *time.Location

	cache []types.MarketData
}

// NewCSVDataSource creates a CSV data source. loc may be nil; see CSVDataSource.
func NewCSVDataSource(log *logger.Logger, loc *time.Location) *CSVDataSource {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &CSVDataSource{
		logger: log,
		loc:    loc,
		cache:  nil,
	}
}

// Initialize implements DataSource. It reads and decodes the whole file.
func (d *CSVDataSource) Initialize(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open %s", path)
	}
	defer file.Close()

	var rows []*csvBarRow

	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return errors.Wrapf(errors.ErrCodeReadFailed, err, "failed to decode %s", path)
	}

	if len(rows) == 0 {
		return errors.Newf(errors.ErrCodeEmptyInput, "no rows in %s", path)
	}

	bars, err := d.toBars(rows)
	if err != nil {
		return err
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})

	d.cache = bars
	d.logger.Info("loaded bar csv", zap.String("path", path), zap.Int("rows", len(bars)))

	return nil
}

func (d *CSVDataSource) toBars(rows []*csvBarRow) ([]types.MarketData, error) {
	var sawOffset, sawNaive bool

	bars := make([]types.MarketData, 0, len(rows))

	for _, row := range rows {
		if !row.Date.IsZero() {
			if row.Date.HasOffset() {
				sawOffset = true
			} else {
				sawNaive = true
			}
		}

		bars = append(bars, types.MarketData{
			Time:   row.Date.Normalize(d.loc),
			Open:   deref(row.Open),
			High:   deref(row.High),
			Low:    deref(row.Low),
			Close:  deref(row.Close),
			Volume: deref(row.Volume),
		})
	}

	if sawOffset && sawNaive && d.loc == nil {
		return nil, errors.New(errors.ErrCodeAmbiguousTimezone,
			"file mixes offset-bearing and offset-less timestamps; configure a timezone to normalize into")
	}

	return bars, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}

	return *v
}

// Bars returns the cached series. The slice is shared; callers must not
// mutate it.
func (d *CSVDataSource) Bars() []types.MarketData {
	return d.cache
}

// ReadAll implements DataSource.
func (d *CSVDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		for _, bar := range d.cache {
			if start.IsSome() && bar.Time.Before(start.Unwrap()) {
				continue
			}

			if end.IsSome() && bar.Time.After(end.Unwrap()) {
				break
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// GetRange implements DataSource. Bounds are inclusive.
func (d *CSVDataSource) GetRange(start time.Time, end time.Time) ([]types.MarketData, error) {
	if end.Before(start) {
		return nil, errors.Newf(errors.ErrCodeInvalidRange, "range end %s before start %s", end, start)
	}

	var result []types.MarketData

	for bar, err := range d.ReadAll(optional.Some(start), optional.Some(end)) {
		if err != nil {
			return nil, err
		}

		result = append(result, bar)
	}

	return result, nil
}

// Count implements DataSource.
func (d *CSVDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, err := range d.ReadAll(start, end) {
		if err != nil {
			return 0, err
		}

		count++
	}

	return count, nil
}

// Close implements DataSource.
func (d *CSVDataSource) Close() error {
	d.cache = nil

	return nil
}
