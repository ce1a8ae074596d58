package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/atlas-quant/daylevels/internal/logger"
	"github.com/atlas-quant/daylevels/internal/types"
	"github.com/atlas-quant/daylevels/pkg/errors"
)

// DuckDBDataSource serves bar queries from a DuckDB view over a CSV or
// Parquet file. Intended for files too large to hold comfortably in a Go
// slice; the per-day extrema aggregation can then run SQL-side.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger

	// loc, when set, becomes the session timezone: timestamp-with-offset
	// columns convert into it before any date cast, offset-less timestamp
	// columns keep their wall clock. Day truncation then lands on the same
	// calendar day the CSV source produces for the same data.
	loc *time.Location

	sq squirrel.StatementBuilderType
}

// NewDuckDBDataSource opens a DuckDB database at path (":memory:" style empty
// path gives an in-memory database). This is distinct from Initialize(),
// which attaches the bar file. loc may be nil, meaning UTC truncation.
func NewDuckDBDataSource(path string, loc *time.Location, log *logger.Logger) (*DuckDBDataSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: log,
		loc:    loc,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource. It creates the bars view over the given
// CSV or Parquet file.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("initializing duckdb data source", zap.String("path", path))

	if d.loc != nil {
		query := fmt.Sprintf(`SET TimeZone = '%s';`, d.loc.String())
		if _, err := d.db.Exec(query); err != nil {
			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to set session timezone %s", d.loc)
		}
	}

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS bars;`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		reader = fmt.Sprintf("read_parquet('%s')", path)
	case ".csv":
		reader = fmt.Sprintf("read_csv_auto('%s')", path)
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported data file extension: %s", path)
	}

	// Squirrel doesn't support CREATE VIEW, so raw SQL here.
	query := fmt.Sprintf(`CREATE VIEW bars AS SELECT * FROM %s;`, reader)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to create bars view over %s", path)
	}

	return nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	builder := d.sq.Select("COUNT(*)").From("bars")

	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"date": start.Unwrap()})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"date": end.Unwrap()})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// ReadAll implements DataSource with batch processing.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	const batchSize = 1000

	return func(yield func(types.MarketData, error) bool) {
		offset := uint64(0)

		for {
			builder := d.sq.
				Select("date", "open", "high", "low", "close", "volume").
				From("bars").
				OrderBy("date ASC").
				Limit(batchSize).
				Offset(offset)

			if start.IsSome() {
				builder = builder.Where(squirrel.GtOrEq{"date": start.Unwrap()})
			}

			if end.IsSome() {
				builder = builder.Where(squirrel.LtOrEq{"date": end.Unwrap()})
			}

			query, args, err := builder.ToSql()
			if err != nil {
				yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build read query", err))

				return
			}

			rows, err := d.db.Query(query, args...)
			if err != nil {
				yield(types.MarketData{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read bars", err))

				return
			}

			read := 0

			for rows.Next() {
				bar, err := scanBar(rows)
				if err != nil {
					rows.Close()
					yield(types.MarketData{}, err)

					return
				}

				read++

				if !yield(bar, nil) {
					rows.Close()

					return
				}
			}

			if err := rows.Err(); err != nil {
				rows.Close()
				yield(types.MarketData{}, errors.Wrap(errors.ErrCodeReadFailed, "row iteration failed", err))

				return
			}

			rows.Close()

			if read < batchSize {
				return
			}

			offset += batchSize
		}
	}
}

// GetRange implements DataSource. Bounds are inclusive.
func (d *DuckDBDataSource) GetRange(start time.Time, end time.Time) ([]types.MarketData, error) {
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

// DailyExtrema aggregates max(high)/min(low) per calendar day SQL-side,
// excluding rows with NULL high or low. Same contract as extrema.Extract
// with day truncation done by DuckDB's date cast in the configured session
// timezone, for files where loading every bar into memory is not worth it.
// Result dates are midnight times in the configured location.
func (d *DuckDBDataSource) DailyExtrema(start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.DailyExtremum, error) {
	builder := d.sq.
		Select("CAST(date AS DATE) AS day", "MAX(high) AS high", "MIN(low) AS low").
		From("bars").
		Where("high IS NOT NULL AND low IS NOT NULL").
		GroupBy("day").
		OrderBy("day ASC")

	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"date": start.Unwrap()})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"date": end.Unwrap()})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build extrema query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to aggregate daily extrema", err)
	}
	defer rows.Close()

	loc := d.loc
	if loc == nil {
		loc = time.UTC
	}

	var result []types.DailyExtremum

	for rows.Next() {
		var (
			day       time.Time
			high, low float64
		)

		if err := rows.Scan(&day, &high, &low); err != nil {
			return nil, errors.Wrap(errors.ErrCodeReadFailed, "failed to scan extremum row", err)
		}

		result = append(result, types.DailyExtremum{
			Date: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc),
			High: high,
			Low:  low,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeReadFailed, "row iteration failed", err)
	}

	if len(result) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyInput, "no usable rows in bars view")
	}

	return result, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

func scanBar(rows *sql.Rows) (types.MarketData, error) {
	var (
		ts                             time.Time
		open, high, low, close, volume sql.NullFloat64
	)

	if err := rows.Scan(&ts, &open, &high, &low, &close, &volume); err != nil {
		return types.MarketData{}, errors.Wrap(errors.ErrCodeReadFailed, "failed to scan bar row", err)
	}

	return types.MarketData{
		Time:   ts,
		Open:   nullToNaN(open),
		High:   nullToNaN(high),
		Low:    nullToNaN(low),
		Close:  nullToNaN(close),
		Volume: nullToNaN(volume),
	}, nil
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}

	return v.Float64
}
